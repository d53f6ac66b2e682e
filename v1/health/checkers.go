package health

import (
	"context"
	"time"

	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// RabbitChecker reports the broker connection. Disconnected is unhealthy;
// connected but blocked by a broker resource alarm is degraded.
type RabbitChecker struct {
	status rabbit.ConnectionStatus
}

func NewRabbitChecker(status rabbit.ConnectionStatus) *RabbitChecker {
	return &RabbitChecker{status: status}
}

func (c *RabbitChecker) Name() string { return "rabbitmq" }

func (c *RabbitChecker) Check(context.Context) CheckResult {
	res := CheckResult{
		Details: map[string]interface{}{"state": c.status.State().String()},
	}
	switch {
	case !c.status.IsConnected():
		res.Status = StatusUnhealthy
		res.Message = "broker not connected"
		if err := c.status.LastError(); err != nil {
			res.Error = err.Error()
		}
	case c.status.Blocked():
		res.Status = StatusDegraded
		res.Message = "broker is blocking publishes"
	default:
		res.Status = StatusHealthy
		res.Message = "broker connected"
	}
	return res
}

// Pinger is anything that can verify its backend with a round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker turns a Pinger into a Checker. A failed ping is reported with
// the given status, so optional backends can be degraded instead of
// unhealthy.
type PingChecker struct {
	name      string
	pinger    Pinger
	onFailure Status
	timeout   time.Duration
}

func NewPingChecker(name string, pinger Pinger, onFailure Status) *PingChecker {
	return &PingChecker{name: name, pinger: pinger, onFailure: onFailure, timeout: 2 * time.Second}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: c.onFailure, Message: "ping failed", Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "ping ok"}
}
