package deadletter

import (
	"context"
	"fmt"
	"time"

	"github.com/retro-catalog/catalog-events/v1/health"
)

// Checker reports how many messages have been dead-lettered, in total and
// per queue. Records never make a process unhealthy; an unreachable store
// is degraded.
type Checker struct {
	store   Store
	queues  []string
	timeout time.Duration
}

var _ health.Checker = (*Checker)(nil)

func NewChecker(store Store, queues []string) *Checker {
	return &Checker{store: store, queues: queues, timeout: 2 * time.Second}
}

func (c *Checker) Name() string { return "dead_letters" }

func (c *Checker) Check(ctx context.Context) health.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	total, err := c.store.Count(ctx, "")
	if err != nil {
		return health.CheckResult{Status: health.StatusDegraded, Message: "dead-letter store unavailable", Error: err.Error()}
	}
	details := map[string]interface{}{"total": total}
	for _, q := range c.queues {
		n, err := c.store.Count(ctx, q)
		if err != nil {
			return health.CheckResult{Status: health.StatusDegraded, Message: "dead-letter store unavailable", Error: err.Error()}
		}
		details[q] = n
	}
	return health.CheckResult{
		Status:  health.StatusHealthy,
		Message: fmt.Sprintf("%d dead-lettered messages", total),
		Details: details,
	}
}
