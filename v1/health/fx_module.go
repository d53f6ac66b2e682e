package health

import (
	"time"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/metrics"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// Config names the service in reports.
type Config struct {
	ServiceName string        `envconfig:"SERVICE_NAME" default:"catalog-events"`
	Timeout     time.Duration `envconfig:"HEALTH_TIMEOUT" default:"5s"`
}

// FXModule provides a *Registry with the broker check registered and mounts
// it on the metrics server as /healthz. Other modules add checkers by
// invoking Register on the registry.
var FXModule = fx.Module("health",
	fx.Provide(func(cfg Config) *Registry { return NewRegistry(cfg.ServiceName) }),
	fx.Invoke(RegisterHealthEndpoint),
)

// RegisterHealthEndpoint registers the broker checker and mounts /healthz.
func RegisterHealthEndpoint(cfg Config, registry *Registry, status rabbit.ConnectionStatus, m metrics.MetricsCollector) {
	registry.Register(NewRabbitChecker(status))
	m.Handle("/healthz", NewHandler(registry, cfg.Timeout))
}
