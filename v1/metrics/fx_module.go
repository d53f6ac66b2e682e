package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/observability"
)

// FXModule provides *Metrics, the MetricsCollector interface and the
// observability.Observer that infrastructure packages report to. The server
// listens from start to stop. A metrics.Config must be in the container.
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		func(m *Metrics) MetricsCollector { return m },
		func(m *Metrics) observability.Observer { return m },
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// RegisterMetricsLifecycle binds the listener on start, so an address
// conflict fails the start, and serves in the background until stop.
func RegisterMetricsLifecycle(lc fx.Lifecycle, m *Metrics, log logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", m.Server.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
				"address": listener.Addr().String(),
			})
			go func() {
				if err := m.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Prometheus metrics server stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Prometheus metrics server", nil, nil)
			return m.Server.Shutdown(ctx)
		},
	})
}
