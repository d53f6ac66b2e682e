package tracer

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides the *Tracer and flushes it on stop. A tracer.Config and
// a logger.Logger must be in the container.
var FXModule = fx.Module("tracer",
	fx.Provide(NewClient),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle shuts the provider down on stop so buffered spans
// are exported.
func RegisterTracerLifecycle(lc fx.Lifecycle, t *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			t.logger.Info("Shutting down tracer", nil, nil)
			return t.Shutdown(ctx)
		},
	})
}
