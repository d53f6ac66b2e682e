package rabbit

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides the *ConnectionManager, a *Publisher bound to it and
// their interfaces, and ties the manager to the application lifecycle.
// A rabbit.Config must be in the container; Logger and Observer are
// optional.
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewConnectionManagerWithDI,
		NewPublisherWithDI,
		func(p *Publisher) MessagePublisher { return p },
		func(m *ConnectionManager) ConnectionStatus { return m },
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// RabbitParams groups the dependencies of the connection manager.
type RabbitParams struct {
	fx.In

	Config   Config
	Logger   Logger   `optional:"true"`
	Observer Observer `optional:"true"`
}

// NewConnectionManagerWithDI builds the manager from injected dependencies.
func NewConnectionManagerWithDI(params RabbitParams) *ConnectionManager {
	var opts []Option
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	return NewConnectionManager(params.Config, opts...)
}

// NewPublisherWithDI builds a publisher sharing the manager's logger and
// observer.
func NewPublisherWithDI(m *ConnectionManager) *Publisher {
	return NewPublisher(m)
}

// RegisterRabbitLifecycle connects on start, honouring the startup policy,
// and shuts the manager down on stop. The start hook context bounds the
// startup attempts, so the fx start timeout must leave room for them.
func RegisterRabbitLifecycle(lc fx.Lifecycle, m *ConnectionManager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			// a ShutdownError is logged by the manager and must not fail the stop
			_ = m.GracefulShutdown(ctx)
			return nil
		},
	})
}

// RegisterConsumerLifecycle runs c.Consume in the background from start to
// stop. Register it after the rabbit module so consumers stop before the
// connection is closed.
func RegisterConsumerLifecycle(lc fx.Lifecycle, c *Consumer) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})

			go func() {
				defer close(done)
				if err := c.Consume(ctx); err != nil {
					c.logError(ctx, "Consumer stopped with error", err, map[string]interface{}{"queue": c.queue})
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
