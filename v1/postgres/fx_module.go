package postgres

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/logger"
)

// FXModule provides *Postgres and Client, starts connection monitoring on
// start and closes the pool on stop.
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresClientWithDI,
		fx.Annotate(
			ProvideClient,
			fx.As(new(Client)),
		),
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

func ProvideClient(pg *Postgres) Client {
	return pg
}

type PostgresParams struct {
	fx.In

	Config Config
	Logger logger.Logger
}

func NewPostgresClientWithDI(params PostgresParams) (*Postgres, error) {
	return NewPostgres(params.Config, params.Logger)
}

type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle runs the monitor for the lifetime of the app.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				params.Postgres.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			err := params.Postgres.GracefulShutdown()
			wg.Wait()
			return err
		},
	})
}
