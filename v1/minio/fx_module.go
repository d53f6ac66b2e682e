package minio

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/observability"
)

// FXModule provides *MinioClient and Client and runs the health monitor for
// the lifetime of the app.
var FXModule = fx.Module("minio",
	fx.Provide(
		NewClientWithDI,
		func(m *MinioClient) Client { return m },
	),
	fx.Invoke(RegisterLifecycle),
)

type MinioParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

func NewClientWithDI(p MinioParams) (*MinioClient, error) {
	client, err := NewClient(context.Background(), p.Config)
	if err != nil {
		return nil, err
	}
	return client.WithLogger(p.Logger).WithObserver(p.Observer), nil
}

func RegisterLifecycle(lc fx.Lifecycle, client *MinioClient) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				client.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			client.GracefulShutdown()
			cancel()
			wg.Wait()
			return nil
		},
	})
}
