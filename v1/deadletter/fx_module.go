package deadletter

import (
	"context"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/postgres"
)

// FXModule provides the gorm store as Store and migrates its table on start.
// It needs postgres.FXModule.
var FXModule = fx.Module("deadletter",
	fx.Provide(
		NewGormStore,
		func(s *GormStore) Store { return s },
	),
	fx.Invoke(RegisterMigration),
)

func RegisterMigration(lc fx.Lifecycle, store *GormStore, _ postgres.Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.Migrate(ctx)
		},
	})
}
