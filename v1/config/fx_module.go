package config

import (
	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/health"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/metrics"
	"github.com/retro-catalog/catalog-events/v1/minio"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/postgres"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
	"github.com/retro-catalog/catalog-events/v1/tracer"
	"github.com/retro-catalog/catalog-events/v1/workers"
)

// FXModule supplies cfg and each package's section of it.
func FXModule(cfg Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Provide(
			func(c Config) logger.Config { return c.Logger },
			func(c Config) rabbit.Config { return c.Rabbit },
			func(c Config) outcome.Config { return c.Outcome },
			func(c Config) postgres.Config { return c.Postgres },
			func(c Config) minio.Config { return c.Minio },
			func(c Config) metrics.Config { return c.Metrics },
			func(c Config) tracer.Config { return c.Tracer },
			func(c Config) health.Config { return c.Health },
			func(c Config) workers.Config { return c.Workers },
		),
	)
}
