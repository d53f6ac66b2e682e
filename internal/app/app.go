// Package app assembles the fx application shared by every binary.
package app

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/retro-catalog/catalog-events/v1/config"
	"github.com/retro-catalog/catalog-events/v1/deadletter"
	"github.com/retro-catalog/catalog-events/v1/health"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/metrics"
	"github.com/retro-catalog/catalog-events/v1/minio"
	"github.com/retro-catalog/catalog-events/v1/postgres"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
	"github.com/retro-catalog/catalog-events/v1/tracer"
)

const (
	startSlack  = 30 * time.Second
	stopTimeout = 30 * time.Second
)

// Options builds the common fx options for service: configuration, logging,
// tracing, metrics with /healthz, the broker connection and, when enabled,
// the Postgres dead-letter store. extra is appended last so consumers stop
// before the connection closes.
func Options(cfg config.Config, extra ...fx.Option) fx.Option {
	opts := []fx.Option{
		fx.StartTimeout(cfg.Rabbit.StartupBudget() + startSlack),
		fx.StopTimeout(stopTimeout),
		fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Zap}
		}),

		config.FXModule(cfg),
		logger.FXModule,
		tracer.FXModule,
		metrics.FXModule,
		fx.Provide(func(l *logger.LoggerClient) rabbit.Logger { return l }),
		rabbit.FXModule,
		health.FXModule,
	}
	if cfg.DeadLetterStore {
		opts = append(opts,
			postgres.FXModule,
			deadletter.FXModule,
			fx.Invoke(func(r *health.Registry, pg postgres.Client, store deadletter.Store) {
				r.Register(health.NewPingChecker("postgres", pg, health.StatusDegraded))
				r.Register(deadletter.NewChecker(store, cfg.Rabbit.Channel.Queues))
			}),
		)
	}
	return fx.Options(append(opts, extra...)...)
}

// WithObjectStorage adds the MinIO client and its health check.
func WithObjectStorage() fx.Option {
	return fx.Options(
		minio.FXModule,
		fx.Invoke(func(r *health.Registry, c minio.Client) {
			r.Register(health.NewPingChecker("minio", c, health.StatusUnhealthy))
		}),
	)
}

// Run loads configuration for service and runs the application until a
// signal arrives. Startup failures exit with status 1.
func Run(service string, extra ...fx.Option) {
	cfg, err := config.Load(service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", service, err)
		os.Exit(1)
	}
	fx.New(Options(cfg, extra...)).Run()
}
