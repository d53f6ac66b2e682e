// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/retro-catalog/catalog-events/v1/events"
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

// Config is everything one process may need. Each field is read from the
// variables named in its envconfig tags.
type Config struct {
	Logger   logger.Config
	Rabbit   rabbit.Config
	Outcome  outcome.Config
	Postgres postgres.Config
	Minio    minio.Config
	Metrics  metrics.Config
	Tracer   tracer.Config
	Health   health.Config
	Workers  workers.Config

	// DeadLetterStore enables recording dropped messages in Postgres.
	DeadLetterStore bool `envconfig:"DEAD_LETTER_STORE_ENABLED" default:"false"`
}

// Load reads the environment and applies per-service defaults. service
// names the process and is used where SERVICE_NAME is unset.
func Load(service string) (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.applyService(service)

	cfg.Rabbit = cfg.Rabbit.WithDefaults()
	if err := cfg.Rabbit.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: rabbit: %w", err)
	}
	cfg.Workers = cfg.Workers.WithDefaults()
	if err := cfg.Workers.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: workers: %w", err)
	}
	cfg.Outcome = cfg.Outcome.WithDefaults()
	if err := cfg.Outcome.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: outcome: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyService(service string) {
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = service
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = service
	}
	if c.Tracer.ServiceName == "" || c.Tracer.ServiceName == "catalog-events" {
		c.Tracer.ServiceName = service
	}
	if c.Health.ServiceName == "" || c.Health.ServiceName == "catalog-events" {
		c.Health.ServiceName = service
	}
	if c.Rabbit.Connection.ConnectionName == "" {
		c.Rabbit.Connection.ConnectionName = service
	}
	if len(c.Rabbit.Channel.Queues) == 0 {
		c.Rabbit.Channel.Queues = events.Queues()
	}
	if c.Rabbit.Channel.PrefetchCount < c.Workers.Concurrency {
		c.Rabbit.Channel.PrefetchCount = c.Workers.Concurrency
	}
}
