package postgres

import (
	"context"

	"gorm.io/gorm"
)

// Client is the database surface the rest of the module depends on.
type Client interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error

	AutoMigrate(ctx context.Context, models ...interface{}) error
	Create(ctx context.Context, value interface{}) error
	Count(ctx context.Context, model interface{}, count *int64, conditions ...interface{}) error

	GracefulShutdown() error
}

var _ Client = (*Postgres)(nil)
