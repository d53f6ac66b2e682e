package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/retro-catalog/catalog-events/v1/logger"
)

func TestDSN(t *testing.T) {
	cfg := Config{Connection: Connection{
		Host: "db", Port: "5432", User: "catalog", Password: "secret", DbName: "catalog",
	}}
	assert.Equal(t, "host=db port=5432 user=catalog password=secret dbname=catalog sslmode=disable", cfg.DSN())

	cfg.Connection.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Connection: Connection{Host: "db", Port: "5432", User: "u", DbName: "d"}}
	require.NoError(t, cfg.Validate())

	cfg.Connection.SSLMode = "sometimes"
	assert.Error(t, cfg.Validate())

	assert.Error(t, Config{}.Validate())
}

func TestConnectionDetailsDefaults(t *testing.T) {
	d := ConnectionDetails{MaxOpenConns: 3}.withDefaults()
	assert.Equal(t, 3, d.MaxOpenConns)
	assert.Equal(t, 5, d.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, d.ConnMaxLifetime)
	assert.Equal(t, 10*time.Second, d.MonitorInterval)
}

func TestUninitializedClient(t *testing.T) {
	pg := &Postgres{
		logger:         logger.NewWithCore(zapcore.NewNopCore(), false),
		shutdownSignal: make(chan struct{}),
	}
	ctx := context.Background()

	assert.ErrorIs(t, pg.Ping(ctx), ErrNotInitialized)
	assert.ErrorIs(t, pg.Create(ctx, &struct{}{}), ErrNotInitialized)
	var n int64
	assert.ErrorIs(t, pg.Count(ctx, &struct{}{}, &n), ErrNotInitialized)
	assert.NoError(t, pg.GracefulShutdown())
	assert.NoError(t, pg.GracefulShutdown())
}
