package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retro-catalog/catalog-events/v1/logger"
)

// ErrNotInitialized is returned when no connection has been established.
var ErrNotInitialized = errors.New("postgres: client is not initialized")

// Postgres wraps gorm.DB with connection monitoring and reconnection.
//
// The active *gorm.DB is kept in an atomic pointer and swapped on reconnect
// without blocking readers.
type Postgres struct {
	cfg             Config
	logger          logger.Logger
	client          atomic.Pointer[gorm.DB]
	shutdownSignal  chan struct{}
	retryChanSignal chan error

	closeShutdownOnce sync.Once
}

// NewPostgres connects once and returns the client. Monitoring starts with
// the fx lifecycle or an explicit Run.
func NewPostgres(cfg Config, log logger.Logger) (*Postgres, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	cfg.ConnectionDetails = cfg.ConnectionDetails.withDefaults()

	conn, err := connectToPostgres(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to PostgreSQL", nil, map[string]interface{}{
		"host": cfg.Connection.Host,
		"db":   cfg.Connection.DbName,
	})

	pg := &Postgres{
		cfg:             cfg,
		logger:          log,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	pg.client.Store(conn)
	return pg, nil
}

func connectToPostgres(cfg Config) (*gorm.DB, error) {
	database, err := gorm.Open(
		postgres.Open(cfg.DSN()),
		&gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Discard,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.ConnectionDetails.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.ConnectionDetails.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnectionDetails.ConnMaxLifetime)
	return database, nil
}

// DB returns the current connection.
func (p *Postgres) DB() *gorm.DB {
	return p.client.Load()
}

// Ping checks the current connection.
func (p *Postgres) Ping(ctx context.Context) error {
	conn := p.DB()
	if conn == nil {
		return ErrNotInitialized
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("postgres: database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Run monitors the connection and reconnects after a failed ping until ctx
// is done or GracefulShutdown is called.
func (p *Postgres) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.MonitorConnection(ctx)
	}()
	go func() {
		defer wg.Done()
		p.RetryConnection(ctx)
	}()
	wg.Wait()
}

// RetryConnection waits for failure signals from MonitorConnection and
// reconnects until it succeeds.
func (p *Postgres) RetryConnection(ctx context.Context) {
	for {
		select {
		case <-p.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case cause := <-p.retryChanSignal:
			p.logger.Warn("PostgreSQL connection unhealthy, reconnecting", cause)
			p.reconnect(ctx)
		}
	}
}

func (p *Postgres) reconnect(ctx context.Context) {
	for {
		conn, err := connectToPostgres(p.cfg)
		if err == nil {
			old := p.client.Swap(conn)
			if old != nil {
				if sqlDB, err := old.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}
			p.logger.Info("Reconnected to PostgreSQL", nil)
			return
		}
		p.logger.Error("PostgreSQL reconnection failed", err)

		select {
		case <-p.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// MonitorConnection pings every MonitorInterval and signals RetryConnection
// on failure.
func (p *Postgres) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.ConnectionDetails.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := p.Ping(pingCtx)
			cancel()
			if err != nil {
				select {
				case p.retryChanSignal <- err:
				default:
				}
			}
		}
	}
}

// GracefulShutdown stops monitoring and closes the connection pool.
func (p *Postgres) GracefulShutdown() error {
	p.closeShutdownOnce.Do(func() {
		close(p.shutdownSignal)
	})

	conn := p.client.Swap(nil)
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
