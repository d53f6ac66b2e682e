package minio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/observability"
)

// MinioClient stores objects in a single bucket.
//
// The underlying *minio.Client lives in an atomic pointer so the monitor can
// swap it after a failed health check without racing with uploads.
type MinioClient struct {
	client atomic.Pointer[minio.Client]

	cfg      Config
	observer observability.Observer
	logger   logger.Logger

	shutdownSignal  chan struct{}
	reconnectSignal chan error

	closeShutdownOnce sync.Once
}

// NewClient connects, checks the bucket and creates it when allowed.
func NewClient(ctx context.Context, cfg Config) (*MinioClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("minio config: %w", err)
	}
	client, err := connectToMinio(cfg)
	if err != nil {
		return nil, err
	}

	m := &MinioClient{
		cfg:             cfg,
		shutdownSignal:  make(chan struct{}),
		reconnectSignal: make(chan error, 1),
	}
	m.client.Store(client)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := m.EnsureBucket(timeoutCtx); err != nil {
		return nil, err
	}
	return m, nil
}

func connectToMinio(cfg Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Connection.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Connection.AccessKeyID, cfg.Connection.SecretAccessKey, ""),
		Secure: cfg.Connection.UseSSL,
		Region: cfg.Connection.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return client, nil
}

// WithObserver attaches an operation observer.
func (m *MinioClient) WithObserver(observer observability.Observer) *MinioClient {
	m.observer = observer
	return m
}

// WithLogger attaches a logger for background events.
func (m *MinioClient) WithLogger(l logger.Logger) *MinioClient {
	m.logger = l
	return m
}

// Bucket is the configured bucket name.
func (m *MinioClient) Bucket() string {
	return m.cfg.Connection.BucketName
}

// EnsureBucket checks that the bucket exists, creating it when
// AccessBucketCreation is set.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	bucket := m.cfg.Connection.BucketName
	c := m.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}

	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket %s: %v", ErrConnectionFailed, bucket, err)
	}
	if exists {
		return nil
	}
	if !m.cfg.Connection.AccessBucketCreation {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}

	m.logInfo(ctx, "Bucket does not exist, creating it", map[string]interface{}{"bucket": bucket})
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.cfg.Connection.Region}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return TranslateError(err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (m *MinioClient) Ping(ctx context.Context) error {
	c := m.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}
	if _, err := c.BucketExists(ctx, m.cfg.Connection.BucketName); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Put uploads size bytes from reader under objectKey.
func (m *MinioClient) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (int64, error) {
	start := time.Now()
	objectKey = strings.TrimPrefix(objectKey, "/")
	if objectKey == "" || reader == nil {
		err := fmt.Errorf("%w: object key and reader are required", ErrInvalidArgument)
		m.observeOperation("put", objectKey, time.Since(start), err, 0)
		return 0, err
	}

	c := m.client.Load()
	if c == nil {
		m.observeOperation("put", objectKey, time.Since(start), ErrConnectionFailed, 0)
		return 0, ErrConnectionFailed
	}

	info, err := c.PutObject(ctx, m.cfg.Connection.BucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		err = TranslateError(err)
		m.observeOperation("put", objectKey, time.Since(start), err, 0)
		m.signalReconnect(err)
		return 0, err
	}
	m.observeOperation("put", objectKey, time.Since(start), nil, info.Size)
	return info.Size, nil
}

func (m *MinioClient) signalReconnect(err error) {
	if IsRetryableError(err) {
		select {
		case m.reconnectSignal <- err:
		default:
		}
	}
}

// Run probes the bucket every HealthCheckInterval and replaces the client
// after a failure, until ctx is done or GracefulShutdown is called.
func (m *MinioClient) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.healthCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := m.Ping(checkCtx)
			cancel()
			if err != nil {
				m.reconnect(ctx, err)
			}
		case err := <-m.reconnectSignal:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := m.Ping(checkCtx)
			cancel()
			if pingErr != nil {
				m.reconnect(ctx, err)
			}
		}
	}
}

func (m *MinioClient) reconnect(ctx context.Context, cause error) {
	m.logWarn(ctx, "MinIO connection issue detected, reconnecting", cause, map[string]interface{}{
		"endpoint": m.cfg.Connection.Endpoint,
	})
	for {
		client, err := connectToMinio(m.cfg)
		if err == nil {
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_, err = client.BucketExists(checkCtx, m.cfg.Connection.BucketName)
			cancel()
			if err == nil {
				m.client.Store(client)
				m.logInfo(ctx, "Reconnected to MinIO", map[string]interface{}{"endpoint": m.cfg.Connection.Endpoint})
				return
			}
		}
		m.logWarn(ctx, "MinIO reconnection failed", err, nil)

		select {
		case <-m.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// GracefulShutdown stops the monitor.
func (m *MinioClient) GracefulShutdown() {
	m.closeShutdownOnce.Do(func() {
		close(m.shutdownSignal)
	})
}

func (m *MinioClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (m *MinioClient) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
