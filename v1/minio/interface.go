package minio

import (
	"context"
	"io"
)

// Client is the object storage surface used by the image worker.
type Client interface {
	// Put uploads an object and returns the stored size.
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (int64, error)

	Ping(ctx context.Context) error
	Bucket() string
}

var _ Client = (*MinioClient)(nil)
