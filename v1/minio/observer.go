package minio

import (
	"time"

	"github.com/retro-catalog/catalog-events/v1/observability"
)

// observeOperation reports a storage call with the bucket as resource and the
// object key as sub-resource.
func (m *MinioClient) observeOperation(operation, objectKey string, duration time.Duration, err error, size int64) {
	if m == nil || m.observer == nil {
		return
	}
	m.observer.ObserveOperation(observability.OperationContext{
		Component:   "minio",
		Operation:   operation,
		Resource:    m.cfg.Connection.BucketName,
		SubResource: objectKey,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}
