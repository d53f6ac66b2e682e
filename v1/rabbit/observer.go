package rabbit

import (
	"context"
	"time"

	"github.com/retro-catalog/catalog-events/v1/observability"
)

// Observer receives a report for every connect, publish and consume.
type Observer = observability.Observer

type observed struct {
	logger   Logger
	observer Observer
}

func (o *observed) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if o.observer == nil {
		return
	}
	o.observer.ObserveOperation(observability.OperationContext{
		Component:   "rabbit",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}

func (o *observed) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.logger != nil {
		o.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (o *observed) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if o.logger != nil {
		o.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (o *observed) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if o.logger != nil {
		o.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
