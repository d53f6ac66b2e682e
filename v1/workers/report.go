package workers

import (
	"context"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// reportFailed turns a failed outcome report into the handler result. A
// report the backend rejected for good (unknown game, invalid body) is
// logged and the message acked; anything else is retried.
func reportFailed(ctx context.Context, log logger.Logger, err error, fields map[string]interface{}) error {
	if outcome.IsPermanent(err) {
		log.WarnWithContext(ctx, "Catalog rejected outcome report, not retrying", err, fields)
		return nil
	}
	return rabbit.NewHandlerError(err)
}
