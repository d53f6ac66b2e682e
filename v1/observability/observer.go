// Package observability defines the hook through which infrastructure
// packages report the operations they perform.
package observability

import "time"

// OperationContext describes one finished operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "rabbit" or "outcome".
	Component string

	// Operation is what was done, e.g. "publish", "consume", "connect".
	Operation string

	// Resource is the primary target, usually a queue name or host.
	Resource string

	// SubResource narrows Resource, e.g. the ack outcome of a delivery.
	SubResource string

	Duration time.Duration

	// Error is nil on success.
	Error error

	// Size is the payload size in bytes when it applies.
	Size int64

	Metadata map[string]string
}

// Observer receives OperationContext values. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// Status returns "success" or "error" for ctx.
func (ctx OperationContext) Status() string {
	if ctx.Error != nil {
		return "error"
	}
	return "success"
}
