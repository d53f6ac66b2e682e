package metrics

import (
	"github.com/retro-catalog/catalog-events/v1/observability"
)

var _ observability.Observer = (*Metrics)(nil)

// ObserveOperation records one finished operation. The SubResource of a
// consume operation is its settlement outcome (ack, requeue, drop) and is
// exported as the outcome label.
func (m *Metrics) ObserveOperation(ctx observability.OperationContext) {
	outcome := ctx.SubResource
	if outcome == "" {
		outcome = "none"
	}
	m.operationsTotal.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource, outcome, ctx.Status()).Inc()
	if ctx.Duration > 0 {
		m.operationDuration.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource).Observe(ctx.Duration.Seconds())
	}
	if ctx.Size > 0 {
		m.operationBytes.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource).Add(float64(ctx.Size))
	}
}
