package outcome

import (
	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/observability"
)

// FXModule provides *Reporter and OutcomeReporter. An outcome.Config and a
// logger.Logger must be in the container; an observability.Observer is
// optional.
var FXModule = fx.Module("outcome",
	fx.Provide(
		NewReporterWithDI,
		func(r *Reporter) OutcomeReporter { return r },
	),
)

type ReporterParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

func NewReporterWithDI(p ReporterParams) (*Reporter, error) {
	opts := []Option{WithLogger(p.Logger)}
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	return NewReporter(p.Config, opts...)
}
