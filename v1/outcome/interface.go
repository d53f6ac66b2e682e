package outcome

import "context"

// OutcomeReporter is what the workers depend on. *Reporter implements it.
type OutcomeReporter interface {
	ReportStatus(ctx context.Context, gameID int64, status Status) error
	ReportImages(ctx context.Context, gameID int64, images Images) error
	ReportMetadata(ctx context.Context, gameID int64, metadata Metadata) error
}

var _ OutcomeReporter = (*Reporter)(nil)
