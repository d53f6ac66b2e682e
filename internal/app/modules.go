package app

import (
	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/workers"
)

// MessageConsumer consumes game_events and reports processing status.
func MessageConsumer() fx.Option {
	return fx.Options(outcome.FXModule, workers.GameEventsModule)
}

// ImageProcessor consumes image_processing and stores resized images.
func ImageProcessor() fx.Option {
	return fx.Options(outcome.FXModule, WithObjectStorage(), workers.ImagesModule)
}

// MetadataEnricher consumes metadata_enrichment.
func MetadataEnricher() fx.Option {
	return fx.Options(outcome.FXModule, workers.EnrichmentModule)
}
