// Command metadata-enricher generates game metadata for the metadata_enrichment queue.
package main

import "github.com/retro-catalog/catalog-events/internal/app"

func main() {
	app.Run("metadata-enricher", app.MetadataEnricher())
}
