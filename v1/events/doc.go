// Package events defines the JSON messages exchanged over the catalog
// queues and how consumers decode them.
//
// Every message is a JSON object published persistently to one of three
// durable queues:
//
//	game_events          GameEvent or CustomMessage
//	image_processing     ImageJob
//	metadata_enrichment  EnrichmentJob
//
// Decode functions validate the payload and return an error built with
// rabbit.Malformed when the body is not valid JSON or misses required
// fields, so the consumer drops it instead of requeueing it forever.
package events
