// Package workers holds the message handlers of the three consumer
// processes: game events, cover image processing and metadata enrichment.
//
// Handlers return rabbit.Malformed errors for payloads that can never be
// processed and wrap everything else with rabbit.NewHandlerError so the
// message is redelivered, up to Config.MaxDeliveries attempts. An outcome
// report the catalog backend rejects with a permanent 4xx is not retried.
package workers
