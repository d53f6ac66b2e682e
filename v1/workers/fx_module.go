package workers

import (
	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/v1/deadletter"
	"github.com/retro-catalog/catalog-events/v1/events"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/minio"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
	"github.com/retro-catalog/catalog-events/v1/tracer"
)

// GameEventsModule consumes game_events. It needs rabbit.FXModule,
// outcome.FXModule and a workers.Config; a deadletter.Store is optional.
var GameEventsModule = fx.Module("game-events-worker",
	fx.Provide(
		NewGameEventWorker,
		newGameEventsConsumer,
	),
	fx.Invoke(rabbit.RegisterConsumerLifecycle),
)

// ImagesModule consumes image_processing. It additionally needs
// minio.FXModule; a *tracer.Tracer is optional.
var ImagesModule = fx.Module("image-worker",
	fx.Provide(
		newImageWorkerWithDI,
		newImagesConsumer,
	),
	fx.Invoke(rabbit.RegisterConsumerLifecycle),
)

// EnrichmentModule consumes metadata_enrichment.
var EnrichmentModule = fx.Module("enrichment-worker",
	fx.Provide(
		NewTimeSeededEnricher,
		NewEnrichmentWorker,
		newEnrichmentConsumer,
	),
	fx.Invoke(rabbit.RegisterConsumerLifecycle),
)

type ConsumerParams struct {
	fx.In

	Manager     *rabbit.ConnectionManager
	Config      Config
	Logger      logger.Logger
	DeadLetters deadletter.Store `optional:"true"`
}

// NewConsumer builds a consumer for queue with the configured concurrency
// and delivery bound. Dropped messages go to the dead-letter store, then to
// hooks.
func NewConsumer(p ConsumerParams, queue string, hooks []rabbit.DropHook, opts ...rabbit.ConsumerOption) *rabbit.Consumer {
	cfg := p.Config.WithDefaults()

	var chain []rabbit.DropHook
	if p.DeadLetters != nil {
		chain = append(chain, deadletter.Hook(p.DeadLetters, p.Logger))
	}
	chain = append(chain, hooks...)

	base := []rabbit.ConsumerOption{
		rabbit.WithConcurrency(cfg.Concurrency),
		rabbit.WithMaxDeliveries(cfg.MaxDeliveries),
		rabbit.WithDropHook(deadletter.Chain(chain...)),
	}
	return rabbit.NewConsumer(p.Manager, queue, append(base, opts...)...)
}

func newGameEventsConsumer(p ConsumerParams, w *GameEventWorker) *rabbit.Consumer {
	c := NewConsumer(p, events.QueueGameEvents, []rabbit.DropHook{w.DropHook}, rabbit.WithResolver(events.GameEventResolver))
	w.Register(c)
	return c
}

type imageWorkerParams struct {
	fx.In

	Config   Config
	Store    minio.Client
	Reporter outcome.OutcomeReporter
	Logger   logger.Logger
	Tracer   *tracer.Tracer `optional:"true"`
}

func newImageWorkerWithDI(p imageWorkerParams) *ImageWorker {
	return NewImageWorker(p.Config.Images, p.Store, p.Reporter, p.Logger, p.Tracer)
}

func newImagesConsumer(p ConsumerParams, w *ImageWorker) *rabbit.Consumer {
	c := NewConsumer(p, events.QueueImageProcessing, nil)
	w.Register(c)
	return c
}

func newEnrichmentConsumer(p ConsumerParams, w *EnrichmentWorker) *rabbit.Consumer {
	c := NewConsumer(p, events.QueueMetadataEnrichment, nil)
	w.Register(c)
	return c
}
