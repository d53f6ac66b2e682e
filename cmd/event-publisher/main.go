// Command event-publisher publishes catalog messages to the broker, the way
// the catalog backend does after a game is created or changed.
//
//	event-publisher -kind game -game-id 42 -action create -data '{"title":"Doom"}'
//	event-publisher -kind image -game-id 42 -image-url https://img.example/doom.png
//	event-publisher -kind enrich -game-id 42 -title Doom -developer "id Software"
//	event-publisher -kind custom -message "reindex tonight"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/retro-catalog/catalog-events/internal/app"
	"github.com/retro-catalog/catalog-events/v1/config"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

const service = "event-publisher"

func main() {
	var (
		r     request
		count int
	)
	flag.StringVar(&r.Kind, "kind", "game", "message kind: game, custom, image or enrich")
	flag.Int64Var(&r.GameID, "game-id", 0, "game id")
	flag.StringVar(&r.Action, "action", "create", "game action: create, update, delete or process")
	flag.StringVar(&r.Data, "data", "", "game data as a JSON document")
	flag.StringVar(&r.Message, "message", "", "custom message text")
	flag.StringVar(&r.ImageURL, "image-url", "", "cover image URL")
	flag.StringVar(&r.Title, "title", "", "game title")
	flag.StringVar(&r.Developer, "developer", "", "game developer")
	flag.IntVar(&count, "count", 1, "number of copies to publish")
	flag.Parse()

	if err := run(r, count); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", service, err)
		os.Exit(1)
	}
}

func run(r request, count int) error {
	if count < 1 {
		return fmt.Errorf("-count must be at least 1")
	}
	queue, payload, err := r.build()
	if err != nil {
		return err
	}

	cfg, err := config.Load(service)
	if err != nil {
		return err
	}
	// A one-shot publish has no use for the dead-letter store, and its
	// metrics server must not collide with a consumer on the same host.
	cfg.DeadLetterStore = false
	if os.Getenv("METRICS_ADDRESS") == "" {
		cfg.Metrics.Address = "127.0.0.1:0"
	}

	var (
		publisher rabbit.MessagePublisher
		log       logger.Logger
	)
	fxApp := fx.New(
		app.Options(cfg),
		fx.Populate(&publisher, &log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), fxApp.StartTimeout())
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = fxApp.Stop(stopCtx)
	}()

	sent := 0
	for i := 0; i < count; i++ {
		if publisher.Publish(ctx, queue, payload) {
			sent++
		}
	}
	fields := map[string]interface{}{"queue": queue, "kind": r.Kind, "sent": sent, "requested": count}
	if sent != count {
		err := fmt.Errorf("%d of %d messages were not confirmed", count-sent, count)
		log.ErrorWithContext(ctx, "Publishing incomplete", err, fields)
		return err
	}
	log.InfoWithContext(ctx, "Messages published", nil, fields)
	return nil
}
