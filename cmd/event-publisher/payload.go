package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/retro-catalog/catalog-events/v1/events"
)

// request is what the command line asks to publish.
type request struct {
	Kind      string
	GameID    int64
	Action    string
	Data      string
	Message   string
	ImageURL  string
	Title     string
	Developer string
}

var errUnknownKind = errors.New("unknown kind")

// build returns the target queue and the validated payload for r.
func (r request) build() (string, interface{}, error) {
	var (
		queue   string
		payload interface {
			Validate() error
		}
	)

	switch strings.ToLower(r.Kind) {
	case "game":
		var data interface{}
		if strings.TrimSpace(r.Data) != "" {
			if !json.Valid([]byte(r.Data)) {
				return "", nil, fmt.Errorf("-data is not valid JSON")
			}
			data = json.RawMessage(r.Data)
		}
		ev, err := events.NewGameEvent(r.GameID, events.Action(r.Action), data)
		if err != nil {
			return "", nil, err
		}
		queue, payload = events.QueueGameEvents, ev
	case "custom":
		queue, payload = events.QueueGameEvents, events.NewCustomMessage(r.Message)
	case "image":
		job := events.ImageJob{GameID: r.GameID}
		if r.ImageURL != "" {
			job.ImageURL = &r.ImageURL
		}
		queue, payload = events.QueueImageProcessing, job
	case "enrich":
		queue, payload = events.QueueMetadataEnrichment, events.EnrichmentJob{
			GameID:    r.GameID,
			Title:     r.Title,
			Developer: r.Developer,
		}
	default:
		return "", nil, fmt.Errorf("%w %q (want game, custom, image or enrich)", errUnknownKind, r.Kind)
	}

	if err := payload.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid %s message: %w", r.Kind, err)
	}
	return queue, payload, nil
}
