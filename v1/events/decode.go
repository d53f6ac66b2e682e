package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

type validatable interface {
	Validate() error
}

func decode[T validatable](body []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(body)) == 0 {
		return v, rabbit.Malformed("empty body", nil)
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, rabbit.Malformed("invalid json", err)
	}
	if err := v.Validate(); err != nil {
		return v, rabbit.Malformed(fmt.Sprintf("invalid %T", v), err)
	}
	return v, nil
}

func DecodeGameEvent(body []byte) (GameEvent, error) { return decode[GameEvent](body) }

func DecodeCustomMessage(body []byte) (CustomMessage, error) { return decode[CustomMessage](body) }

func DecodeImageJob(body []byte) (ImageJob, error) { return decode[ImageJob](body) }

func DecodeEnrichmentJob(body []byte) (EnrichmentJob, error) { return decode[EnrichmentJob](body) }

// GameEventResolver picks the handler kind of a game_events message:
// KindCustom for {"type":"custom"}, otherwise the action. It only peeks at
// the discriminating fields; the handler decodes and validates the rest.
func GameEventResolver(_ string, body []byte) (string, error) {
	var peek struct {
		Type   string `json:"type"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return "", rabbit.Malformed("invalid json", err)
	}
	if peek.Type == KindCustom {
		return KindCustom, nil
	}
	if peek.Action == "" {
		return "", rabbit.Malformed("missing action", nil)
	}
	return peek.Action, nil
}
