package events

import (
	"encoding/json"
	"time"
)

// Queue names. All three are declared durable by every process.
const (
	QueueGameEvents         = "game_events"
	QueueImageProcessing    = "image_processing"
	QueueMetadataEnrichment = "metadata_enrichment"
)

// Queues returns every catalog queue.
func Queues() []string {
	return []string{QueueGameEvents, QueueImageProcessing, QueueMetadataEnrichment}
}

// Action is what happened to a game.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionProcess Action = "process"
)

// KindCustom is the handler kind of CustomMessage on the game_events queue.
const KindCustom = "custom"

// GameEvent announces a change to a game record.
type GameEvent struct {
	GameID    int64           `json:"gameId"`
	Action    Action          `json:"action"`
	GameData  json.RawMessage `json:"gameData,omitempty"`
	Timestamp Timestamp       `json:"timestamp"`
}

// CustomMessage is a free-form operator message on the game_events queue.
type CustomMessage struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// ImageJob asks for the cover image of a game to be processed. A nil or
// empty ImageURL means the game has no image yet.
type ImageJob struct {
	GameID   int64   `json:"gameId"`
	ImageURL *string `json:"imageUrl"`
}

// EnrichmentJob asks for generated metadata for a game.
type EnrichmentJob struct {
	GameID    int64  `json:"gameId"`
	Title     string `json:"title"`
	Developer string `json:"developer"`
}

// NewGameEvent stamps a GameEvent with the current time.
func NewGameEvent(gameID int64, action Action, data interface{}) (GameEvent, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return GameEvent{}, err
		}
		raw = b
	}
	return GameEvent{GameID: gameID, Action: action, GameData: raw, Timestamp: NewTimestamp(time.Now())}, nil
}

// NewCustomMessage stamps a CustomMessage with the current time.
func NewCustomMessage(message string) CustomMessage {
	return CustomMessage{Type: KindCustom, Message: message, Timestamp: NewTimestamp(time.Now())}
}
