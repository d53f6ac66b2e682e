package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/retro-catalog/catalog-events/v1/events"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// failedReportTimeout bounds the "failed" status report sent from the drop
// hook, which runs while the delivery is still unsettled.
const failedReportTimeout = 10 * time.Second

// GameEventWorker handles the game_events queue.
type GameEventWorker struct {
	reporter outcome.OutcomeReporter
	logger   logger.Logger
}

func NewGameEventWorker(reporter outcome.OutcomeReporter, log logger.Logger) *GameEventWorker {
	return &GameEventWorker{reporter: reporter, logger: log}
}

// Register installs a handler per action plus the custom message handler.
// The consumer must use events.GameEventResolver.
func (w *GameEventWorker) Register(c *rabbit.Consumer) {
	for _, a := range []events.Action{events.ActionCreate, events.ActionUpdate, events.ActionDelete, events.ActionProcess} {
		c.Handle(string(a), w.HandleGameEvent)
	}
	c.Handle(events.KindCustom, w.HandleCustomMessage)
}

// HandleGameEvent processes one event and marks the game completed. A
// failed report is returned so the message is redelivered.
func (w *GameEventWorker) HandleGameEvent(ctx context.Context, msg rabbit.Message) error {
	ev, err := events.DecodeGameEvent(msg.Body())
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"game_id":        ev.GameID,
		"action":         string(ev.Action),
		"delivery_count": msg.DeliveryCount(),
	}
	if len(ev.GameData) > 0 {
		fields["game_data"] = json.RawMessage(ev.GameData)
	}

	switch ev.Action {
	case events.ActionCreate:
		w.logger.InfoWithContext(ctx, "Processing creation event", nil, fields)
	case events.ActionUpdate:
		w.logger.InfoWithContext(ctx, "Processing update event", nil, fields)
	case events.ActionDelete:
		w.logger.InfoWithContext(ctx, "Processing deletion event", nil, fields)
	case events.ActionProcess:
		w.logger.InfoWithContext(ctx, "Processing custom process event", nil, fields)
	}

	if err := w.reporter.ReportStatus(ctx, ev.GameID, outcome.StatusCompleted); err != nil {
		return reportFailed(ctx, w.logger, err, fields)
	}
	w.logger.InfoWithContext(ctx, "Game event processed", nil, fields)
	return nil
}

// HandleCustomMessage logs an operator message.
func (w *GameEventWorker) HandleCustomMessage(ctx context.Context, msg rabbit.Message) error {
	m, err := events.DecodeCustomMessage(msg.Body())
	if err != nil {
		return err
	}
	w.logger.InfoWithContext(ctx, "Custom message received", nil, map[string]interface{}{
		"message":   m.Message,
		"timestamp": m.Timestamp.String(),
	})
	return nil
}

// DropHook marks the game failed once its event ran out of attempts.
// Malformed messages carry no trustworthy game id and are only logged.
func (w *GameEventWorker) DropHook(ctx context.Context, dropped rabbit.DroppedMessage) {
	if dropped.Reason != rabbit.DropExhausted || dropped.Kind == events.KindCustom || dropped.Msg == nil {
		return
	}
	ev, err := events.DecodeGameEvent(dropped.Msg.Body())
	if err != nil {
		return
	}

	reportCtx, cancel := context.WithTimeout(ctx, failedReportTimeout)
	defer cancel()
	if err := w.reporter.ReportStatus(reportCtx, ev.GameID, outcome.StatusFailed); err != nil {
		w.logger.ErrorWithContext(ctx, "Failed to mark game as failed", err, map[string]interface{}{"game_id": ev.GameID})
		return
	}
	w.logger.WarnWithContext(ctx, "Game marked as failed after exhausting retries", dropped.Err, map[string]interface{}{
		"game_id":        ev.GameID,
		"delivery_count": dropped.Msg.DeliveryCount(),
	})
}
