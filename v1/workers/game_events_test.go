package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

func TestGameEventReportsCompleted(t *testing.T) {
	for _, action := range []string{"create", "update", "delete", "process"} {
		t.Run(action, func(t *testing.T) {
			reporter := &fakeReporter{}
			log, logs := observedLogger()
			w := NewGameEventWorker(reporter, log)

			body := fmt.Sprintf(`{"gameId":12,"action":%q,"gameData":{"title":"Chrono Trigger"},"timestamp":"2024-05-01T10:00:00Z"}`, action)
			require.NoError(t, w.HandleGameEvent(context.Background(), newMessage(body)))

			assert.Equal(t, []statusReport{{12, outcome.StatusCompleted}}, reporter.statuses)
			assert.Equal(t, 1, logs.FilterMessage("Game event processed").Len())
		})
	}
}

func TestGameEventReportFailureIsRetried(t *testing.T) {
	reporter := &fakeReporter{err: &outcome.ReportError{GameID: 12, StatusCode: 503}}
	log, _ := observedLogger()
	w := NewGameEventWorker(reporter, log)

	err := w.HandleGameEvent(context.Background(), newMessage(`{"gameId":12,"action":"create"}`))
	require.Error(t, err)
	assert.False(t, rabbit.IsMalformed(err))
	assert.True(t, rabbit.IsRetryableError(err))
	assert.ErrorIs(t, err, outcome.ErrReportFailed)
}

func TestPermanentReportRejectionIsAcked(t *testing.T) {
	rejected := fmt.Errorf("put status: %w", &outcome.ReportError{GameID: 12, StatusCode: 404, Body: "game not found"})

	tests := map[string]func(*fakeReporter, logger.Logger) error{
		"game event": func(r *fakeReporter, log logger.Logger) error {
			return NewGameEventWorker(r, log).HandleGameEvent(context.Background(), newMessage(`{"gameId":12,"action":"create"}`))
		},
		"enrichment": func(r *fakeReporter, log logger.Logger) error {
			return NewEnrichmentWorker(NewEnricher(1), r, log).Handle(context.Background(), newMessage(`{"gameId":12,"title":"Contra"}`))
		},
	}
	for name, run := range tests {
		t.Run(name, func(t *testing.T) {
			log, logs := observedLogger()
			require.NoError(t, run(&fakeReporter{err: rejected}, log))
			assert.Equal(t, 1, logs.FilterMessage("Catalog rejected outcome report, not retrying").Len())
		})
	}

	for _, status := range []int{408, 429, 500} {
		log, _ := observedLogger()
		w := NewGameEventWorker(&fakeReporter{err: &outcome.ReportError{GameID: 12, StatusCode: status}}, log)
		err := w.HandleGameEvent(context.Background(), newMessage(`{"gameId":12,"action":"create"}`))
		assert.True(t, rabbit.IsRetryableError(err), "status %d", status)
	}
}

func TestGameEventMalformed(t *testing.T) {
	log, _ := observedLogger()
	w := NewGameEventWorker(&fakeReporter{}, log)

	for _, body := range []string{`{"gameId":`, `{"action":"create"}`, `{"gameId":1,"action":"explode"}`} {
		err := w.HandleGameEvent(context.Background(), newMessage(body))
		assert.True(t, rabbit.IsMalformed(err), body)
	}
}

func TestCustomMessageIsLogged(t *testing.T) {
	reporter := &fakeReporter{}
	log, logs := observedLogger()
	w := NewGameEventWorker(reporter, log)

	err := w.HandleCustomMessage(context.Background(), newMessage(`{"type":"custom","message":"reindex tonight","timestamp":"2024-05-01T10:00:00Z"}`))
	require.NoError(t, err)

	entries := logs.FilterMessage("Custom message received").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "reindex tonight", entries[0].ContextMap()["message"])
	assert.Empty(t, reporter.statuses)

	assert.True(t, rabbit.IsMalformed(w.HandleCustomMessage(context.Background(), newMessage(`{"type":"custom"}`))))
}

func TestDropHookMarksExhaustedGameFailed(t *testing.T) {
	reporter := &fakeReporter{}
	log, _ := observedLogger()
	w := NewGameEventWorker(reporter, log)

	msg := newMessage(`{"gameId":33,"action":"update"}`)
	msg.count = 3
	w.DropHook(context.Background(), rabbit.DroppedMessage{
		Queue:  "game_events",
		Kind:   "update",
		Reason: rabbit.DropExhausted,
		Err:    errors.New("backend down"),
		Msg:    msg,
	})

	assert.Equal(t, []statusReport{{33, outcome.StatusFailed}}, reporter.statuses)
}

func TestDropHookIgnoresMalformedAndCustom(t *testing.T) {
	reporter := &fakeReporter{}
	log, _ := observedLogger()
	w := NewGameEventWorker(reporter, log)

	w.DropHook(context.Background(), rabbit.DroppedMessage{Reason: rabbit.DropMalformed, Msg: newMessage(`{"gameId":1,"action":"create"}`)})
	w.DropHook(context.Background(), rabbit.DroppedMessage{Reason: rabbit.DropExhausted, Kind: "custom", Msg: newMessage(`{"type":"custom","message":"x"}`)})
	w.DropHook(context.Background(), rabbit.DroppedMessage{Reason: rabbit.DropExhausted})

	assert.Empty(t, reporter.statuses)
}

func TestDropHookLogsReportFailure(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("connection refused")}
	log, logs := observedLogger()
	w := NewGameEventWorker(reporter, log)

	w.DropHook(context.Background(), rabbit.DroppedMessage{Reason: rabbit.DropExhausted, Kind: "create", Msg: newMessage(`{"gameId":5,"action":"create"}`)})
	assert.Equal(t, 1, logs.FilterMessage("Failed to mark game as failed").Len())
}
