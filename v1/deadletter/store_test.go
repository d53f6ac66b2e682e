package deadletter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

type stubMessage struct {
	id      string
	body    []byte
	headers map[string]interface{}
	count   int
}

func (m *stubMessage) AckMsg() error                  { return nil }
func (m *stubMessage) NackMsg(bool) error             { return nil }
func (m *stubMessage) Body() []byte                   { return m.body }
func (m *stubMessage) Header() map[string]interface{} { return m.headers }
func (m *stubMessage) Queue() string                  { return "game_events" }
func (m *stubMessage) MessageID() string              { return m.id }
func (m *stubMessage) Redelivered() bool              { return m.count > 1 }
func (m *stubMessage) DeliveryCount() int             { return m.count }

type memoryStore struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (s *memoryStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func (s *memoryStore) Count(_ context.Context, queue string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, r := range s.records {
		if queue == "" || r.Queue == queue {
			n++
		}
	}
	return n, nil
}

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewWithCore(core, false), logs
}

func TestNewRecord(t *testing.T) {
	msg := &stubMessage{
		id:      "b7d1",
		body:    []byte(`{"gameId":`),
		headers: map[string]interface{}{"x-delivery-count": int64(2), "source": "catalog-api"},
		count:   3,
	}
	r := NewRecord(rabbit.DroppedMessage{
		Queue:  "game_events",
		Kind:   "create",
		Reason: rabbit.DropMalformed,
		Err:    errors.New("unexpected end of JSON input"),
		Msg:    msg,
	})

	assert.Equal(t, "game_events", r.Queue)
	assert.Equal(t, "create", r.Kind)
	assert.Equal(t, "malformed", r.Reason)
	assert.Equal(t, "b7d1", r.MessageID)
	assert.Equal(t, 3, r.DeliveryCount)
	assert.Equal(t, "unexpected end of JSON input", r.Error)
	assert.Equal(t, `{"gameId":`, string(r.Body))
	assert.JSONEq(t, `{"x-delivery-count":2,"source":"catalog-api"}`, r.Headers)
	assert.False(t, r.CreatedAt.IsZero())

	msg.body[0] = 'X'
	assert.Equal(t, byte('{'), r.Body[0], "body is copied")
}

func TestNewRecordWithoutMessage(t *testing.T) {
	r := NewRecord(rabbit.DroppedMessage{Queue: "q", Reason: rabbit.DropExhausted})
	assert.Equal(t, "{}", r.Headers)
	assert.Empty(t, r.Error)
	assert.Zero(t, r.DeliveryCount)
}

func TestEncodeHeadersFallsBack(t *testing.T) {
	got := encodeHeaders(map[string]interface{}{"ok": "yes", "bad": func() {}})
	assert.JSONEq(t, `{"ok":"\"yes\"","bad":"<unencodable>"}`, got)
}

func TestHookSavesAndLogs(t *testing.T) {
	store := &memoryStore{}
	log, logs := observedLogger()
	hook := Hook(store, log)

	hook(context.Background(), rabbit.DroppedMessage{
		Queue:  "image_processing",
		Reason: rabbit.DropExhausted,
		Err:    errors.New("upstream 503"),
		Msg:    &stubMessage{id: "m1", body: []byte(`{}`), count: 3},
	})

	require.Len(t, store.records, 1)
	assert.Equal(t, "exhausted", store.records[0].Reason)
	require.Equal(t, 1, logs.FilterMessage("Message dead-lettered").Len())
	entry := logs.FilterMessage("Message dead-lettered").All()[0]
	assert.Equal(t, "m1", entry.ContextMap()["message_id"])
}

func TestHookLogsSaveFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("connection refused")}
	log, logs := observedLogger()

	assert.NotPanics(t, func() {
		Hook(store, log)(context.Background(), rabbit.DroppedMessage{Queue: "q", Reason: rabbit.DropMalformed})
	})
	assert.Equal(t, 1, logs.FilterMessage("Failed to record dead letter").Len())
	assert.Zero(t, logs.FilterMessage("Message dead-lettered").Len())
}

func TestChain(t *testing.T) {
	var order []string
	first := func(context.Context, rabbit.DroppedMessage) { order = append(order, "first") }
	second := func(context.Context, rabbit.DroppedMessage) { order = append(order, "second") }

	Chain(first, nil, second)(context.Background(), rabbit.DroppedMessage{})
	assert.Equal(t, []string{"first", "second"}, order)
}
