package workers

import (
	"context"
	"io"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/tracer"
)

type stubMessage struct {
	body  []byte
	count int
}

func newMessage(body string) *stubMessage { return &stubMessage{body: []byte(body), count: 1} }

func (m *stubMessage) AckMsg() error                  { return nil }
func (m *stubMessage) NackMsg(bool) error             { return nil }
func (m *stubMessage) Body() []byte                   { return m.body }
func (m *stubMessage) Header() map[string]interface{} { return nil }
func (m *stubMessage) Queue() string                  { return "test" }
func (m *stubMessage) MessageID() string              { return "msg-1" }
func (m *stubMessage) Redelivered() bool              { return m.count > 1 }
func (m *stubMessage) DeliveryCount() int             { return m.count }

type statusReport struct {
	GameID int64
	Status outcome.Status
}

type fakeReporter struct {
	mu       sync.Mutex
	err      error
	statuses []statusReport
	images   map[int64]outcome.Images
	metadata map[int64]outcome.Metadata
}

func (r *fakeReporter) ReportStatus(_ context.Context, id int64, status outcome.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.statuses = append(r.statuses, statusReport{id, status})
	return nil
}

func (r *fakeReporter) ReportImages(_ context.Context, id int64, images outcome.Images) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.images == nil {
		r.images = map[int64]outcome.Images{}
	}
	r.images[id] = images
	return nil
}

func (r *fakeReporter) ReportMetadata(_ context.Context, id int64, md outcome.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.metadata == nil {
		r.metadata = map[int64]outcome.Metadata{}
	}
	r.metadata[id] = md
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	err     error
	objects map[string][]byte
}

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Bucket() string             { return "catalog-images" }

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewWithCore(core, false), logs
}

func newRecordingTracer(t *testing.T, recorder *tracetest.SpanRecorder) *tracer.Tracer {
	t.Helper()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return tracer.NewWithProvider(provider, logger.NewWithCore(zapcore.NewNopCore(), false), "workers-test")
}
