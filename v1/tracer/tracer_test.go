package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/retro-catalog/catalog-events/v1/logger"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := newTracer(provider, logger.NewWithCore(zapcore.NewNopCore(), false), "test")
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, recorder
}

func TestSpanAttributesAndErrors(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	_, span := tr.StartSpan(context.Background(), "process image")
	tr.SetAttributes(span, map[string]interface{}{
		"game.id":   42,
		"image.url": "https://img.example/42.png",
		"resized":   true,
		"tags":      []string{"retro", "arcade"},
	})
	tr.RecordErrorOnSpan(span, nil)
	tr.RecordErrorOnSpan(span, errors.New("decode failed"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "process image", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Contains(t, got.Attributes(), attribute.Int("game.id", 42))
	assert.Contains(t, got.Attributes(), attribute.StringSlice("tags", []string{"retro", "arcade"}))
	assert.Len(t, got.Events(), 1)
}

func TestSampleRatioBounds(t *testing.T) {
	assert.Equal(t, 0.0, sampleRatio(-1))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.25, sampleRatio(0.25))
}

func TestNewClientWithoutExport(t *testing.T) {
	tr, err := NewClient(Config{ServiceName: "event-publisher", AppEnv: "test", SampleRatio: 1}, logger.NewWithCore(zapcore.NewNopCore(), false))
	require.NoError(t, err)
	assert.NoError(t, tr.Shutdown(context.Background()))
}
