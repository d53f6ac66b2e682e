package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T, tracing bool) (*LoggerClient, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithCore(core, tracing), logs
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		Debug:     zap.DebugLevel,
		Info:      zap.InfoLevel,
		Warning:   zap.WarnLevel,
		Error:     zap.ErrorLevel,
		"verbose": zap.InfoLevel,
		"":        zap.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(Config{Level: Warning, ServiceName: "image-processor"})

	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "timestamp", cfg.EncoderConfig.TimeKey)
	assert.Equal(t, "image-processor", cfg.InitialFields["service"])
	assert.Contains(t, cfg.InitialFields, "pid")
	assert.Equal(t, zap.WarnLevel, cfg.Level.Level())
}

func TestFieldsAndError(t *testing.T) {
	log, logs := newObservedLogger(t, false)

	log.Warn("status callback failed", errors.New("503"), map[string]interface{}{
		"game_id": 42,
		"status":  "completed",
	}, map[string]interface{}{
		"status": "failed",
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "503", fields["error"])
	assert.EqualValues(t, 42, fields["game_id"])
	assert.Equal(t, "failed", fields["status"])
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	t.Run("enabled", func(t *testing.T) {
		log, logs := newObservedLogger(t, true)
		log.InfoWithContext(ctx, "delivery handled", nil, map[string]interface{}{"queue": "game_events"})

		fields := logs.All()[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
		assert.Equal(t, "game_events", fields["queue"])
	})

	t.Run("disabled", func(t *testing.T) {
		log, logs := newObservedLogger(t, false)
		log.ErrorWithContext(ctx, "delivery failed", nil)

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("no span", func(t *testing.T) {
		log, logs := newObservedLogger(t, true)
		log.DebugWithContext(context.Background(), "idle", nil)

		assert.NotContains(t, logs.All()[0].ContextMap(), "span_id")
	})
}
