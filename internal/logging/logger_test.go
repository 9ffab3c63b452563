package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "info", want: zapcore.InfoLevel},
		{in: "DEBUG", want: zapcore.DebugLevel},
		{in: "trace", want: zapcore.DebugLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "bogus", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFromEnv_PrefixWins(t *testing.T) {
	t.Setenv("ARTIFACT_SYNC_LOG_LEVEL", "error")
	t.Setenv("LOG_LEVEL", "debug")

	assert.Equal(t, zapcore.ErrorLevel, LevelFromEnv())
}

func TestLevelFromEnv_FallsBack(t *testing.T) {
	t.Setenv("ARTIFACT_SYNC_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "debug")

	assert.Equal(t, zapcore.DebugLevel, LevelFromEnv())
}

func TestNewZapLogger(t *testing.T) {
	t.Parallel()

	logger, err := NewZapLogger(zapcore.InfoLevel)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	debug, err := NewZapLogger(zapcore.DebugLevel)
	require.NoError(t, err)
	assert.True(t, debug.Core().Enabled(zap.DebugLevel))
}

func TestSlogFromZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sl := SlogFromZap(zap.New(core))

	sl.Warn("item failed", slog.String("source", "org.example:widget"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "item failed", entry.Message)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "org.example:widget", entry.ContextMap()["source"])
}

func TestSlogFromZap_InjectsTraceIDs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sl := SlogFromZap(zap.New(core))

	tp := trace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	sl.InfoContext(ctx, "with span")
	sl.Info("without span")

	require.Equal(t, 2, logs.Len())
	withSpan := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), withSpan["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), withSpan["span_id"])
	assert.NotContains(t, logs.All()[1].ContextMap(), "trace_id")
}

func TestSetupWithLevel_ReplacesDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, err := SetupWithLevel(zapcore.InfoLevel)
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	first := current

	flush, err := SetupWithLevel(zapcore.DebugLevel)
	require.NoError(t, err)
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	assert.NotSame(t, first, current)

	flush()
	Flush()
}
