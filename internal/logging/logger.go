// Package logging builds the process-wide slog logger on top of a zap core.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the environment variable prefix read for LOG_LEVEL
const EnvPrefix = "ARTIFACT_SYNC"

// LevelFromEnv reads ARTIFACT_SYNC_LOG_LEVEL and falls back to LOG_LEVEL.
// Unknown or empty values resolve to info.
func LevelFromEnv() zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	return ParseLevel(levelStr)
}

// ParseLevel maps a level name onto a zap level
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewZapLogger creates a JSON zap logger writing to stderr at the given level.
// Debug level switches to the development console encoder.
func NewZapLogger(level zapcore.Level) (*zap.Logger, error) {
	var cfg zap.Config
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	// stdout is reserved for command output such as the summary table
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// SlogFromZap creates an *slog.Logger that writes to the zap core and tags
// each record with the active trace and span IDs.
func SlogFromZap(z *zap.Logger) *slog.Logger {
	return slog.New(&traceHandler{Handler: zapslog.NewHandler(z.Core(), zapslog.WithCaller(true))})
}

// traceHandler injects OpenTelemetry trace_id and span_id into every record
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

var (
	mu      sync.Mutex
	current *zap.Logger
)

// Setup installs a zap-backed slog logger at the level from the environment
// as the default and returns a flush function the caller should defer.
func Setup() (func(), error) {
	return SetupWithLevel(LevelFromEnv())
}

// SetupWithLevel installs a zap-backed slog logger at level as the default.
// The logger it replaces is synced first. The returned function flushes
// whichever logger is installed when it is called.
func SetupWithLevel(level zapcore.Level) (func(), error) {
	z, err := NewZapLogger(level)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	prev := current
	current = z
	mu.Unlock()
	if prev != nil {
		_ = prev.Sync()
	}

	slog.SetDefault(SlogFromZap(z))
	return Flush, nil
}

// Flush syncs the logger installed by the last Setup or SetupWithLevel call
func Flush() {
	mu.Lock()
	z := current
	mu.Unlock()
	if z != nil {
		_ = z.Sync()
	}
}
