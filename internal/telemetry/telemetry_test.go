package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		opts          []Option
		sdkTracer     bool
		sdkMeter      bool
		errorContains string
	}{
		{name: "no config"},
		{name: "disabled config", opts: []Option{WithTelemetryConfig(&Config{Tracing: &TracingConfig{Enabled: true}})}},
		{
			name: "enabled without signals",
			opts: []Option{WithTelemetryConfig(&Config{Enabled: true, Tracing: &TracingConfig{}, Metrics: &MetricsConfig{}})},
		},
		{
			name:          "invalid sampling",
			opts:          []Option{WithTelemetryConfig(&Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}})},
			errorContains: "invalid telemetry configuration",
		},
		{
			name:     "scheduled mode with prometheus only",
			opts:     []Option{WithPrometheus(prom.NewRegistry())},
			sdkMeter: true,
		},
		{
			name: "otlp traces and metrics",
			opts: []Option{WithTelemetryConfig(&Config{
				Enabled:  true,
				Endpoint: "127.0.0.1:4318",
				Insecure: true,
				Tracing:  &TracingConfig{Enabled: true},
				Metrics:  &MetricsConfig{Enabled: true},
			})},
			sdkTracer: true,
			sdkMeter:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tel, err := New(ctx, tt.opts...)
			if tt.errorContains != "" {
				require.ErrorContains(t, err, tt.errorContains)
				return
			}
			require.NoError(t, err)

			_, isSDKTracer := tel.TracerProvider().(*sdktrace.TracerProvider)
			assert.Equal(t, tt.sdkTracer, isSDKTracer)
			_, isSDKMeter := tel.MeterProvider().(*sdkmetric.MeterProvider)
			assert.Equal(t, tt.sdkMeter, isSDKMeter)

			assert.NotNil(t, tel.Tracer("sync"))
			assert.NotNil(t, tel.Meter("sync"))

			// shutdown is safe to repeat
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			_ = tel.Shutdown(shutdownCtx)
			_ = tel.Shutdown(shutdownCtx)
		})
	}
}

func TestNewLocalTelemetry(t *testing.T) {
	t.Parallel()

	t.Run("without registerer both providers are no-op", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		tel, err := newLocalTelemetry(ctx, nil)
		require.NoError(t, err)

		assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
		assert.IsType(t, noop.MeterProvider{}, tel.MeterProvider())
		require.NoError(t, tel.Shutdown(ctx))
	})

	t.Run("registerer receives sync metrics", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		reg := prom.NewRegistry()

		tel, err := newLocalTelemetry(ctx, reg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = tel.Shutdown(ctx) })

		assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
		_, ok := tel.MeterProvider().(*sdkmetric.MeterProvider)
		require.True(t, ok, "expected SDK meter provider")

		metrics, err := NewSyncMetrics(tel.MeterProvider())
		require.NoError(t, err)
		metrics.RecordRun(ctx, 3*time.Second, true)

		families, err := reg.Gather()
		require.NoError(t, err)
		var names []string
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.Contains(t, strings.Join(names, ","), "artifact_sync_run_duration_seconds")
	})
}

func TestTelemetry_ShutdownFlushesRunSpans(t *testing.T) {
	t.Parallel()

	var traceExports atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			traceExports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	tel, err := New(ctx, WithTelemetryConfig(&Config{
		Enabled:  true,
		Endpoint: strings.TrimPrefix(server.URL, "http://"),
		Insecure: true,
		Tracing:  &TracingConfig{Enabled: true},
	}))
	require.NoError(t, err)

	_, span := tel.Tracer("test").Start(ctx, "sync.run")
	span.End()

	// a one-shot run exits right after the last item; shutdown must export it
	require.NoError(t, tel.Shutdown(ctx))
	assert.Equal(t, int32(1), traceExports.Load())
}
