package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultSpanBatchTimeout bounds how long finished item spans wait before
// export. A one-shot run flushes the rest on Shutdown.
const DefaultSpanBatchTimeout = 2 * time.Second

// NewTracerProvider creates the tracer provider for sync runs from cfg.
// It returns a no-op provider when cfg is nil or telemetry or tracing is
// disabled. The caller is responsible for calling Shutdown on an SDK provider.
func NewTracerProvider(ctx context.Context, cfg *Config) (trace.TracerProvider, error) {
	if cfg == nil || !cfg.Enabled || cfg.Tracing == nil || !cfg.Tracing.Enabled {
		slog.Debug("Tracing disabled, using no-op tracer provider")
		return noop.NewTracerProvider(), nil
	}

	res, err := newResource(ctx, cfg.GetServiceName(), cfg.GetServiceVersion())
	if err != nil {
		return nil, err
	}

	exporter, err := createOTLPTracingExporter(ctx, cfg.GetEndpoint(), cfg.GetInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(DefaultSpanBatchTimeout)),
		sdktrace.WithSampler(newSampler(cfg.Tracing)),
	)

	// otelhttp picks up the global provider and propagator for fetch spans
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.GetInsecure() {
		slog.Warn("Tracing configured with insecure connection, spans are sent over unencrypted HTTP")
	}

	slog.Info("Tracing initialized",
		"endpoint", cfg.GetEndpoint(),
		"sampling_ratio", cfg.Tracing.GetSampling(),
		"insecure", cfg.GetInsecure(),
	)

	return tp, nil
}

// newSampler samples whole runs: the ratio decides at the run span and item
// and fetch spans follow their parent.
func newSampler(tc *TracingConfig) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.GetSampling()))
}

// createOTLPTracingExporter creates an OTLP HTTP trace exporter
func createOTLPTracingExporter(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
	}

	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return exporter, nil
}
