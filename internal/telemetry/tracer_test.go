package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/artifact-sync/internal/versions"
)

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		config     *Config
		expectNoOp bool
	}{
		{name: "nil config", config: nil, expectNoOp: true},
		{name: "telemetry disabled", config: &Config{Tracing: &TracingConfig{Enabled: true}}, expectNoOp: true},
		{name: "no tracing section", config: &Config{Enabled: true}, expectNoOp: true},
		{name: "tracing disabled", config: &Config{Enabled: true, Tracing: &TracingConfig{}}, expectNoOp: true},
		{
			name:   "tracing enabled",
			config: &Config{Enabled: true, Endpoint: "127.0.0.1:4318", Insecure: true, Tracing: &TracingConfig{Enabled: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tp, err := NewTracerProvider(ctx, tt.config)
			require.NoError(t, err)

			if tt.expectNoOp {
				assert.IsType(t, noop.TracerProvider{}, tp)
				return
			}
			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok, "expected SDK tracer provider")
			require.NoError(t, sdkTP.Shutdown(ctx))
		})
	}
}

func TestNewSampler(t *testing.T) {
	t.Parallel()

	// every run is sampled unless configured otherwise
	assert.Contains(t, newSampler(&TracingConfig{Enabled: true}).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(&TracingConfig{Enabled: true, Sampling: 0.25}).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, newSampler(&TracingConfig{Enabled: true}).Description(), "ParentBased")
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	res, err := newResource(context.Background(), cfg.GetServiceName(), cfg.GetServiceVersion())
	require.NoError(t, err)

	set := res.Set()
	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "artifact-sync", name.AsString())

	version, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, versions.GetVersionInfo().Version, version.AsString())

	instance, ok := set.Value(semconv.ServiceInstanceIDKey)
	require.True(t, ok)
	assert.Equal(t, instanceID, instance.AsString())
}
