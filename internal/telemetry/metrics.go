package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/stacklok/artifact-sync/sync"
)

// SyncMetrics holds the OpenTelemetry instruments for sync runs
type SyncMetrics struct {
	itemDuration  metric.Float64Histogram
	itemsTotal    metric.Int64Counter
	downloads     metric.Int64Counter
	downloadBytes metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	itemDuration, err := meter.Float64Histogram(
		"artifact_sync_item_duration_seconds",
		metric.WithDescription("Duration of a single item sync in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	itemsTotal, err := meter.Int64Counter(
		"artifact_sync_items_total",
		metric.WithDescription("Number of items processed by outcome"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	downloads, err := meter.Int64Counter(
		"artifact_sync_downloads_total",
		metric.WithDescription("Number of artifact downloads materialized"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, err
	}

	downloadBytes, err := meter.Int64Counter(
		"artifact_sync_download_bytes_total",
		metric.WithDescription("Bytes written by artifact downloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"artifact_sync_run_duration_seconds",
		metric.WithDescription("Duration of a full sync run in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		itemDuration:  itemDuration,
		itemsTotal:    itemsTotal,
		downloads:     downloads,
		downloadBytes: downloadBytes,
		runDuration:   runDuration,
	}, nil
}

// RecordItem records the duration and outcome of one item
func (m *SyncMetrics) RecordItem(ctx context.Context, resolver, outcome string, duration time.Duration) {
	if m == nil || m.itemDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("resolver", resolver),
		attribute.String("outcome", outcome),
	)

	m.itemDuration.Record(ctx, duration.Seconds(), attrs)
	m.itemsTotal.Add(ctx, 1, attrs)
}

// RecordDownload records a completed download of the given size
func (m *SyncMetrics) RecordDownload(ctx context.Context, resolver string, bytes int64) {
	if m == nil || m.downloads == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("resolver", resolver))

	m.downloads.Add(ctx, 1, attrs)
	if bytes > 0 {
		m.downloadBytes.Add(ctx, bytes, attrs)
	}
}

// RecordRun records the duration of a full run
func (m *SyncMetrics) RecordRun(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}
