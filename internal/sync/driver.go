package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/filtering"
	"github.com/stacklok/artifact-sync/internal/otel"
	"github.com/stacklok/artifact-sync/internal/sources"
	"github.com/stacklok/artifact-sync/internal/status"
	"github.com/stacklok/artifact-sync/internal/telemetry"
)

const (
	// LockFileName is created in the root for the duration of a run
	LockFileName = ".artifact-sync.lock"

	tracerName = "github.com/stacklok/artifact-sync/sync"
)

// Driver runs every configured item once
type Driver interface {
	// Run syncs all items of cfg and returns the per-item report. The report
	// is non-nil whenever the configuration could be dispatched, including
	// when an item failed.
	Run(ctx context.Context, cfg *config.Config) (*status.Report, error)
}

// Option configures a Driver
type Option func(*defaultDriver)

// WithRoot sets the directory relative destinations are resolved against.
// Defaults to the working directory.
func WithRoot(root string) Option {
	return func(d *defaultDriver) {
		d.root = root
	}
}

// WithContinueOnError attempts every item even after a failure, in addition
// to the configuration's sync.continueOnError
func WithContinueOnError(continueOnError bool) Option {
	return func(d *defaultDriver) {
		d.continueOnError = continueOnError
	}
}

// WithMetrics records item and run metrics
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(d *defaultDriver) {
		d.metrics = m
	}
}

// WithTracerProvider emits a span per run and per item
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *defaultDriver) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithItemFilter restricts a run to the items the filter selects
func WithItemFilter(f filtering.ItemFilter) Option {
	return func(d *defaultDriver) {
		d.filter = f
	}
}

// withoutLock disables the root lock file
func withoutLock() Option {
	return func(d *defaultDriver) {
		d.lock = false
	}
}

// defaultDriver is the default implementation of Driver
type defaultDriver struct {
	factory         sources.ResolverFactory
	root            string
	continueOnError bool
	lock            bool
	filter          filtering.ItemFilter
	metrics         *telemetry.SyncMetrics
	tracer          trace.Tracer
}

// NewDriver creates a Driver dispatching items through factory
func NewDriver(factory sources.ResolverFactory, opts ...Option) Driver {
	d := &defaultDriver{
		factory: factory,
		root:    ".",
		lock:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run syncs all items of cfg in order
func (d *defaultDriver) Run(ctx context.Context, cfg *config.Config) (*status.Report, error) {
	resolvers, err := d.dispatch(cfg)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", d.root, err)
	}

	if d.lock {
		unlock, err := lockRoot(root)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	report := status.NewReport(root)
	continueOnError := d.continueOnError || cfg.Sync.ContinueOnError

	ctx, span := otel.StartSpan(ctx, d.tracer, "sync.run",
		trace.WithAttributes(otel.RunAttributes(report.RunID, len(cfg.Items))...))
	defer span.End()

	slog.InfoContext(ctx, "Starting sync run",
		"run_id", report.RunID, "root", root, "items", len(cfg.Items), "continue_on_error", continueOnError)

	selected := d.selectItems(cfg)

	var result *multierror.Error
	for n, i := range selected {
		item := &cfg.Items[i]
		repo, _ := cfg.Repository(item.Repository)

		itemStatus, err := d.syncItem(ctx, i, item, repo, resolvers[repo.Type], root)
		report.Add(itemStatus)
		if err == nil {
			continue
		}

		result = multierror.Append(result, err)
		if !continueOnError {
			d.skipRemaining(report, cfg, selected[n+1:], root)
			break
		}
	}

	report.Finish()
	runErr := result.ErrorOrNil()
	if runErr != nil && result.Len() == 1 {
		runErr = result.Errors[0]
	}

	d.metrics.RecordRun(ctx, report.Duration(), runErr == nil)
	otel.RecordError(span, runErr)

	slog.InfoContext(ctx, "Sync run finished",
		"run_id", report.RunID,
		"downloaded", report.Count(status.OutcomeDownloaded),
		"synced", report.Count(status.OutcomeSynced),
		"up_to_date", report.Count(status.OutcomeUpToDate),
		"failed", report.Failed(),
		"skipped", report.Count(status.OutcomeSkipped),
		"duration", report.Duration())

	return report, runErr
}

// dispatch maps every repository type referenced by an item to its resolver.
// Nothing is fetched when a reference or type cannot be served.
func (d *defaultDriver) dispatch(cfg *config.Config) (map[string]sources.Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	resolvers := make(map[string]sources.Resolver)
	for i := range cfg.Items {
		item := &cfg.Items[i]
		repo, ok := cfg.Repository(item.Repository)
		if !ok {
			return nil, &ItemError{
				Index:      i,
				Source:     item.Source,
				Repository: item.Repository,
				Err:        fmt.Errorf("repository %q is not defined", item.Repository),
			}
		}
		if _, ok := resolvers[repo.Type]; ok {
			continue
		}

		resolver, err := d.factory.CreateResolver(repo.Type)
		if err != nil {
			return nil, fmt.Errorf("repository %q: %w", item.Repository, err)
		}
		resolvers[repo.Type] = resolver
	}
	return resolvers, nil
}

// syncItem runs one item and converts the outcome into its status entry
func (d *defaultDriver) syncItem(
	ctx context.Context,
	index int,
	item *config.ItemConfig,
	repo *config.RepositoryConfig,
	resolver sources.Resolver,
	root string,
) (status.ItemStatus, error) {
	target := *item
	target.Destination = destinationPath(root, item.Destination)

	itemStatus := status.ItemStatus{
		Index:       index,
		Repository:  item.Repository,
		Type:        repo.Type,
		Source:      item.Source,
		Destination: target.Destination,
	}

	ctx, span := otel.StartSpan(ctx, d.tracer, "sync.item",
		trace.WithAttributes(otel.ItemAttributes(index, item.Repository, repo.Type, item.Source, target.Destination)...))
	defer span.End()

	logger := slog.With("index", index, "source", item.Source, "repository", item.Repository, "type", repo.Type)
	logger.InfoContext(ctx, "Updating item", "url", repo.URL, "destination", target.Destination)

	start := time.Now()
	result, err := resolver.Sync(ctx, &target, repo)
	itemStatus.Duration = time.Since(start)

	if err != nil {
		itemErr := &ItemError{Index: index, Source: item.Source, Repository: item.Repository, Err: err}
		itemStatus.Outcome = status.OutcomeFailed
		itemStatus.Error = err.Error()

		otel.RecordError(span, err)
		d.metrics.RecordItem(ctx, repo.Type, string(status.OutcomeFailed), itemStatus.Duration)
		logger.ErrorContext(ctx, "Item failed", "error", err, "duration", itemStatus.Duration)
		return itemStatus, itemErr
	}

	itemStatus.Outcome = outcomeOf(result.Action)
	itemStatus.URL = result.URL
	itemStatus.Version = result.Version
	itemStatus.Bytes = result.Bytes

	span.SetAttributes(otel.ResultAttributes(string(result.Action), result.URL, result.Version, result.Bytes)...)

	d.metrics.RecordItem(ctx, repo.Type, string(itemStatus.Outcome), itemStatus.Duration)
	if result.Action == sources.ActionDownloaded {
		d.metrics.RecordDownload(ctx, repo.Type, result.Bytes)
	}

	if itemStatus.Outcome == status.OutcomeUpToDate {
		logger.InfoContext(ctx, "Item up to date", "url", result.URL, "duration", itemStatus.Duration)
	} else {
		logger.InfoContext(ctx, "Item updated",
			"action", result.Action, "url", result.URL, "version", result.Version,
			"bytes", result.Bytes, "duration", itemStatus.Duration)
	}
	return itemStatus, nil
}

// selectItems returns the indices of the items this run processes
func (d *defaultDriver) selectItems(cfg *config.Config) []int {
	if d.filter != nil {
		return d.filter.Select(cfg.Items)
	}
	all := make([]int, len(cfg.Items))
	for i := range all {
		all[i] = i
	}
	return all
}

// skipRemaining records the items an aborted run never reached
func (*defaultDriver) skipRemaining(report *status.Report, cfg *config.Config, remaining []int, root string) {
	for _, i := range remaining {
		item := &cfg.Items[i]
		itemStatus := status.ItemStatus{
			Index:       i,
			Repository:  item.Repository,
			Source:      item.Source,
			Destination: destinationPath(root, item.Destination),
			Outcome:     status.OutcomeSkipped,
		}
		if repo, ok := cfg.Repository(item.Repository); ok {
			itemStatus.Type = repo.Type
		}
		report.Add(itemStatus)
	}
}

// destinationPath resolves a destination against root unless it is absolute
func destinationPath(root, dest string) string {
	if filepath.IsAbs(dest) {
		return filepath.Clean(dest)
	}
	return filepath.Join(root, dest)
}

func outcomeOf(action sources.Action) status.Outcome {
	switch action {
	case sources.ActionDownloaded:
		return status.OutcomeDownloaded
	case sources.ActionSynced:
		return status.OutcomeSynced
	default:
		return status.OutcomeUpToDate
	}
}

// lockRoot takes the root lock without waiting
func lockRoot(root string) (func(), error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root %s: %w", root, err)
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, lock.Path())
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release lock", "path", lock.Path(), "error", err)
		}
	}, nil
}
