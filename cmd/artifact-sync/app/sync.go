package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/filtering"
	"github.com/stacklok/artifact-sync/internal/httpclient"
	"github.com/stacklok/artifact-sync/internal/logging"
	"github.com/stacklok/artifact-sync/internal/sources"
	"github.com/stacklok/artifact-sync/internal/status"
	"github.com/stacklok/artifact-sync/internal/sync"
	"github.com/stacklok/artifact-sync/internal/telemetry"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	shutdownTimeout          = 30 * time.Second
)

// syncOptions are the resolved settings of one sync invocation
type syncOptions struct {
	configPath      string
	root            string
	continueOnError bool
	timeout         time.Duration
	retries         uint
	schedule        string
	metricsAddress  string
	statusFile      string
	selection       filtering.Criteria
}

func newSyncCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(logging.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "sync [root]",
		Short: "Bring every configured item up to date",
		Long: `Sync resolves every configured item against its repository and updates the
destination when the remote changed. Relative destinations are resolved
against root, which defaults to the current directory.

Every flag can also be set through an ARTIFACT_SYNC_ environment variable,
for example ARTIFACT_SYNC_CONFIG or ARTIFACT_SYNC_CONTINUE_ON_ERROR.

With --schedule the process stays alive and runs the whole job on a cron
schedule ("*/30 * * * *", "@hourly"); otherwise it runs once and exits
non-zero if any item failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveSyncOptions(v, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSync(ctx, cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to configuration file (YAML format, required)")
	flags.Bool("continue-on-error", false, "Attempt every item even after a failure")
	flags.Duration("timeout", httpclient.DefaultTimeout, "Timeout of a single HTTP request including the body")
	flags.Uint("retries", 0, "Retries for requests failing with a network error, 5xx or 429")
	flags.String("schedule", "", "Cron schedule to keep running on")
	flags.String("metrics-address", "", "Address to serve Prometheus metrics on in scheduled mode")
	flags.String("status-file", "", "Write the run report as YAML to this file")
	flags.StringSlice("include", nil, "Only sync items whose source matches one of these glob patterns")
	flags.StringSlice("exclude", nil, "Skip items whose source matches one of these glob patterns")
	flags.StringSlice("repository", nil, "Only sync items of these repository keys")
	flags.StringSlice("exclude-repository", nil, "Skip items of these repository keys")

	if err := v.BindPFlags(flags); err != nil {
		slog.Error("Failed to bind sync flags", "error", err)
	}

	return cmd
}

// resolveSyncOptions merges flags, environment and the positional root
func resolveSyncOptions(v *viper.Viper, args []string) (*syncOptions, error) {
	opts := &syncOptions{
		configPath:      v.GetString("config"),
		root:            ".",
		continueOnError: v.GetBool("continue-on-error"),
		timeout:         v.GetDuration("timeout"),
		retries:         v.GetUint("retries"),
		schedule:        v.GetString("schedule"),
		metricsAddress:  v.GetString("metrics-address"),
		statusFile:      v.GetString("status-file"),
		selection: filtering.Criteria{
			Include:             v.GetStringSlice("include"),
			Exclude:             v.GetStringSlice("exclude"),
			Repositories:        v.GetStringSlice("repository"),
			ExcludeRepositories: v.GetStringSlice("exclude-repository"),
		},
	}
	if len(args) == 1 {
		opts.root = args[0]
	}

	if opts.configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	if opts.schedule != "" {
		if _, err := cron.ParseStandard(opts.schedule); err != nil {
			return nil, fmt.Errorf("invalid --schedule %q: %w", opts.schedule, err)
		}
	}
	return opts, nil
}

func runSync(ctx context.Context, out io.Writer, opts *syncOptions) error {
	cfg, err := config.LoadConfig(config.WithConfigPath(opts.configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", opts.configPath, "repositories", len(cfg.Repositories), "items", len(cfg.Items))

	var registry *prometheus.Registry
	telemetryOpts := []telemetry.Option{telemetry.WithTelemetryConfig(cfg.Telemetry)}
	if opts.schedule != "" && opts.metricsAddress != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		telemetryOpts = append(telemetryOpts, telemetry.WithPrometheus(registry))
	} else if opts.metricsAddress != "" {
		slog.Warn("--metrics-address only applies with --schedule, ignoring")
	}

	tel, err := telemetry.New(ctx, telemetryOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	client := httpclient.NewClient(
		httpclient.WithTimeout(opts.timeout),
		httpclient.WithRetries(opts.retries),
	)
	driverOpts := []sync.Option{
		sync.WithRoot(opts.root),
		sync.WithContinueOnError(opts.continueOnError),
		sync.WithMetrics(metrics),
		sync.WithTracerProvider(tel.TracerProvider()),
	}
	if !opts.selection.Empty() {
		filter, err := filtering.NewItemFilter(opts.selection)
		if err != nil {
			return err
		}
		driverOpts = append(driverOpts, sync.WithItemFilter(filter))
	}
	driver := sync.NewDriver(sources.NewResolverFactory(sources.Dependencies{HTTP: client}), driverOpts...)

	job := func(ctx context.Context) error {
		report, err := driver.Run(ctx, cfg)
		if report != nil {
			if werr := report.WriteTable(out); werr != nil {
				slog.Warn("Failed to print run report", "error", werr)
			}
			if opts.statusFile != "" {
				if serr := status.SaveReport(opts.statusFile, report); serr != nil {
					slog.Error("Failed to save run report", "path", opts.statusFile, "error", serr)
				}
			}
		}
		return err
	}

	if opts.schedule == "" {
		return job(ctx)
	}
	return runScheduled(ctx, opts, registry, job)
}

// runScheduled runs job once immediately and then on the cron schedule until
// ctx is cancelled. A run that is still going when the next one is due
// causes that tick to be skipped.
func runScheduled(ctx context.Context, opts *syncOptions, registry *prometheus.Registry, job func(context.Context) error) error {
	if registry != nil {
		srv := startMetricsServer(opts.metricsAddress, registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("Metrics server forced to shutdown", "error", err)
			}
		}()
	}

	run := func() {
		if err := job(ctx); err != nil {
			slog.Error("Sync run failed", "error", err)
		}
	}

	logger := cronLogger{}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := scheduler.AddFunc(opts.schedule, run); err != nil {
		return fmt.Errorf("invalid --schedule %q: %w", opts.schedule, err)
	}

	slog.Info("Running on schedule", "schedule", opts.schedule)
	run()
	scheduler.Start()

	<-ctx.Done()
	slog.Info("Stopping scheduler, waiting for a running sync to finish")
	<-scheduler.Stop().Done()
	return nil
}

func startMetricsServer(address string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		slog.Info("Metrics server listening", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}

// cronLogger routes scheduler events to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append(keysAndValues, "error", err)...)
}
