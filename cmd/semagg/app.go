package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semagg/aggregator"
	"github.com/c360studio/semagg/config"
	"github.com/c360studio/semagg/graph"
	"github.com/c360studio/semagg/model"
	"github.com/c360studio/semagg/storage"
)

// App wires configuration, models, the aggregated view and the optional NATS
// and metrics integrations.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *model.Registry
	files    map[string]*model.Memory

	metricsRegistry *metric.MetricsRegistry
	metrics         *aggregator.Metrics

	view *aggregator.View

	natsClient *natsclient.Client
	snapshots  *storage.SnapshotStore
}

// NewApp loads every configured model file into a fresh registry.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		cfg:      cfg,
		logger:   logger,
		registry: model.NewRegistry(),
	}

	files, err := model.LoadFiles(app.registry, cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	app.files = files
	model.InitGlobal(app.registry)
	logger.Debug("Models loaded", "files", len(files), "models", strings.Join(app.registry.ListModels(), ","))

	if cfg.Metrics.Enabled {
		app.metricsRegistry = metric.NewMetricsRegistry()
		app.metrics, err = aggregator.NewMetrics(app.metricsRegistry)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return app, nil
}

// Registry returns the model registry.
func (a *App) Registry() *model.Registry { return a.registry }

// Composition returns the configured composition, or a merge of every loaded
// model when no composition file is configured.
func (a *App) Composition() (aggregator.Configuration, error) {
	if a.cfg.Composition.Path != "" {
		return aggregator.LoadConfiguration(a.cfg.Composition.Path)
	}
	merge := &aggregator.MergeConfig{}
	for _, id := range a.registry.ListModels() {
		merge.Models = append(merge.Models, aggregator.ModelRef(id))
	}
	return merge, nil
}

// BuildView builds the aggregated view. Model references that no file
// provides are looked up as snapshots when NATS is connected.
func (a *App) BuildView(ctx context.Context) (*aggregator.View, error) {
	cfg, err := a.Composition()
	if err != nil {
		return nil, err
	}
	if err := a.resolveSnapshots(ctx, cfg); err != nil {
		return nil, err
	}

	view, err := aggregator.NewBuilder(a.registry, a.logger).BuildView(cfg,
		aggregator.WithLogger(a.logger),
		aggregator.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	a.view = view
	a.logger.Info("View ready", "entities", view.Len())
	return view, nil
}

func (a *App) resolveSnapshots(ctx context.Context, cfg aggregator.Configuration) error {
	for _, id := range aggregator.ModelIDs(cfg) {
		if _, err := a.registry.Lookup(id); err == nil {
			continue
		}
		if a.snapshots == nil {
			continue // Builder reports the unknown model
		}
		m, err := a.snapshots.LoadModel(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load snapshot %s: %w", id, err)
		}
		a.registry.Register(m)
		a.logger.Debug("Using snapshot for model", "model", id, "entities", len(m.Entities()))
	}
	return nil
}

// ConnectNATS connects to the configured server and opens the snapshot
// store. Without a configured URL it does nothing.
func (a *App) ConnectNATS(ctx context.Context) error {
	url := a.cfg.NATS.URL
	if url == "" {
		return nil
	}

	a.logger.Info("Connecting to NATS", "url", url)
	client, err := natsclient.NewClient(url,
		natsclient.WithName("semagg"),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, a.cfg.NATS.Timeout)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return wrapNATSError(err, url)
	}
	a.natsClient = client

	js, err := client.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	store, err := storage.NewSnapshotStore(ctx, js, a.cfg.NATS.SnapshotBucket)
	if err != nil {
		return err
	}
	a.snapshots = store

	a.logger.Info("Connected to NATS", "url", url)
	return nil
}

// Snapshots returns the snapshot store, or nil without NATS.
func (a *App) Snapshots() *storage.SnapshotStore { return a.snapshots }

// NewPublisher returns a graph publisher, or nil without NATS.
func (a *App) NewPublisher() *graph.Publisher {
	if a.natsClient == nil {
		return nil
	}
	return graph.NewPublisher(a.natsClient,
		graph.WithLogger(a.logger),
		graph.WithSubjects(a.cfg.NATS.IngestSubject, a.cfg.NATS.RemoveSubject),
	)
}

// ServeMetrics exposes /metrics until ctx is done. Without metrics enabled it
// returns immediately.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.metricsRegistry == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metricsRegistry.PrometheusRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("Serving metrics", "addr", a.cfg.Metrics.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Close releases the view and the NATS connection.
func (a *App) Close(ctx context.Context) {
	if a.view != nil {
		a.view.Close()
		a.view = nil
	}
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Warn("Failed to close NATS client", "error", err)
		}
		a.natsClient = nil
	}
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	// Check for common connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Set SEMAGG_NATS_URL or nats.url to point to your NATS server,
or leave both empty to run without NATS.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
