// Package main provides the semagg binary entry point.
// Semagg aggregates vocabulary models and application profiles into a single
// live view that can be inspected, searched, exported to RDF and published to
// the semstreams knowledge graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/semagg/aggregator"
	"github.com/c360studio/semagg/composition"
	"github.com/c360studio/semagg/config"
	"github.com/c360studio/semagg/entity"
	"github.com/c360studio/semagg/export"
	"github.com/c360studio/semagg/model"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semagg"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath  string
	composition string
	models      []string
	logLevel    string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Semantic vocabulary aggregation engine",
		Long: `Semagg composes vocabulary models, application profiles and cached
snapshots into one aggregated view.

It provides:
- Merged views over any number of models with provenance
- Application profile overlays with write gating
- Snapshot fallback for unavailable models
- RDF export and knowledge graph publishing`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&flags.composition, "composition", "", "Composition file (overrides config)")
	pf.StringSliceVarP(&flags.models, "models", "m", nil, "Model file globs (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		showCmd(flags),
		searchCmd(flags),
		exportCmd(flags),
		watchCmd(flags),
		snapshotCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup loads configuration, applies flag overrides and creates the app.
func setup(flags *globalFlags) (*App, error) {
	bootstrap := newLogger("warn")
	loader := config.NewLoader(bootstrap)

	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = loader.LoadFile(flags.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.composition != "" {
		cfg.Composition.Path = flags.composition
	}
	if len(flags.models) > 0 {
		cfg.Models = flags.models
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	return NewApp(cfg, logger)
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// withView runs fn against a freshly built view and tears everything down.
func withView(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, app *App, view *aggregator.View) error) error {
	app, err := setup(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer app.Close(ctx)

	if err := app.ConnectNATS(ctx); err != nil {
		return err
	}
	view, err := app.BuildView(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, app, view)
}

func showCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the aggregated entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(cmd, flags, func(_ context.Context, _ *App, view *aggregator.View) error {
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), view.Entities())
				}
				return writeTable(cmd.OutOrStdout(), sortedWrappers(view.Entities()))
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print wrappers as JSON")
	return cmd
}

func searchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search classes and class profiles by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withView(cmd, flags, func(_ context.Context, _ *App, view *aggregator.View) error {
				results := view.Search(query)
				if len(results) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No matches for %q\n", query)
					return nil
				}
				wrappers := make([]*composition.Wrapper, len(results))
				for i, r := range results {
					wrappers[i] = r.Wrapper
				}
				return writeTable(cmd.OutOrStdout(), wrappers)
			})
		},
	}
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the aggregated view as RDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(cmd, flags, func(_ context.Context, app *App, view *aggregator.View) error {
				if format == "" {
					format = app.cfg.Export.Format
				}
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}

				exporter := export.NewExporter()
				exporter.AddAll(view)
				out, err := exporter.Export(f)
				if err != nil {
					return err
				}

				if output == "" {
					_, err = io.WriteString(cmd.OutOrStdout(), out)
					return err
				}
				if err := os.WriteFile(output, []byte(out), 0644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				app.logger.Info("Exported view", "path", output, "format", f, "entities", view.Len())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the view live, reloading model files and publishing changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withView(cmd, flags, func(ctx context.Context, app *App, view *aggregator.View) error {
				return runWatch(ctx, app, view)
			})
		},
	}
}

// runWatch owns the view: file reloads are applied on this goroutine, so the
// composition tree is never touched concurrently.
func runWatch(ctx context.Context, app *App, view *aggregator.View) error {
	logger := app.logger

	if publisher := app.NewPublisher(); publisher != nil {
		if err := publisher.PublishSnapshot(ctx, view.Entities()); err != nil {
			return fmt.Errorf("publish initial view: %w", err)
		}
		publisher.Start(ctx, view)
		defer func() {
			publisher.Stop()
			logger.Info("Graph publisher stopped",
				"published", publisher.Published(),
				"dropped", publisher.Dropped(),
				"failed", publisher.Failed())
		}()
	}

	unsubscribe := view.Subscribe(func(updated map[string]*composition.Wrapper, removed []string) {
		logger.Info("View changed", "updated", len(updated), "removed", len(removed), "entities", view.Len())
	})
	defer unsubscribe()

	go func() {
		if err := app.ServeMetrics(ctx); err != nil {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	if !app.cfg.Watch.Enabled || len(app.files) == 0 {
		logger.Info("File watching disabled, waiting for shutdown")
		<-ctx.Done()
		return nil
	}

	paths := make([]string, 0, len(app.files))
	for path := range app.files {
		paths = append(paths, path)
	}
	watcher, err := model.NewFileWatcher(paths, app.cfg.Watch.Debounce, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			m, known := app.files[ev.Path]
			if !known {
				continue
			}
			if err := model.Reload(m, ev); err != nil {
				logger.Warn("Failed to reload model", "path", ev.Path, "error", err)
				continue
			}
			logger.Debug("Model reloaded", "model", m.ID(), "path", ev.Path)
		}
	}
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage model snapshots in NATS KV",
	}

	var name string
	save := &cobra.Command{
		Use:   "save <model-id>",
		Short: "Snapshot a loaded model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, flags, func(ctx context.Context, app *App) error {
				m, err := app.Registry().Lookup(args[0])
				if err != nil {
					return err
				}
				if name == "" {
					name = args[0] + "-snapshot"
				}
				snap, err := app.Snapshots().Save(ctx, name, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (model %s, %d entities, revision %s)\n",
					snap.Name, snap.ModelID, len(snap.Entities), snap.Revision)
				return nil
			})
		},
	}
	save.Flags().StringVar(&name, "name", "", "Snapshot name (default <model-id>-snapshot)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, flags, func(ctx context.Context, app *App) error {
				snaps, err := app.Snapshots().List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tMODEL\tENTITIES\tCREATED")
				for _, s := range snaps {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.ModelID, len(s.Entities), s.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(save, list)
	return cmd
}

func withSnapshots(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, app *App) error) error {
	app, err := setup(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer app.Close(ctx)

	if err := app.ConnectNATS(ctx); err != nil {
		return err
	}
	if app.Snapshots() == nil {
		return fmt.Errorf("snapshots require NATS: set nats.url or SEMAGG_NATS_URL")
	}
	return fn(ctx, app)
}

func sortedWrappers(m map[string]*composition.Wrapper) []*composition.Wrapper {
	out := make([]*composition.Wrapper, 0, len(m))
	for _, w := range m {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Entity.Head().ID < out[j].Entity.Head().ID
	})
	return out
}

func writeTable(w io.Writer, wrappers []*composition.Wrapper) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tSOURCES\tACCESS")
	for _, wr := range wrappers {
		head := wr.Entity.Head()
		sources := make([]string, len(wr.Sources))
		for i, s := range wr.Sources {
			sources[i] = s.ModelID
		}
		access := "rw"
		if wr.ReadOnly {
			access = "ro"
		}
		kind := string(head.Kind)
		if _, ok := wr.Entity.(*entity.Unresolved); ok {
			kind += " (unresolved)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", head.ID, kind, displayName(head.Name), strings.Join(sources, ","), access)
	}
	return tw.Flush()
}

// displayName prefers English, then the alphabetically first language.
func displayName(name entity.LangString) string {
	if v, ok := name["en"]; ok {
		return v
	}
	langs := make([]string, 0, len(name))
	for lang := range name {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	if len(langs) == 0 {
		return ""
	}
	return name[langs[0]]
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
