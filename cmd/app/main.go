// Image filter chain editor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/config"
	"image-filter-editor/internal/console"
	"image-filter-editor/internal/core"
	"image-filter-editor/internal/gui"
	"image-filter-editor/internal/io"
	"image-filter-editor/internal/layers"
	"image-filter-editor/internal/metrics"
	"image-filter-editor/internal/render"
	"image-filter-editor/internal/store"
	"image-filter-editor/internal/undo"
)

const (
	AppName    = "Image Filter Editor"
	AppID      = "com.imagefilters.editor"
	AppVersion = "1.0.0"
)

type options struct {
	configPath  string
	projectDir  string
	debug       bool
	headless    bool
	list        bool
	preset      string
	layer       int
	lastLayer   int
	title       string
	visible     bool
	mode        string
	exportDir   string
	yes         bool
	metricsAddr string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "filters.yaml", "YAML configuration file")
	fs.StringVar(&o.projectDir, "project", ".", "Project directory; each sub-directory is a layer")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug mode with verbose logging")
	fs.BoolVar(&o.headless, "headless", false, "Apply a chain without opening a window")
	fs.BoolVar(&o.list, "list", false, "Print every image with its filters and exit")
	fs.StringVar(&o.preset, "preset", "", "Preset chain to apply in headless mode")
	fs.IntVar(&o.layer, "layer", 0, "First layer to apply to in headless mode")
	fs.IntVar(&o.lastLayer, "last-layer", -1, "Last layer to apply to; defaults to -layer")
	fs.StringVar(&o.title, "title", "", "Only images whose title matches this regular expression")
	fs.BoolVar(&o.visible, "visible-only", true, "Only visible images")
	fs.StringVar(&o.mode, "mode", "", "Apply mode: replace or append; defaults to the configured one")
	fs.StringVar(&o.exportDir, "export", "", "Write the filtered images to this directory after applying")
	fs.BoolVar(&o.yes, "yes", false, "Accept every warning without asking")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve apply metrics on this address, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.lastLayer < 0 {
		o.lastLayer = o.layer
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.debug {
		cfg.Debug = true
	}
	if opts.mode != "" {
		cfg.ApplyMode = opts.mode
		if _, err := core.ParseMode(opts.mode); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	logger := initLogger(cfg.Debug, cfg.LogFormat)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Debug,
		"project":    opts.projectDir,
	}).Info("Starting " + AppName)

	if err := run(opts, cfg, logger); err != nil {
		logger.WithError(err).Error("Filter editor failed")
		os.Exit(1)
	}
	logger.Info("Application shutting down gracefully")
}

func run(opts *options, cfg *config.Config, logger *logrus.Logger) error {
	dir, err := filepath.Abs(opts.projectDir)
	if err != nil {
		return err
	}
	project, err := layers.ScanDir(dir, io.IsSupportedImage)
	if err != nil {
		return err
	}

	var chains *store.ChainStore
	if cfg.Database != "" {
		chains, err = store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer chains.Close()
		if err := restoreChains(chains, project, logger); err != nil {
			return err
		}
	}

	if opts.list {
		listProject(project)
		return nil
	}

	rasters, err := render.NewCache(cfg.CacheEntries)
	if err != nil {
		return err
	}
	defer rasters.Purge()

	renderer := render.NewRenderer(io.NewImageLoader(logger), rasters, logger)
	history := undo.NewLog(rasters, 0, logger)
	registry := prometheus.NewRegistry()
	if opts.metricsAddr != "" {
		serveMetrics(opts.metricsAddr, registry, logger)
	}
	coordinator, err := core.NewCoordinator(core.CoordinatorConfig{
		Cache:      rasters,
		Undo:       history,
		Recomputer: renderer,
		Workers:    cfg.RecomputeWorkers,
		Logger:     logger,
		Metrics:    metrics.NewApplyMetrics(registry),
	})
	if err != nil {
		return err
	}

	if opts.headless {
		err := runHeadless(opts, cfg, project, coordinator, renderer, chains, logger)
		logMetrics(registry, logger)
		return err
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetIcon(theme.DocumentIcon())
	fyneApp.Settings().SetTheme(theme.DefaultTheme())

	gui.NewApplication(fyneApp, gui.Deps{
		Config:      cfg,
		Project:     project,
		Coordinator: coordinator,
		Undo:        history,
		Renderer:    renderer,
		Store:       chains,
		Metrics:     registry,
		Logger:      logger,
	}).ShowAndRun()
	return nil
}

// serveMetrics exposes the registry at /metrics until the process exits
func serveMetrics(addr string, registry *prometheus.Registry, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	go func() {
		logger.WithField("addr", addr).Info("Serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()
}

func logMetrics(registry prometheus.Gatherer, logger logrus.FieldLogger) {
	fields, err := metrics.Summary(registry)
	if err != nil {
		logger.WithError(err).Warn("Metrics unavailable")
		return
	}
	logger.WithFields(fields).Info("Apply metrics")
}

func restoreChains(chains *store.ChainStore, project *layers.Project, logger logrus.FieldLogger) error {
	saved, err := chains.Load(context.Background(), project.Name())
	if err != nil {
		return err
	}
	restored := 0
	for _, p := range project.AllPatches() {
		if c, ok := saved[p.Source()]; ok {
			p.SetChain(c)
			restored++
		}
	}
	logger.WithFields(logrus.Fields{"project": project.Name(), "images": restored}).Info("Filter chains restored")
	return nil
}

func listProject(project *layers.Project) {
	for _, l := range project.Layers() {
		fmt.Printf("layer %d: %s\n", l.Index(), l.Name())
		for _, p := range l.Patches(false) {
			fmt.Printf("  #%d %s %s\n", p.ID(), p.Title(), p.CurrentChain())
		}
	}
}

// runHeadless opens an editing session on the selected images and applies
// the preset, or the session's chain when no preset is given
func runHeadless(opts *options, cfg *config.Config, project *layers.Project, coordinator *core.Coordinator,
	renderer *render.Renderer, chains *store.ChainStore, logger logrus.FieldLogger) error {
	patches, err := project.ListTargets(layers.Selection{
		Mode:         layers.SelectLayerRange,
		First:        opts.layer,
		Last:         opts.lastLayer,
		TitlePattern: opts.title,
		VisibleOnly:  opts.visible,
	})
	if err != nil {
		return err
	}
	targets := layers.Targets(patches)

	presenter := console.New(os.Stdin, os.Stdout, opts.yes)
	session, err := core.NewSession(targets, nil, presenter, logger)
	if err != nil {
		return err
	}
	if report := session.Report(); !report.Empty() {
		logger.WithField("divergences", len(report.Divergences)).Info("Editing chain seeded from diverging images")
	}
	chain := session.Chain()
	if opts.preset != "" {
		if chain, err = cfg.Preset(opts.preset); err != nil {
			return err
		}
	}

	ctx := context.Background()
	result, err := coordinator.Apply(ctx, core.ApplyRequest{Chain: chain, Targets: session.Targets(), Mode: cfg.Mode()}, presenter)
	var applyErr *core.ApplyError
	if err != nil && !errors.As(err, &applyErr) {
		return err
	}
	fmt.Printf("Set %s on %d images in %s\n", chain, len(result.Applied), result.Duration)

	if chains != nil {
		images := make([]store.Keyed, len(patches))
		for i, p := range patches {
			images[i] = p
		}
		if err := chains.Save(ctx, project.Name(), images...); err != nil {
			return err
		}
	}

	if opts.exportDir != "" {
		for _, p := range patches {
			path := filepath.Join(opts.exportDir, p.Layer().Name(), p.Title())
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := renderer.Export(ctx, p, path); err != nil {
				logger.WithError(err).WithField("image", p.ID()).Warn("Export failed")
				continue
			}
			if diff, err := renderer.Compare(ctx, p); err == nil {
				logger.WithFields(logrus.Fields{"image": p.ID(), "path": path, "difference": diff.String()}).Info("Image exported")
			}
		}
	}
	return err
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if format == config.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   debugMode,
		})
	}
	logger.Debug("Debug logging enabled")
	return logger
}
