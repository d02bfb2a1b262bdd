package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/interleave/internal/alias"
	"git.home.luguber.info/inful/interleave/internal/config"
	"git.home.luguber.info/inful/interleave/internal/eventstore"
	"git.home.luguber.info/inful/interleave/internal/events"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/metrics"
	"git.home.luguber.info/inful/interleave/internal/pipeline"
	"git.home.luguber.info/inful/interleave/internal/postprocess"
	"git.home.luguber.info/inful/interleave/internal/schedule"
)

// BuildCmd implements the default 'build' command.
type BuildCmd struct {
	Targets []string `arg:"" optional:"" help:"Files or directories to compile, relative to --basedir"`

	Path        string            `short:"p" help:"Output directory"`
	Output      string            `short:"o" help:"Output file name (single unit only)"`
	Basedir     string            `short:"b" help:"Directory targets are relative to"`
	Watch       bool              `short:"w" help:"Recompile files as they change"`
	Concat      bool              `help:"Concatenate all inputs into one output"`
	Package     []string          `help:"Packaging formats: amd, cjs, umd, global or all" sep:","`
	Wrap        string            `help:"Package in one format written straight into the output directory"`
	After       []string          `help:"Postprocessors to run, separated by commas or +" sep:","`
	Lint        bool              `help:"Lint written files"`
	Flags       []string          `help:"Flags enabling conditional includes" sep:","`
	Alias       []string          `help:"Include alias as name=path (repeatable)" sep:"none"`
	Data        map[string]string `help:"Template data as key=value (repeatable)" mapsep:"none"`
	Conversion  map[string]string `help:"Treat an extension as a filetype, ext=filetype (repeatable)" mapsep:"none"`
	Every       time.Duration     `help:"Recompile all targets on this interval"`
	MetricsAddr string            `name:"metrics-addr" help:"Serve Prometheus metrics on this address"`
	EventsDB    string            `name:"events-db" help:"SQLite file recording compile cycles"`
	NATSURL     string            `name:"nats-url" help:"NATS server receiving compile cycle events"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	overrides, err := b.overrides()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	targets := b.Targets
	if len(targets) == 0 {
		targets = cfg.Targets
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunBuild(ctx, g.Logger, cfg, targets)
}

func (b *BuildCmd) overrides() (config.Overrides, error) {
	rules := make([]alias.Rule, 0, len(b.Alias))
	for _, a := range b.Alias {
		name, path, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return config.Overrides{}, errors.ValidationError("alias must be written as name=path").
				WithContext("alias", a).
				Build()
		}
		rules = append(rules, alias.Rule{Name: name, Replacement: path})
	}
	return config.Overrides{
		Path:          b.Path,
		Output:        b.Output,
		Basedir:       b.Basedir,
		Watch:         b.Watch,
		Concat:        b.Concat,
		Lint:          b.Lint,
		Package:       b.Package,
		Wrap:          b.Wrap,
		After:         b.After,
		Flags:         b.Flags,
		Aliases:       rules,
		Data:          b.Data,
		Conversions:   b.Conversion,
		Every:         b.Every,
		MetricsListen: b.MetricsAddr,
		EventsSQLite:  b.EventsDB,
		NATSURL:       b.NATSURL,
	}, nil
}

// RunBuild wires the pipeline for cfg and compiles targets once, on every
// change (watch) or on an interval (every).
func RunBuild(ctx context.Context, logger *slog.Logger, cfg *config.Config, targets []string) error {
	if logger == nil {
		logger = slog.Default()
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		if err := serveMetrics(ctx, logger, cfg.Metrics.Listen, reg); err != nil {
			return err
		}
	}

	observers, closeObservers, err := cycleObservers(cfg, logger)
	if err != nil {
		return err
	}
	defer closeObservers()

	controller, err := pipeline.New(cfg.PipelineOptions(), pipeline.Deps{
		Postprocessors: postprocess.NewRegistry(cfg.PublishConfig()),
		Observers:      observers,
		Logger:         logger,
		Recorder:       recorder,
	})
	if err != nil {
		return err
	}

	if cfg.Every <= 0 {
		return controller.Run(ctx, targets)
	}
	return runScheduled(ctx, logger, controller, cfg.Every, targets)
}

func runScheduled(ctx context.Context, logger *slog.Logger, c *pipeline.Controller, every time.Duration, targets []string) error {
	files, err := c.Prepare(ctx, targets)
	if err != nil {
		return err
	}
	if err := c.Compile(ctx, files); err != nil {
		logger.Warn("Initial compile failed; schedule continues", "error", err)
	}

	s, err := schedule.New(logger)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "could not create scheduler").Build()
	}
	if _, err := s.Every(ctx, every, files, func(ctx context.Context, files []string) error {
		return c.Compile(pipeline.WithTrigger(ctx, pipeline.TriggerSchedule), files)
	}); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "could not schedule compile").Build()
	}
	logger.Info("Scheduled recompiles", "every", every.String())
	return s.Run(ctx)
}

// cycleObservers opens the configured event sinks. The returned func closes
// them.
func cycleObservers(cfg *config.Config, logger *slog.Logger) ([]pipeline.Observer, func(), error) {
	var (
		opts    []events.Option
		store   eventstore.Store
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close event sink", "error", err)
			}
		}
	}

	if cfg.Events.SQLite != "" {
		s, err := eventstore.NewSQLiteStore(cfg.Events.SQLite)
		if err != nil {
			return nil, closeAll, err
		}
		store = s
		closers = append(closers, s.Close)
	}
	if cfg.Events.NATS.URL != "" {
		pub, err := events.ConnectNATS(cfg.Events.NATS.URL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		subject := cfg.Events.NATS.Subject
		if subject == "" {
			subject = events.DefaultSubject
		}
		opts = append(opts, events.WithPublisher(pub, subject))
		closers = append(closers, pub.Close)
	}
	if store == nil && len(opts) == 0 {
		return nil, closeAll, nil
	}

	opts = append(opts, events.WithLogger(logger))
	return []pipeline.Observer{events.NewJournal(store, opts...)}, closeAll, nil
}
