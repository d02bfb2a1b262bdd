// Package pipeline owns the build session and sequences each compile cycle:
// expand, compile (strictly in input order), combine, then either package or
// write followed by postprocessing.
package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/interleave/internal/alias"
	"git.home.luguber.info/inful/interleave/internal/combine"
	"git.home.luguber.info/inful/interleave/internal/directive"
	"git.home.luguber.info/inful/interleave/internal/expand"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/logfields"
	"git.home.luguber.info/inful/interleave/internal/metrics"
	"git.home.luguber.info/inful/interleave/internal/packager"
	"git.home.luguber.info/inful/interleave/internal/plugin"
	"git.home.luguber.info/inful/interleave/internal/postprocess"
	"git.home.luguber.info/inful/interleave/internal/record"
	"git.home.luguber.info/inful/interleave/internal/refs"
	"git.home.luguber.info/inful/interleave/internal/watch"
	"git.home.luguber.info/inful/interleave/internal/writer"
)

// Stage names used in logs, metrics and cycle results.
const (
	StageExpand      = "expand"
	StageCompile     = "compile"
	StageCombine     = "combine"
	StagePackage     = "package"
	StageWrite       = "write"
	StagePostprocess = "postprocess"
)

var (
	// ErrCycleInProgress is returned by Compile while another cycle runs.
	ErrCycleInProgress = stderrors.New("compile cycle already in progress")

	// ErrNoTargets is returned when there is nothing to compile.
	ErrNoTargets = errors.ValidationError("no target files specified").Build()
)

// Deps are the collaborators a Controller uses. Zero values select the
// built-in implementations.
type Deps struct {
	Resolver       directive.Resolver
	Discover       func(content, filetype string) refs.References
	Combiners      *plugin.Registry[combine.Strategy]
	Packagers      *plugin.Registry[packager.Packager]
	Postprocessors *plugin.Registry[postprocess.Processor]
	Observers      []Observer
	Logger         *slog.Logger
	Recorder       metrics.Recorder
}

// Controller runs compile cycles for one session.
type Controller struct {
	opts      Options
	session   *Session
	resolver  directive.Resolver
	discover  func(content, filetype string) refs.References
	combiner  combine.Strategy
	expander  *expand.Expander
	packagers *packager.Dispatcher
	postproc  *postprocess.Dispatcher
	observers []Observer
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// New validates opts and builds a controller.
func New(opts Options, deps Deps) (*Controller, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := metrics.OrNoop(deps.Recorder)

	aliases, err := alias.NewResolver(opts.Aliases)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid alias").UserAction().Build()
	}

	if opts.Target, err = absOrDefault(opts.Target); err != nil {
		return nil, err
	}
	if opts.Basedir, err = absOrDefault(opts.Basedir); err != nil {
		return nil, err
	}

	if deps.Resolver == nil {
		deps.Resolver = directive.NewIncludeResolver()
	}
	if deps.Discover == nil {
		deps.Discover = refs.Discover
	}
	if deps.Combiners == nil {
		deps.Combiners = combine.NewRegistry()
	}
	if deps.Packagers == nil {
		deps.Packagers = packager.NewRegistry()
	}
	if deps.Postprocessors == nil {
		deps.Postprocessors = postprocess.NewRegistry(postprocess.PublishConfig{})
	}

	combiner, err := deps.Combiners.Get(combine.Name(opts.Concat))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "combine strategy unavailable").Build()
	}
	if unknown := deps.Packagers.Unknown(opts.Packages); len(unknown) > 0 {
		return nil, errors.ValidationError("unknown packaging format").
			WithContext("formats", strings.Join(unknown, ",")).
			WithContext("available", strings.Join(deps.Packagers.Names(), ",")).
			Build()
	}
	if opts.Wrap && len(opts.Packages) != 1 {
		return nil, errors.ValidationError("wrap requires exactly one packaging format").
			WithContext("formats", strings.Join(opts.Packages, ",")).
			Build()
	}
	if unknown := deps.Postprocessors.Unknown(opts.After); len(unknown) > 0 {
		logger.Warn("Unknown postprocessors will be skipped", slog.String("postprocessors", strings.Join(unknown, ",")))
	}

	return &Controller{
		opts:      opts,
		session:   newSession(opts, aliases),
		resolver:  deps.Resolver,
		discover:  deps.Discover,
		combiner:  combiner,
		expander:  expand.New(opts.Basedir, expand.WithLogger(logger), expand.WithRecorder(recorder)),
		packagers: packager.NewDispatcher(deps.Packagers, logger),
		postproc:  postprocess.NewDispatcher(deps.Postprocessors, logger, recorder),
		observers: deps.Observers,
		logger:    logger,
		recorder:  recorder,
	}, nil
}

func absOrDefault(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "invalid path").WithContext("path", path).Build()
	}
	return abs, nil
}

// Session returns the controller's session.
func (c *Controller) Session() *Session { return c.session }

// Run loads project metadata, expands targets and then either watches the
// files or compiles them once.
func (c *Controller) Run(ctx context.Context, targets []string) error {
	files, err := c.Prepare(ctx, targets)
	if err != nil {
		return err
	}
	if c.opts.Watch {
		return c.Watch(ctx, files)
	}
	return c.Compile(ctx, files)
}

// Prepare loads project metadata and expands targets into the file list.
func (c *Controller) Prepare(ctx context.Context, targets []string) ([]string, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	c.LoadMetadata()

	start := time.Now()
	files, err := c.expander.Expand(ctx, targets)
	c.recorder.ObserveStageDuration(StageExpand, time.Since(start))
	if err != nil {
		c.recorder.IncStageResult(StageExpand, metrics.ResultFailed)
		return nil, errors.WrapError(err, errors.CategoryExpand, "could not expand targets").Build()
	}
	c.recorder.IncStageResult(StageExpand, metrics.ResultSuccess)
	c.logger.Debug("Expanded targets", logfields.Count(len(files)))
	return files, nil
}

// Watch recompiles each changed file until ctx is canceled.
func (c *Controller) Watch(ctx context.Context, files []string) error {
	w := watch.New(c.session.basedir, files,
		func(ctx context.Context, changed []string) error {
			return c.Compile(WithTrigger(ctx, TriggerWatch), changed)
		},
		watch.WithDebounce(c.opts.WatchDebounce),
		watch.WithLogger(c.logger),
	)
	return w.Run(ctx)
}

// Compile runs one cycle over files. It returns ErrCycleInProgress without
// notifying observers when a cycle is already running.
func (c *Controller) Compile(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return ErrNoTargets
	}
	if !c.session.begin() {
		c.recorder.IncCycleOutcome(metrics.CycleRejected)
		c.logger.Warn("Compile rejected; a cycle is already running", logfields.Count(len(files)))
		return ErrCycleInProgress
	}

	info := CycleInfo{
		ID:        uuid.NewString(),
		Trigger:   triggerFrom(ctx),
		Files:     slices.Clone(files),
		StartedAt: time.Now(),
	}
	log := c.logger.With(logfields.CycleID(info.ID))
	log.Info("Compile cycle started", logfields.Count(len(files)), slog.String("trigger", string(info.Trigger)))
	for _, o := range c.observers {
		o.OnCycleStart(ctx, info)
	}

	result := CycleResult{CycleInfo: info}
	result.Err = c.cycle(ctx, log, &result)
	result.Duration = time.Since(info.StartedAt)

	c.session.end()
	c.finish(ctx, log, result)
	return result.Err
}

func (c *Controller) cycle(ctx context.Context, log *slog.Logger, res *CycleResult) error {
	var records []*record.Record
	err := c.stage(ctx, log, res, StageCompile, func() (err error) {
		records, err = c.compileFiles(ctx, log, res.Files)
		return err
	})
	if err != nil {
		return err
	}

	var units []*record.Record
	err = c.stage(ctx, log, res, StageCombine, func() (err error) {
		units, err = c.combiner.Combine(records, combine.Options{Output: c.session.output})
		if err != nil {
			return errors.WrapError(err, errors.CategoryCombine, "combine failed").
				WithContext("strategy", c.combiner.Metadata().Name).
				Build()
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.Units = len(units)
	c.annotate(units)

	if len(c.session.packages) > 0 {
		return c.stage(ctx, log, res, StagePackage, func() error {
			return c.packagers.Run(ctx, packager.Request{
				Target:  c.session.target,
				Formats: c.session.packages,
				Wrap:    c.session.wrap,
				Output:  c.session.output,
			}, units)
		})
	}

	var outputs []string
	err = c.stage(ctx, log, res, StageWrite, func() (err error) {
		outputs, err = writer.New(c.session.target, c.session.output).Write(ctx, units)
		return err
	})
	if err != nil {
		return err
	}
	res.Outputs = outputs
	c.recorder.AddFilesWritten(len(outputs))
	log.Info("Wrote output files", logfields.Count(len(outputs)), logfields.Target(c.session.target))

	if len(c.session.after) > 0 {
		_ = c.stage(ctx, log, res, StagePostprocess, func() error {
			c.postproc.Run(ctx, c.session, outputs, c.session.after)
			return nil
		})
	}
	return nil
}

// compileFiles reads and resolves files one after another. Record order
// equals input order.
func (c *Controller) compileFiles(ctx context.Context, log *slog.Logger, files []string) ([]*record.Record, error) {
	records := make([]*record.Record, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := c.compileFile(ctx, file)
		if err != nil {
			log.Error("Compile failed", logfields.File(file), logfields.Error(err))
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Controller) compileFile(ctx context.Context, file string) (*record.Record, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.session.basedir, file)
	}
	ext := strings.TrimPrefix(filepath.Ext(file), ".")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRead, "could not read input").
			WithContext("file", file).
			Build()
	}

	res, err := c.resolver.Resolve(ctx, string(content), directive.Options{
		File:        file,
		Cwd:         filepath.Dir(path),
		Ext:         ext,
		Filetype:    c.session.filetype(ext),
		Conversions: c.session.Conversions(),
		Flags:       c.session.Flags(),
		Data:        c.session.Data(),
		Aliases:     c.session.aliases,
	})
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryResolve, "directive resolution failed").
			WithContext("file", file).
			Build()
	}

	rec := record.New(file, res.Content)
	rec.MergeSettings(res.Settings)
	return rec, nil
}

// annotate attaches discovered references and the module name to each unit.
func (c *Controller) annotate(units []*record.Record) {
	for _, u := range units {
		ft := u.Setting("filetype")
		if ft == "" {
			ft = c.session.filetype(strings.TrimPrefix(filepath.Ext(u.File), "."))
		}
		u.AttachRefs(c.discover(u.Content, ft))
		u.ResolveModule()
	}
}

func (c *Controller) stage(ctx context.Context, log *slog.Logger, res *CycleResult, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	label := metrics.ResultSuccess
	switch {
	case err != nil && ctx.Err() != nil:
		label = metrics.ResultCanceled
	case err != nil:
		label = metrics.ResultFailed
	}
	if err != nil {
		res.Stage = name
	}
	c.recorder.ObserveStageDuration(name, elapsed)
	c.recorder.IncStageResult(name, label)
	log.Debug("Stage complete", logfields.Stage(name), logfields.DurationMS(float64(elapsed.Milliseconds())))

	for _, o := range c.observers {
		o.OnStageComplete(ctx, StageResult{CycleID: res.ID, Stage: name, Duration: elapsed, Err: err})
	}
	return err
}

func (c *Controller) finish(ctx context.Context, log *slog.Logger, result CycleResult) {
	c.recorder.ObserveCycleDuration(result.Duration)
	ms := logfields.DurationMS(float64(result.Duration.Milliseconds()))
	if result.Err != nil {
		c.recorder.IncCycleOutcome(metrics.CycleFailed)
		log.Error("Compile cycle failed", logfields.Stage(result.Stage), ms, logfields.Error(result.Err))
	} else {
		c.recorder.IncCycleOutcome(metrics.CycleSuccess)
		log.Info("Compile cycle complete", logfields.Count(result.Units), ms)
	}
	for _, o := range c.observers {
		o.OnCycleDone(ctx, result)
	}
}
