// Package postprocess runs named, independent steps over written output
// files.
package postprocess

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/interleave/internal/logfields"
	"git.home.luguber.info/inful/interleave/internal/metrics"
	"git.home.luguber.info/inful/interleave/internal/plugin"
)

// Session is the read-only view of the build session a processor gets.
type Session interface {
	TargetPath() string
	Data() map[string]any
	Flag(name string) bool
}

// Processor is a named postprocessing step. Its metadata Extensions restrict
// the files it receives; it must not modify files outside that set.
type Processor interface {
	plugin.Plugin
	Process(ctx context.Context, s Session, files []string) error
}

// NewRegistry returns the registry of built-in processors.
func NewRegistry(publish PublishConfig) *plugin.Registry[Processor] {
	return plugin.NewRegistry[Processor](plugin.PluginTypePostprocessor).MustRegister(
		Lint{},
		Minify{},
		Markdown{},
		Fingerprint{},
		NewPublish(publish),
	)
}

// Dispatcher runs processors by name.
type Dispatcher struct {
	registry *plugin.Registry[Processor]
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewDispatcher creates a dispatcher. Nil logger and recorder use defaults.
func NewDispatcher(registry *plugin.Registry[Processor], logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger, recorder: metrics.OrNoop(recorder)}
}

// Run executes each distinct name once, concurrently. Unknown names and
// processor failures are logged as warnings; Run returns once every
// processor has finished.
func (d *Dispatcher) Run(ctx context.Context, s Session, files []string, names []string) {
	var wg sync.WaitGroup
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		p, err := d.registry.Get(name)
		if err != nil {
			d.logger.Warn("Unable to find postprocessor", logfields.Postprocessor(name))
			d.recorder.IncPostprocessorResult(name, metrics.ResultWarning)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runOne(ctx, s, p, files)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) runOne(ctx context.Context, s Session, p Processor, files []string) {
	meta := p.Metadata()
	selected := Filter(meta, files)

	start := time.Now()
	err := p.Process(ctx, s, selected)
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		d.logger.Warn("Postprocessor failed",
			logfields.Postprocessor(meta.Name),
			logfields.Count(len(selected)),
			logfields.Error(plugin.NewPluginError(meta.Name, "process", err)))
		d.recorder.IncPostprocessorResult(meta.Name, metrics.ResultFailed)
		return
	}
	d.logger.Debug("Postprocessor finished",
		logfields.Postprocessor(meta.Name),
		logfields.Count(len(selected)),
		logfields.DurationMS(elapsed))
	d.recorder.IncPostprocessorResult(meta.Name, metrics.ResultSuccess)
}

// Filter returns the files whose extension the processor declares.
func Filter(meta plugin.PluginMetadata, files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if meta.Supports(filepath.Ext(f)) {
			out = append(out, f)
		}
	}
	return out
}
