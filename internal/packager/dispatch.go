package packager

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/logfields"
	"git.home.luguber.info/inful/interleave/internal/plugin"
	"git.home.luguber.info/inful/interleave/internal/record"
)

// Request describes one export through the packaging branch.
type Request struct {
	// Target is the output directory.
	Target string

	// Formats lists the packaging formats to produce.
	Formats []string

	// Wrap writes a single format straight into Target instead of pkg/<format>.
	Wrap bool

	// Output overrides each unit's file name.
	Output string
}

// Dir returns the directory a format writes into.
func (r Request) Dir(format string) string {
	if r.Wrap {
		return r.Target
	}
	return filepath.Join(r.Target, "pkg", format)
}

// Dispatcher runs packagers over output units.
type Dispatcher struct {
	registry *plugin.Registry[Packager]
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry. A nil logger uses slog.Default.
func NewDispatcher(registry *plugin.Registry[Packager], logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Run produces every requested format. Formats run concurrently and
// independently; units within a format run concurrently and the first failure
// cancels that format. Errors from all formats are joined.
func (d *Dispatcher) Run(ctx context.Context, req Request, units []*record.Record) error {
	errs := make([]error, len(req.Formats))

	var wg sync.WaitGroup
	for i, format := range req.Formats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = d.runFormat(ctx, req, format, units)
		}()
	}
	wg.Wait()

	return stderrors.Join(errs...)
}

func (d *Dispatcher) runFormat(ctx context.Context, req Request, format string, units []*record.Record) error {
	start := time.Now()
	p, err := d.registry.Get(format)
	if err != nil {
		return errors.WrapError(err, errors.CategoryPackage, "unknown packaging format").
			WithContext("format", format).
			UserAction().
			Build()
	}

	dir := req.Dir(format)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryPackage, "could not create package directory").
			WithContext("format", format).
			WithContext("path", dir).
			Build()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, unit := range units {
		g.Go(func() error {
			name := unit.File
			if req.Output != "" {
				name = req.Output
			}
			target := filepath.Join(dir, name)
			if err := p.Package(gctx, target, unit); err != nil {
				return errors.WrapError(plugin.NewPluginError(format, "package", err), errors.CategoryPackage, "packaging failed").
					WithContext("format", format).
					WithContext("file", unit.File).
					Build()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	d.logger.Info("Generated packages",
		logfields.Format(format),
		logfields.Count(len(units)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return nil
}
