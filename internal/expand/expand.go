// Package expand turns target paths into the list of files to compile.
package expand

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/interleave/internal/logfields"
	"git.home.luguber.info/inful/interleave/internal/metrics"
)

// Expander resolves targets relative to a base directory.
type Expander struct {
	basedir  string
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger used for dropped-path warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Expander) { e.recorder = metrics.OrNoop(r) }
}

// New creates an Expander rooted at basedir.
func New(basedir string, opts ...Option) *Expander {
	e := &Expander{
		basedir:  basedir,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces every directory in paths with its non-hidden regular
// entries and keeps plain files as given. Paths that do not exist are
// dropped with a warning. The result follows input order; entries within a
// directory follow os.ReadDir order.
func (e *Expander) Expand(ctx context.Context, paths []string) ([]string, error) {
	groups := make([][]string, len(paths))
	dropped := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files, err := e.expandOne(p)
			if err != nil {
				e.logger.Warn("Dropping unreadable target", logfields.Target(p), logfields.Error(err))
				dropped[i] = true
				return nil
			}
			groups[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	n := 0
	for i, files := range groups {
		if dropped[i] {
			n++
			continue
		}
		out = append(out, files...)
	}
	e.recorder.AddDroppedInputs(n)
	return out, nil
}

func (e *Expander) expandOne(input string) ([]string, error) {
	full := filepath.Join(e.basedir, input)
	entries, err := os.ReadDir(full)
	if err != nil {
		// not a listable directory: keep the path itself when it exists
		if _, statErr := os.Stat(full); statErr != nil {
			return nil, statErr
		}
		return []string{input}, nil
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		// Stat follows symlinks, so linked directories are skipped too.
		info, err := os.Stat(filepath.Join(full, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(input, entry.Name()))
	}
	return files, nil
}
