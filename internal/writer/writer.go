// Package writer persists output units under the target directory.
package writer

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/record"
)

// Writer writes units into Target.
type Writer struct {
	// Target is the output directory.
	Target string

	// Output, when set, names every written file.
	Output string
}

// New creates a Writer.
func New(target, output string) *Writer {
	return &Writer{Target: target, Output: output}
}

// Path returns the absolute path a unit is written to.
func (w *Writer) Path(unit *record.Record) string {
	name := unit.File
	if w.Output != "" {
		name = w.Output
	}
	return filepath.Join(w.Target, filepath.Base(name))
}

// Write writes all units concurrently. The first failure cancels the rest and
// is returned. Paths are returned in the order units were supplied.
func (w *Writer) Write(ctx context.Context, units []*record.Record) ([]string, error) {
	if w.Output != "" && len(units) > 1 {
		return nil, errors.ValidationError("an output filename requires a single output unit; enable concat").
			WithContext("output", w.Output).
			WithContext("count", len(units)).
			Build()
	}

	paths := make([]string, len(units))
	g, gctx := errgroup.WithContext(ctx)
	for i, unit := range units {
		g.Go(func() error {
			path := w.Path(unit)
			if err := writeFile(gctx, path, unit.Content); err != nil {
				return errors.WrapError(err, errors.CategoryWrite, "could not write output").
					WithContext("file", unit.File).
					WithContext("path", path).
					Build()
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := io.Copy(bw, strings.NewReader(content)); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
