// Package watch recompiles input files when they change on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/logfields"
)

// CompileFunc compiles the given input-relative files.
type CompileFunc func(ctx context.Context, files []string) error

// State is the watcher's compile state.
type State int32

const (
	StateIdle State = iota
	StateCompiling
)

func (s State) String() string {
	if s == StateCompiling {
		return "compiling"
	}
	return "idle"
}

// Watcher observes a fixed set of files. Changes are debounced and queued;
// changes that arrive while a compile runs are coalesced into one follow-up
// compile of the distinct changed files.
type Watcher struct {
	files    map[string]string // absolute path -> input-relative path
	compile  CompileFunc
	debounce time.Duration
	logger   *slog.Logger

	state    atomic.Int32
	requests chan struct{}

	mu     sync.Mutex
	queue  []string
	queued map[string]struct{}
	timer  *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long to wait for further changes before compiling.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for files relative to basedir.
func New(basedir string, files []string, compile CompileFunc, opts ...Option) *Watcher {
	w := &Watcher{
		files:    make(map[string]string, len(files)),
		compile:  compile,
		debounce: 100 * time.Millisecond,
		logger:   slog.Default(),
		requests: make(chan struct{}, 1),
		queued:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, f := range files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(basedir, f)
		}
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
		w.files[filepath.Clean(abs)] = f
	}
	return w
}

// State returns whether a compile is running.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Run watches until ctx is canceled. Compile failures are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WatchError("could not create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fw.Close() }()

	dirs := make(map[string]struct{})
	for abs := range w.files {
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return errors.WatchError("could not watch directory").
				WithCause(err).
				WithContext("path", dir).
				Build()
		}
	}
	w.logger.Info("Watching for changes", logfields.Count(len(w.files)))

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer wg.Wait()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.Notify(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Notify queues a change to path. It reports whether path is watched.
func (w *Watcher) Notify(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rel, ok := w.files[filepath.Clean(path)]
	if !ok {
		return false
	}
	w.logger.Debug("File change detected", logfields.File(rel))

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.queued[rel]; !dup {
		w.queued[rel] = struct{}{}
		w.queue = append(w.queue, rel)
	}

	if w.debounce <= 0 {
		w.request()
		return true
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.request)
	return true
}

func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.queue
	w.queue = nil
	clear(w.queued)
	return batch
}

// work runs queued compiles one at a time until ctx is canceled.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			batch := w.drain()
			if len(batch) == 0 {
				continue
			}
			w.state.Store(int32(StateCompiling))
			if err := w.compile(ctx, batch); err != nil {
				w.logger.Warn("Recompile failed", logfields.Count(len(batch)), logfields.Error(err))
			}
			w.state.Store(int32(StateIdle))
		}
	}
}
