package pipeline

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/interleave/internal/alias"
)

// State is the controller's cycle state.
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

// Options configures a build session.
type Options struct {
	// Target is the output directory.
	Target string

	// Output names the single output file, if set.
	Output string

	// Basedir is the directory input paths are relative to.
	Basedir string

	Aliases     []alias.Rule
	After       []string
	Data        map[string]any
	Flags       []string
	Packages    []string
	Wrap        bool
	Conversions map[string]string
	Concat      bool

	Watch         bool
	WatchDebounce time.Duration
}

// Session is one build invocation's configuration plus its mutable state.
// Only the controller and metadata loading mutate it.
type Session struct {
	target      string
	output      string
	basedir     string
	aliases     *alias.Resolver
	after       []string
	flags       map[string]bool
	packages    []string
	wrap        bool
	conversions map[string]string
	concat      bool

	mu   sync.RWMutex
	data map[string]any

	state atomic.Int32
}

func newSession(opts Options, aliases *alias.Resolver) *Session {
	s := &Session{
		target:      opts.Target,
		output:      opts.Output,
		basedir:     opts.Basedir,
		aliases:     aliases,
		after:       slices.Clone(opts.After),
		flags:       make(map[string]bool, len(opts.Flags)),
		packages:    slices.Clone(opts.Packages),
		wrap:        opts.Wrap,
		conversions: maps.Clone(opts.Conversions),
		concat:      opts.Concat,
		data:        maps.Clone(opts.Data),
	}
	if s.data == nil {
		s.data = map[string]any{}
	}
	if s.conversions == nil {
		s.conversions = map[string]string{}
	}
	for _, f := range opts.Flags {
		if f != "" {
			s.flags[f] = true
		}
	}
	return s
}

func (s *Session) TargetPath() string             { return s.target }
func (s *Session) Output() string                 { return s.output }
func (s *Session) Basedir() string                { return s.basedir }
func (s *Session) Aliases() *alias.Resolver       { return s.aliases }
func (s *Session) After() []string                { return slices.Clone(s.after) }
func (s *Session) Packages() []string             { return slices.Clone(s.packages) }
func (s *Session) Wrap() bool                     { return s.wrap }
func (s *Session) Concat() bool                   { return s.concat }
func (s *Session) Conversions() map[string]string { return maps.Clone(s.conversions) }
func (s *Session) Flag(name string) bool          { return s.flags[name] }
func (s *Session) Flags() map[string]bool         { return maps.Clone(s.flags) }

// Data returns a copy of the session metadata.
func (s *Session) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// MergeData adds entries whose keys are not already set. It returns the keys
// that were added.
func (s *Session) MergeData(values map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []string
	for k, v := range values {
		if _, exists := s.data[k]; exists {
			continue
		}
		s.data[k] = v
		added = append(added, k)
	}
	slices.Sort(added)
	return added
}

// State returns the current cycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Processing reports whether a compile cycle is in flight.
func (s *Session) Processing() bool { return s.State() == StateCompiling }

func (s *Session) begin() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateCompiling))
}

func (s *Session) end() {
	s.state.Store(int32(StateIdle))
}

// filetype maps an extension (without dot) through the conversion table.
func (s *Session) filetype(ext string) string {
	if ft, ok := s.conversions[ext]; ok && ft != "" {
		return ft
	}
	return ext
}
