// Package record defines the unit of content that flows from compile through
// combine to packaging or writing.
package record

import (
	"maps"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/interleave/internal/refs"
)

// Reserved setting keys that directive settings may not override.
const (
	KeyFile    = "file"
	KeyContent = "content"
	KeyModule  = "module"
)

// Record is one processed input file, or one combined output unit.
type Record struct {
	// File is the input-relative path. It names the output artifact.
	File string

	// Content is the directive-expanded text.
	Content string

	// Settings holds values emitted by directive resolution (module, filetype, ...).
	Settings map[string]string

	// Module is the module name used by packagers.
	Module string

	// Refs is attached at export from the final content.
	Refs *refs.References
}

// New creates a record for file with resolved content.
func New(file, content string) *Record {
	return &Record{File: file, Content: content, Settings: map[string]string{}}
}

// MergeSettings copies settings whose keys are not already present. The
// reserved file and content keys are ignored.
func (r *Record) MergeSettings(settings map[string]string) {
	if r.Settings == nil {
		r.Settings = make(map[string]string, len(settings))
	}
	for k, v := range settings {
		if k == KeyFile || k == KeyContent {
			continue
		}
		if _, exists := r.Settings[k]; !exists {
			r.Settings[k] = v
		}
	}
}

// Setting returns a setting value or "".
func (r *Record) Setting(key string) string {
	return r.Settings[key]
}

// AttachRefs merges discovered references onto the record without
// overwriting references already attached.
func (r *Record) AttachRefs(found refs.References) {
	if r.Refs == nil {
		cp := found.Clone()
		r.Refs = &cp
		return
	}
	r.Refs.Merge(found)
}

// ResolveModule sets Module from the explicit "module" setting, or the file's
// base name with a ".js" suffix removed. Other extensions are kept.
func (r *Record) ResolveModule() string {
	if r.Module != "" {
		return r.Module
	}
	if m := r.Setting(KeyModule); m != "" {
		r.Module = m
		return m
	}
	base := filepath.Base(r.File)
	r.Module = strings.TrimSuffix(base, ".js")
	return r.Module
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Settings = maps.Clone(r.Settings)
	if r.Refs != nil {
		refsCopy := r.Refs.Clone()
		cp.Refs = &refsCopy
	}
	return &cp
}
