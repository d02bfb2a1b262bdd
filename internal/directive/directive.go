// Package directive resolves in-source include markers into final text.
//
// The pipeline treats the resolver as a collaborator behind the Resolver
// interface; IncludeResolver is the implementation the CLI uses. It
// understands three line forms, written with either // or /* */ comments:
//
//	//= path/to/file          include a file (extension defaults to the includer's)
//	//=[debug] path/to/file   include only when the "debug" flag is enabled
//	//: module widget         emit a setting for the record
package directive

import (
	"context"

	"git.home.luguber.info/inful/interleave/internal/alias"
)

// Options carries the per-file settings handed to a resolver.
type Options struct {
	// File is the input-relative path, used in error messages.
	File string

	// Cwd is the directory include targets are resolved against.
	Cwd string

	// Ext is the file's own extension without the dot.
	Ext string

	// Filetype is Ext after the conversion table was applied.
	Filetype string

	Conversions map[string]string
	Flags       map[string]bool
	Data        map[string]any
	Aliases     *alias.Resolver
}

// Result is the resolved text plus any settings emitted by directives.
type Result struct {
	Content  string
	Settings map[string]string
}

// Resolver expands the directives in content.
type Resolver interface {
	Resolve(ctx context.Context, content string, opts Options) (Result, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, content string, opts Options) (Result, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, content string, opts Options) (Result, error) {
	return f(ctx, content, opts)
}
