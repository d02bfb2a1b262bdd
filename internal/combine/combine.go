// Package combine merges compiled records into the output units handed to
// export.
package combine

import (
	"strings"

	"git.home.luguber.info/inful/interleave/internal/plugin"
	"git.home.luguber.info/inful/interleave/internal/record"
)

// Strategy names.
const (
	PassName   = "pass"
	ConcatName = "concat"
)

// Options carries the session values a strategy may use.
type Options struct {
	// Output is the single output filename, if one was configured.
	Output string
}

// Strategy turns records into output units.
type Strategy interface {
	plugin.Plugin
	Combine(records []*record.Record, opts Options) ([]*record.Record, error)
}

// NewRegistry returns the registry of built-in strategies.
func NewRegistry() *plugin.Registry[Strategy] {
	return plugin.NewRegistry[Strategy](plugin.PluginTypeCombiner).
		MustRegister(Pass{}, Concat{})
}

// Name returns the strategy name selected by the concatenate switch.
func Name(concat bool) string {
	if concat {
		return ConcatName
	}
	return PassName
}

// Pass keeps every record as its own output unit.
type Pass struct{}

func (Pass) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        PassName,
		Type:        plugin.PluginTypeCombiner,
		Description: "one output unit per input file",
	}
}

func (Pass) Combine(records []*record.Record, _ Options) ([]*record.Record, error) {
	return records, nil
}

// Concat merges all records, in order, into a single unit.
type Concat struct{}

func (Concat) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        ConcatName,
		Type:        plugin.PluginTypeCombiner,
		Description: "concatenate all input files into one output unit",
	}
}

// Combine names the unit after opts.Output or the first record. A newline is
// inserted between two contents only when the earlier one lacks a trailing
// newline. Settings merge first-wins.
func (Concat) Combine(records []*record.Record, opts Options) ([]*record.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	name := records[0].File
	if opts.Output != "" {
		name = opts.Output
	}

	var b strings.Builder
	unit := record.New(name, "")
	for i, r := range records {
		if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(r.Content)
		unit.MergeSettings(r.Settings)
		if r.Refs != nil {
			unit.AttachRefs(*r.Refs)
		}
	}
	unit.Content = b.String()
	unit.Module = records[0].Module
	return []*record.Record{unit}, nil
}
