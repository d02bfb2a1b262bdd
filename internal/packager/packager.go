// Package packager wraps output units into module-loading conventions and
// dispatches the requested formats.
package packager

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/interleave/internal/plugin"
	"git.home.luguber.info/inful/interleave/internal/record"
)

// Packager writes one unit wrapped in its format to targetPath.
type Packager interface {
	plugin.Plugin
	Package(ctx context.Context, targetPath string, unit *record.Record) error
}

// NewRegistry returns the registry of built-in formats.
func NewRegistry() *plugin.Registry[Packager] {
	return plugin.NewRegistry[Packager](plugin.PluginTypePackager).MustRegister(
		newTemplatePackager("amd", "AMD define() module", amdTemplate),
		newTemplatePackager("cjs", "CommonJS module with require() and module.exports", cjsTemplate),
		newTemplatePackager("umd", "universal module detecting AMD, CommonJS or a browser global", umdTemplate),
		newTemplatePackager("global", "immediately invoked function assigning a browser global", globalTemplate),
	)
}

// Dependency is a declared module dependency and the variable it binds to.
type Dependency struct {
	Name string
	Var  string
}

// view is the data handed to the format templates.
type view struct {
	Name    string
	Var     string
	Deps    []Dependency
	Content string
}

func newView(unit *record.Record) view {
	v := view{
		Name:    unit.ResolveModule(),
		Content: strings.TrimRight(unit.Content, "\n"),
	}
	v.Var = Identifier(v.Name)
	if unit.Refs != nil {
		for _, ref := range unit.Refs.Declared() {
			v.Deps = append(v.Deps, Dependency{Name: ref.Name, Var: Identifier(ref.Name)})
		}
	}
	return v
}

// Identifier converts a module name such as "jquery-ui" or "lib/my_widget"
// into a camelCase variable name ("jqueryUi", "myWidget"). Only the last path
// segment is used.
func Identifier(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '$')
	})
	if len(parts) == 0 {
		return "module"
	}
	title := cases.Title(language.Und)
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		b.WriteString(title.String(p))
	}
	id := b.String()
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return id
}

type templatePackager struct {
	meta plugin.PluginMetadata
	tmpl *template.Template
}

func newTemplatePackager(name, description, text string) *templatePackager {
	return &templatePackager{
		meta: plugin.PluginMetadata{Name: name, Type: plugin.PluginTypePackager, Description: description},
		tmpl: template.Must(template.New(name).Funcs(funcs).Parse(text)),
	}
}

func (p *templatePackager) Metadata() plugin.PluginMetadata { return p.meta }

func (p *templatePackager) Package(ctx context.Context, targetPath string, unit *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := p.tmpl.Execute(w, newView(unit)); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
