// Package refs discovers the modules and files an output unit refers to, so
// packagers can declare dependencies.
package refs

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Source records how a reference was found.
type Source string

const (
	SourceRequire Source = "require"
	SourceImport  Source = "import"
	SourceHint    Source = "hint"
	SourceCSS     Source = "css-import"
	SourceHTML    Source = "html"
)

// Ref is a single discovered reference.
type Ref struct {
	Name     string `json:"name"`
	Relative bool   `json:"relative"`
	Source   Source `json:"source"`
}

// References is the set of references found in one unit, in discovery order.
type References struct {
	Items []Ref `json:"items"`
}

// External returns the names of non-relative references.
func (r References) External() []string {
	return r.names(func(ref Ref) bool { return !ref.Relative })
}

// Relative returns the names of relative references.
func (r References) Relative() []string {
	return r.names(func(ref Ref) bool { return ref.Relative })
}

// Declared returns references declared with a "// req:" hint. These are the
// dependencies packagers inject; references already written as require or
// import calls are satisfied by the content itself.
func (r References) Declared() []Ref {
	var out []Ref
	for _, ref := range r.Items {
		if ref.Source == SourceHint {
			out = append(out, ref)
		}
	}
	return out
}

func (r References) names(keep func(Ref) bool) []string {
	var out []string
	for _, ref := range r.Items {
		if keep(ref) {
			out = append(out, ref.Name)
		}
	}
	return out
}

// Has reports whether a reference named name is present.
func (r References) Has(name string) bool {
	return slices.ContainsFunc(r.Items, func(ref Ref) bool { return ref.Name == name })
}

// Merge appends references from other whose names are not yet present.
func (r *References) Merge(other References) {
	for _, ref := range other.Items {
		if !r.Has(ref.Name) {
			r.Items = append(r.Items, ref)
		}
	}
}

// Clone returns a copy that shares no backing array with r.
func (r References) Clone() References {
	return References{Items: slices.Clone(r.Items)}
}

var (
	reRequire = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)
	reImport  = regexp.MustCompile(`(?m)^\s*(?:import|export)\s+(?:[\w*{}\s,$]+?\s+from\s+)?['"]([^'"]+)['"]`)
	reHint    = regexp.MustCompile(`(?m)^\s*//\s*req:\s*(.+?)\s*$`)
	reCSS     = regexp.MustCompile(`@import\s+(?:url\(\s*)?['"]?([^'")\s;]+)['"]?\s*\)?`)
)

// Discover scans content according to its filetype. Filetypes other than css
// and html are scanned as JavaScript.
func Discover(content, filetype string) References {
	var found References
	switch strings.ToLower(filetype) {
	case "css", "less", "scss":
		for _, m := range reCSS.FindAllStringSubmatch(content, -1) {
			found.add(m[1], !isURL(m[1]), SourceCSS)
		}
	case "html", "htm":
		found = discoverHTML(content)
	default:
		for _, m := range reHint.FindAllStringSubmatch(content, -1) {
			for _, name := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' }) {
				found.add(name, isRelativeModule(name), SourceHint)
			}
		}
		for _, m := range reRequire.FindAllStringSubmatch(content, -1) {
			found.add(m[1], isRelativeModule(m[1]), SourceRequire)
		}
		for _, m := range reImport.FindAllStringSubmatch(content, -1) {
			found.add(m[1], isRelativeModule(m[1]), SourceImport)
		}
	}
	return found
}

func (r *References) add(name string, relative bool, source Source) {
	if name == "" || r.Has(name) {
		return
	}
	r.Items = append(r.Items, Ref{Name: name, Relative: relative, Source: source})
}

func isRelativeModule(name string) bool {
	return strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/")
}

func isURL(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme != "" && u.Host != ""
}
