package packager

import (
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"names": func(deps []Dependency) string {
		out := make([]string, len(deps))
		for i, d := range deps {
			out[i] = "'" + d.Name + "'"
		}
		return strings.Join(out, ", ")
	},
	"vars": func(deps []Dependency) string {
		out := make([]string, len(deps))
		for i, d := range deps {
			out[i] = d.Var
		}
		return strings.Join(out, ", ")
	},
	"each": func(prefix string, deps []Dependency, suffix string) string {
		out := make([]string, len(deps))
		for i, d := range deps {
			out[i] = prefix + d.Var + suffix
		}
		return strings.Join(out, ", ")
	},
	"requires": func(deps []Dependency) string {
		out := make([]string, len(deps))
		for i, d := range deps {
			out[i] = "require('" + d.Name + "')"
		}
		return strings.Join(out, ", ")
	},
}

const amdTemplate = `define('{{.Name}}', [{{names .Deps}}], function({{vars .Deps}}) {
{{.Content}}

return {{.Var}};
});
`

const cjsTemplate = `{{range .Deps}}var {{.Var}} = require('{{.Name}}');
{{end}}{{if .Deps}}
{{end}}{{.Content}}

module.exports = {{.Var}};
`

const umdTemplate = `(function(root, factory) {
  if (typeof define === 'function' && define.amd) {
    define('{{.Name}}', [{{names .Deps}}], factory);
  } else if (typeof exports === 'object') {
    module.exports = factory({{requires .Deps}});
  } else {
    root.{{.Var}} = factory({{each "root." .Deps ""}});
  }
}(this, function({{vars .Deps}}) {
{{.Content}}

return {{.Var}};
}));
`

const globalTemplate = `(function(glob) {
{{range .Deps}}var {{.Var}} = glob.{{.Var}};
{{end}}{{.Content}}

glob.{{.Var}} = {{.Var}};
}(typeof window != 'undefined' ? window : this));
`
