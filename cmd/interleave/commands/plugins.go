package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/interleave/internal/combine"
	"git.home.luguber.info/inful/interleave/internal/packager"
	"git.home.luguber.info/inful/interleave/internal/plugin"
	"git.home.luguber.info/inful/interleave/internal/postprocess"
)

// PluginsCmd implements the 'plugins' command.
type PluginsCmd struct{}

func (p *PluginsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	return ListPlugins(os.Stdout, postprocess.NewRegistry(cfg.PublishConfig()))
}

// ListPlugins prints every registered plugin grouped by kind.
func ListPlugins(out io.Writer, postprocessors *plugin.Registry[postprocess.Processor]) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	section := func(title string, metas []plugin.PluginMetadata) {
		_, _ = fmt.Fprintf(tw, "%s:\n", title)
		for _, m := range metas {
			ext := "*"
			if len(m.Extensions) > 0 {
				ext = strings.Join(m.Extensions, ",")
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Name, ext, m.Description)
		}
	}

	section("Combine strategies", metadata(combine.NewRegistry()))
	section("Packaging formats", metadata(packager.NewRegistry()))
	section("Postprocessors", metadata(postprocessors))
	return tw.Flush()
}

func metadata[T plugin.Plugin](r *plugin.Registry[T]) []plugin.PluginMetadata {
	list := r.List()
	out := make([]plugin.PluginMetadata, len(list))
	for i, p := range list {
		out[i] = p.Metadata()
	}
	return out
}
