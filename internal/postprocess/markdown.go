package postprocess

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/interleave/internal/plugin"
)

// Markdown renders each Markdown file to an HTML sibling.
type Markdown struct{}

func (Markdown) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "markdown",
		Type:        plugin.PluginTypePostprocessor,
		Description: "render Markdown output to HTML",
		Extensions:  []string{".md", ".markdown"},
	}
}

func (Markdown) Process(ctx context.Context, _ Session, files []string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			return err
		}
		if err := os.WriteFile(HTMLPath(f), buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// HTMLPath returns the path Markdown writes for file.
func HTMLPath(file string) string {
	for _, ext := range []string{".markdown", ".md"} {
		if strings.HasSuffix(file, ext) {
			return strings.TrimSuffix(file, ext) + ".html"
		}
	}
	return file + ".html"
}
