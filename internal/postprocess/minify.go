package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/interleave/internal/plugin"
)

// Minify writes a ".min" sibling of each JavaScript and CSS file with
// comments, indentation and blank lines removed.
type Minify struct{}

func (Minify) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "minify",
		Type:        plugin.PluginTypePostprocessor,
		Description: "write comment-free .min copies of JavaScript and CSS",
		Extensions:  []string{".js", ".css"},
	}
}

func (Minify) Process(ctx context.Context, _ Session, files []string) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := filepath.Ext(f)
		if strings.HasSuffix(strings.TrimSuffix(f, ext), ".min") {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := os.WriteFile(MinPath(f), []byte(Strip(string(data), ext)), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// MinPath returns the path Minify writes for file.
func MinPath(file string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + ".min" + ext
}

// Strip removes comments and collapses whitespace-only structure. String
// literals are kept as written.
func Strip(src, ext string) string {
	var b strings.Builder
	for _, seg := range segments(src, hasLineComments(ext)) {
		if seg.kind != segComment {
			b.WriteString(seg.text)
			continue
		}
		if strings.Contains(seg.text, "\n") {
			b.WriteByte('\n')
		} else if strings.HasPrefix(seg.text, "/*") {
			b.WriteByte(' ')
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
