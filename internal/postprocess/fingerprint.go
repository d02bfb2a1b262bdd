package postprocess

import (
	"context"
	"os"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/interleave/internal/plugin"
)

// Fingerprint stamps Markdown output with a content fingerprint in its
// frontmatter.
type Fingerprint struct{}

func (Fingerprint) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "fingerprint",
		Type:        plugin.PluginTypePostprocessor,
		Description: "add a content fingerprint to Markdown frontmatter",
		Extensions:  []string{".md"},
	}
}

func (Fingerprint) Process(ctx context.Context, _ Session, files []string) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if ok, _ := mdfp.VerifyFingerprint(string(data)); ok {
			continue
		}
		updated, err := mdfp.ProcessContent(string(data))
		if err != nil {
			return err
		}
		if err := os.WriteFile(f, []byte(updated), 0o644); err != nil {
			return err
		}
	}
	return nil
}
