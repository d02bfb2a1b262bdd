// Package plugin provides the named capability registries used by the build
// pipeline. Combiners, packagers and postprocessors are registered once at
// startup from a fixed set and looked up by the names users put in their
// configuration.
package plugin

import (
	"fmt"
	"strings"
)

// Plugin is anything that can be registered under a name.
type Plugin interface {
	// Metadata returns the plugin's identity and capabilities.
	Metadata() PluginMetadata
}

// PluginMetadata describes a plugin's identity and capabilities.
type PluginMetadata struct {
	// Name is the unique identifier used in configuration (e.g., "amd", "lint").
	Name string

	// Type identifies the pipeline capability.
	Type PluginType

	// Description provides a human-readable summary of the plugin's purpose.
	Description string

	// Extensions restricts the files a postprocessor receives (".js", ".css").
	// Empty means every file.
	Extensions []string
}

// String returns a human-readable representation of the plugin metadata.
func (m PluginMetadata) String() string {
	if len(m.Extensions) == 0 {
		return fmt.Sprintf("%s (%s)", m.Name, m.Type)
	}
	return fmt.Sprintf("%s (%s: %s)", m.Name, m.Type, strings.Join(m.Extensions, ","))
}

// Validate checks if the plugin metadata is valid.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %s", m.Type)
	}
	for _, ext := range m.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("plugin %s: extension %q must start with a dot", m.Name, ext)
		}
	}
	return nil
}

// Supports reports whether a file path matches the declared extensions.
func (m PluginMetadata) Supports(ext string) bool {
	if len(m.Extensions) == 0 {
		return true
	}
	for _, e := range m.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
