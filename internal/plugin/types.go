package plugin

import (
	"errors"
	"fmt"
)

// PluginType identifies the pipeline capability a plugin provides.
type PluginType string

const (
	// PluginTypeCombiner merges compiled records into output units.
	PluginTypeCombiner PluginType = "combiner"

	// PluginTypePackager wraps output units into a module-loading convention.
	PluginTypePackager PluginType = "packager"

	// PluginTypePostprocessor runs over files after they are written.
	PluginTypePostprocessor PluginType = "postprocessor"
)

// IsValid returns true if the plugin type is recognized.
func (t PluginType) IsValid() bool {
	switch t {
	case PluginTypeCombiner, PluginTypePackager, PluginTypePostprocessor:
		return true
	default:
		return false
	}
}

// String returns the string representation of the plugin type.
func (t PluginType) String() string {
	return string(t)
}

// ErrNotFound is returned when a plugin name is not registered.
var ErrNotFound = errors.New("plugin not found")

// PluginError represents an error that occurred within a plugin.
type PluginError struct {
	// PluginName identifies which plugin failed.
	PluginName string

	// Operation describes what the plugin was doing when it failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, operation string, err error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		Operation:  operation,
		Err:        err,
	}
}
