package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCycleID       = "cycle_id"
	KeyFile          = "file"
	KeyTarget        = "target"
	KeyStage         = "stage"
	KeyFormat        = "format"
	KeyPostprocessor = "postprocessor"
	KeyFiletype      = "filetype"
	KeyCount         = "count"
	KeyDurationMS    = "duration_ms"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func CycleID(id string) slog.Attr       { return slog.String(KeyCycleID, id) }
func File(path string) slog.Attr        { return slog.String(KeyFile, path) }
func Target(path string) slog.Attr      { return slog.String(KeyTarget, path) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Format(name string) slog.Attr      { return slog.String(KeyFormat, name) }
func Postprocessor(n string) slog.Attr  { return slog.String(KeyPostprocessor, n) }
func Filetype(ft string) slog.Attr      { return slog.String(KeyFiletype, ft) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
