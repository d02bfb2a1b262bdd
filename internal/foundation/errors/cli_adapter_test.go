package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("no target files specified").Build(), expected: 2},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "resolve", err: ResolveError("missing include").Build(), expected: 9},
		{name: "write", err: NewError(CategoryWrite, "stream failed").Build(), expected: 11},
		{name: "internal", err: InternalError("boom").Build(), expected: 10},
		{name: "unclassified", err: errors.New("unknown error"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	userErr := ResolveError("unresolved include").WithContext("file", "a.js").Build()
	if got := quiet.FormatError(userErr); !strings.Contains(got, "file=a.js") {
		t.Errorf("expected user-actionable error to show context, got %q", got)
	}

	internal := InternalError("nil session").Build()
	if got := quiet.FormatError(internal); !strings.Contains(got, "use -v") {
		t.Errorf("expected internal error to be hidden, got %q", got)
	}
	if got := verbose.FormatError(internal); !strings.Contains(got, "nil session") {
		t.Errorf("expected verbose output to show message, got %q", got)
	}
	if got := quiet.FormatError(errors.New("plain")); got != "Error: plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out bytes.Buffer
	code := -1
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	adapter.out = &out
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(NewError(CategoryPackage, "mkdir failed").Build())

	if code != 11 {
		t.Errorf("exit code = %d, want 11", code)
	}
	if !strings.Contains(out.String(), "package failed") {
		t.Errorf("unexpected output %q", out.String())
	}
}
