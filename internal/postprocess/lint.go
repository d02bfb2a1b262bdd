package postprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/interleave/internal/plugin"
)

const defaultMaxLineLength = 120

// Issue is one lint finding.
type Issue struct {
	File    string
	Line    int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.File, i.Line, i.Message)
}

// Lint checks JavaScript and CSS output for whitespace problems, overlong
// lines and unbalanced brackets.
type Lint struct {
	// MaxLineLength defaults to 120 when zero.
	MaxLineLength int
}

func (Lint) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "lint",
		Type:        plugin.PluginTypePostprocessor,
		Description: "report trailing whitespace, tabs, long lines and unbalanced brackets",
		Extensions:  []string{".js", ".css"},
	}
}

func (l Lint) Process(ctx context.Context, _ Session, files []string) error {
	var issues []Issue
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		issues = append(issues, l.Check(f, string(data))...)
	}
	if len(issues) == 0 {
		return nil
	}

	shown := issues
	if len(shown) > 10 {
		shown = shown[:10]
	}
	msgs := make([]string, len(shown))
	for i, is := range shown {
		msgs[i] = is.String()
	}
	return fmt.Errorf("%d lint issue(s): %s", len(issues), strings.Join(msgs, "; "))
}

// Check returns the issues found in content.
func (l Lint) Check(file, content string) []Issue {
	limit := l.MaxLineLength
	if limit <= 0 {
		limit = defaultMaxLineLength
	}

	var issues []Issue
	for n, line := range strings.Split(content, "\n") {
		no := n + 1
		if strings.TrimRight(line, " \t") != line {
			issues = append(issues, Issue{File: file, Line: no, Message: "trailing whitespace"})
		}
		if strings.Contains(line, "\t") {
			issues = append(issues, Issue{File: file, Line: no, Message: "tab character"})
		}
		if utf8.RuneCountInString(line) > limit {
			issues = append(issues, Issue{File: file, Line: no, Message: fmt.Sprintf("line longer than %d characters", limit)})
		}
	}
	return append(issues, checkBrackets(file, content)...)
}

type opening struct {
	char byte
	line int
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

func checkBrackets(file, content string) []Issue {
	var (
		issues []Issue
		stack  []opening
		line   = 1
	)
	for _, seg := range segments(content, hasLineComments(filepath.Ext(file))) {
		if seg.kind != segCode {
			line += strings.Count(seg.text, "\n")
			continue
		}
		for i := 0; i < len(seg.text); i++ {
			c := seg.text[i]
			switch c {
			case '\n':
				line++
			case '(', '[', '{':
				stack = append(stack, opening{char: c, line: line})
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1].char != closers[c] {
					issues = append(issues, Issue{File: file, Line: line, Message: fmt.Sprintf("unexpected %q", c)})
					continue
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	for _, o := range stack {
		issues = append(issues, Issue{File: file, Line: o.line, Message: fmt.Sprintf("unclosed %q", o.char)})
	}
	return issues
}
