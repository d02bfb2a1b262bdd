package directive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

const (
	defaultMaxDepth  = 32
	defaultCacheSize = 256
	remoteTimeout    = 30 * time.Second
	maxRemoteBytes   = 8 << 20
)

var (
	reInclude = regexp.MustCompile(`^(\s*)(?://|/\*)=(?:\[([^\]]+)\])?\s*(.*?)\s*(?:\*/)?\s*$`)
	reSetting = regexp.MustCompile(`^\s*(?://|/\*):\s*([\w.\-]+)\s*[=:]?\s*(.*?)\s*(?:\*/)?\s*$`)
)

type cachedFile struct {
	modTime time.Time
	size    int64
	content string
}

// IncludeResolver is the default Resolver.
type IncludeResolver struct {
	cache    *lru.Cache[string, cachedFile]
	client   *http.Client
	maxDepth int
}

// Option configures an IncludeResolver.
type Option func(*IncludeResolver)

// WithHTTPClient sets the client used for http(s) include targets.
func WithHTTPClient(c *http.Client) Option {
	return func(r *IncludeResolver) { r.client = c }
}

// WithMaxDepth bounds include nesting.
func WithMaxDepth(n int) Option {
	return func(r *IncludeResolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// NewIncludeResolver creates a resolver. Included files are read through an
// LRU keyed by path and validated against size and modification time, so a
// changed file is always re-read.
func NewIncludeResolver(opts ...Option) *IncludeResolver {
	cache, err := lru.New[string, cachedFile](defaultCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	r := &IncludeResolver{
		cache:    cache,
		client:   &http.Client{Timeout: remoteTimeout},
		maxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements Resolver.
func (r *IncludeResolver) Resolve(ctx context.Context, content string, opts Options) (Result, error) {
	settings := map[string]string{}
	origin := opts.File
	if origin == "" {
		origin = "<input>"
	}
	self := origin
	if opts.File != "" && opts.Cwd != "" {
		self = filepath.Clean(filepath.Join(opts.Cwd, filepath.Base(opts.File)))
	}
	out, err := r.expand(ctx, content, opts, origin, []string{self}, settings)
	if err != nil {
		return Result{}, err
	}
	if _, ok := settings["filetype"]; !ok && opts.Filetype != "" {
		settings["filetype"] = opts.Filetype
	}
	return Result{Content: out, Settings: settings}, nil
}

// expand processes one level of content. Settings found here win over
// settings from files it includes.
func (r *IncludeResolver) expand(ctx context.Context, content string, opts Options, origin string, stack []string, settings map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	included := map[string]string{}

	for _, line := range lines {
		if m := reSetting.FindStringSubmatch(line); m != nil {
			if _, exists := settings[m[1]]; !exists {
				settings[m[1]] = m[2]
			}
			continue
		}

		m := reInclude.FindStringSubmatch(line)
		if m == nil || m[3] == "" {
			out = append(out, line)
			continue
		}
		indent, flag, raw := m[1], m[2], m[3]
		if flag != "" && !opts.Flags[flag] {
			continue
		}

		text, err := r.include(ctx, raw, opts, origin, stack, included)
		if err != nil {
			return "", err
		}
		out = append(out, indentLines(text, indent))
	}

	for k, v := range included {
		if _, exists := settings[k]; !exists {
			settings[k] = v
		}
	}
	return strings.Join(out, "\n"), nil
}

func (r *IncludeResolver) include(ctx context.Context, raw string, opts Options, origin string, stack []string, settings map[string]string) (string, error) {
	target := opts.Aliases.Resolve(raw)

	if len(stack) >= r.maxDepth {
		return "", resolveErr(nil, "include depth exceeded", raw, origin).WithContext("depth", len(stack)).Build()
	}

	if isRemote(target) {
		if slices.Contains(stack, target) {
			return "", resolveErr(nil, "include cycle", raw, origin).WithContext("chain", strings.Join(append(stack, target), " -> ")).Build()
		}
		body, err := r.fetch(ctx, target)
		if err != nil {
			return "", resolveErr(err, "could not fetch remote include", raw, origin).Retryable().Build()
		}
		return r.expand(ctx, body, opts, target, append(stack, target), settings)
	}

	if filepath.Ext(target) == "" && opts.Ext != "" {
		target += "." + opts.Ext
	}
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.Cwd, target)
	}
	path = filepath.Clean(path)

	if slices.Contains(stack, path) {
		return "", resolveErr(nil, "include cycle", raw, origin).WithContext("chain", strings.Join(append(stack, path), " -> ")).Build()
	}

	body, err := r.read(path)
	if err != nil {
		return "", resolveErr(err, "could not include file", raw, origin).WithContext("path", path).Build()
	}

	nested := opts
	nested.Cwd = filepath.Dir(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		nested.Ext = ext
	}
	return r.expand(ctx, body, nested, path, append(stack, path), settings)
}

func (r *IncludeResolver) read(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if cached, ok := r.cache.Get(path); ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.content, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	r.cache.Add(path, cachedFile{modTime: info.ModTime(), size: info.Size(), content: string(data)})
	return string(data), nil
}

func (r *IncludeResolver) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func resolveErr(cause error, message, directive, origin string) *errors.ErrorBuilder {
	b := errors.ResolveError(message).
		WithContext("directive", directive).
		WithContext("file", origin)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// indentLines prefixes every non-empty line with indent and drops one
// trailing newline so the include does not add a blank line.
func indentLines(text, indent string) string {
	text = strings.TrimSuffix(text, "\n")
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}
