// Package config loads interleave.yaml and turns it into pipeline options.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/interleave/internal/alias"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
	"git.home.luguber.info/inful/interleave/internal/packager"
	"git.home.luguber.info/inful/interleave/internal/pipeline"
	"git.home.luguber.info/inful/interleave/internal/postprocess"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "interleave.yaml"

// AllFormats selects every registered packaging format.
const AllFormats = "all"

const (
	defaultPath          = "."
	defaultBasedir       = "."
	defaultWatchDebounce = 100 * time.Millisecond
)

// Config is the file form of a build session.
type Config struct {
	Path          string            `yaml:"path"`
	Output        string            `yaml:"output,omitempty"`
	Basedir       string            `yaml:"basedir"`
	Targets       []string          `yaml:"targets,omitempty"`
	Concat        bool              `yaml:"concat,omitempty"`
	Watch         bool              `yaml:"watch,omitempty"`
	WatchDebounce time.Duration     `yaml:"watch_debounce,omitempty"`
	Every         time.Duration     `yaml:"every,omitempty"`
	Package       List              `yaml:"package,omitempty"`
	Wrap          string            `yaml:"wrap,omitempty"`
	After         List              `yaml:"after,omitempty"`
	Lint          bool              `yaml:"lint,omitempty"`
	Flags         List              `yaml:"flags,omitempty"`
	Aliases       AliasList         `yaml:"aliases,omitempty"`
	Data          map[string]any    `yaml:"data,omitempty"`
	Conversions   map[string]string `yaml:"conversions,omitempty"`
	Metrics       MetricsConfig     `yaml:"metrics,omitempty"`
	Events        EventsConfig      `yaml:"events,omitempty"`
	Publish       PublishConfig     `yaml:"publish,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address /metrics is served on; empty disables it.
	Listen string `yaml:"listen,omitempty"`
}

// EventsConfig selects where cycle events go.
type EventsConfig struct {
	SQLite string     `yaml:"sqlite,omitempty"`
	NATS   NATSConfig `yaml:"nats,omitempty"`
}

type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// PublishConfig configures the publish postprocessor's bucket.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.Basedir == "" {
		c.Basedir = defaultBasedir
	}
	if c.WatchDebounce == 0 {
		c.WatchDebounce = defaultWatchDebounce
	}
}

// Load reads path after loading .env files from its directory. A missing
// file yields the defaults unless required is set.
func Load(path string, required bool) (*Config, error) {
	if err := loadEnvFiles(filepath.Dir(path)); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load .env file").Build()
	}

	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) && !required {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			UserAction().
			Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).
			UserAction().
			Build()
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown keys, and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Overrides carries command-line values. Zero values leave the file value
// in place.
type Overrides struct {
	Path          string
	Output        string
	Basedir       string
	Watch         bool
	Concat        bool
	Lint          bool
	Package       []string
	Wrap          string
	After         []string
	Flags         []string
	Aliases       []alias.Rule
	Data          map[string]string
	Conversions   map[string]string
	WatchDebounce time.Duration
	Every         time.Duration
	MetricsListen string
	EventsSQLite  string
	NATSURL       string
}

// ApplyOverrides merges command-line values over the file values. List
// values replace, map values and aliases are merged key by key.
func (c *Config) ApplyOverrides(o Overrides) {
	setString(&c.Path, o.Path)
	setString(&c.Output, o.Output)
	setString(&c.Basedir, o.Basedir)
	setString(&c.Wrap, o.Wrap)
	setString(&c.Metrics.Listen, o.MetricsListen)
	setString(&c.Events.SQLite, o.EventsSQLite)
	setString(&c.Events.NATS.URL, o.NATSURL)

	c.Watch = c.Watch || o.Watch
	c.Concat = c.Concat || o.Concat
	c.Lint = c.Lint || o.Lint

	if len(o.Package) > 0 {
		c.Package = splitAll(o.Package)
	}
	if len(o.After) > 0 {
		c.After = splitAll(o.After)
	}
	if len(o.Flags) > 0 {
		c.Flags = splitAll(o.Flags)
	}
	if o.WatchDebounce > 0 {
		c.WatchDebounce = o.WatchDebounce
	}
	if o.Every > 0 {
		c.Every = o.Every
	}

	for _, r := range o.Aliases {
		c.Aliases = c.Aliases.Set(r)
	}
	if len(o.Data) > 0 && c.Data == nil {
		c.Data = make(map[string]any, len(o.Data))
	}
	for k, v := range o.Data {
		c.Data[k] = v
	}
	if len(o.Conversions) > 0 && c.Conversions == nil {
		c.Conversions = make(map[string]string, len(o.Conversions))
	}
	maps.Copy(c.Conversions, o.Conversions)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks values that cannot be caught while decoding.
func (c *Config) Validate() error {
	formats := packager.NewRegistry()

	if c.Wrap != "" && len(c.Package) > 0 {
		return errors.ValidationError("wrap and package cannot be combined").
			WithContext("wrap", c.Wrap).
			WithContext("package", strings.Join(c.Package, ",")).
			Build()
	}
	if c.Wrap != "" && !formats.Has(c.Wrap) {
		return errors.ValidationError("unknown wrap format").
			WithContext("format", c.Wrap).
			WithContext("available", strings.Join(formats.Names(), ",")).
			Build()
	}
	for _, f := range c.Package {
		if f != AllFormats && !formats.Has(f) {
			return errors.ValidationError("unknown packaging format").
				WithContext("format", f).
				WithContext("available", strings.Join(formats.Names(), ",")).
				Build()
		}
	}
	if c.WatchDebounce < 0 || c.Every < 0 {
		return errors.ValidationError("durations must not be negative").
			WithContext("watch_debounce", c.WatchDebounce.String()).
			WithContext("every", c.Every.String()).
			Build()
	}
	if c.Every > 0 && c.Watch {
		return errors.ValidationError("every and watch cannot be combined").Build()
	}
	for _, r := range c.Aliases {
		if r.Name == "" || strings.Contains(r.Name, "!") {
			return errors.ValidationError("invalid alias name").
				WithContext("alias", r.Name).
				Build()
		}
	}
	for ext, ft := range c.Conversions {
		if ext == "" || ft == "" || strings.HasPrefix(ext, ".") {
			return errors.ValidationError("conversions map an extension without dot to a filetype").
				WithContext("extension", ext).
				Build()
		}
	}
	if slices.Contains(c.AfterNames(), "publish") && !c.PublishConfig().Configured() {
		return errors.ValidationError("publish requires publish.endpoint and publish.bucket").Build()
	}
	return nil
}

// AfterNames returns the postprocessor names, with lint appended when enabled.
func (c *Config) AfterNames() []string {
	after := slices.Clone([]string(c.After))
	if c.Lint && !slices.Contains(after, "lint") {
		after = append(after, "lint")
	}
	return after
}

// Formats returns the packaging formats with "all" expanded.
func (c *Config) Formats() []string {
	if c.Wrap != "" {
		return []string{c.Wrap}
	}
	if slices.Contains(c.Package, AllFormats) {
		return packager.NewRegistry().Names()
	}
	return slices.Clone([]string(c.Package))
}

// PipelineOptions converts the configuration for pipeline.New.
func (c *Config) PipelineOptions() pipeline.Options {
	var data map[string]any
	if c.Data != nil {
		data = maps.Clone(c.Data)
	}
	return pipeline.Options{
		Target:        c.Path,
		Output:        c.Output,
		Basedir:       c.Basedir,
		Aliases:       c.Aliases.Rules(),
		After:         c.AfterNames(),
		Data:          data,
		Flags:         slices.Clone([]string(c.Flags)),
		Packages:      c.Formats(),
		Wrap:          c.Wrap != "",
		Conversions:   maps.Clone(c.Conversions),
		Concat:        c.Concat,
		Watch:         c.Watch,
		WatchDebounce: c.WatchDebounce,
	}
}

func (c *Config) PublishConfig() postprocess.PublishConfig {
	return postprocess.PublishConfig{
		Endpoint:  c.Publish.Endpoint,
		Bucket:    c.Publish.Bucket,
		Region:    c.Publish.Region,
		AccessKey: c.Publish.AccessKey,
		SecretKey: c.Publish.SecretKey,
		UseSSL:    c.Publish.UseSSL,
		Prefix:    c.Publish.Prefix,
	}
}
