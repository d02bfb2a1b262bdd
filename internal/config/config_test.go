package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/interleave/internal/alias"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile), false)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Path)
	assert.Equal(t, ".", cfg.Basedir)
	assert.Equal(t, 100*time.Millisecond, cfg.WatchDebounce)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "custom.yaml"), true)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
path: dist
basedir: src
targets: [main.js, lib]
concat: true
after: minify+markdown
flags: debug, trace
package: [amd, cjs]
watch_debounce: 250ms
every: 5m
aliases:
  zeta: lib/zeta/
  alpha: lib/alpha.js
  mid: vendor/
data:
  name: widget
conversions:
  mjs: js
events:
  sqlite: events.db
  nats:
    url: nats://localhost:4222
    subject: builds
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "dist", cfg.Path)
	assert.Equal(t, "src", cfg.Basedir)
	assert.Equal(t, []string{"main.js", "lib"}, cfg.Targets)
	assert.True(t, cfg.Concat)
	assert.Equal(t, List{"minify", "markdown"}, cfg.After)
	assert.Equal(t, List{"debug", "trace"}, cfg.Flags)
	assert.Equal(t, List{"amd", "cjs"}, cfg.Package)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, 5*time.Minute, cfg.Every)
	assert.Equal(t, []alias.Rule{
		{Name: "zeta", Replacement: "lib/zeta/"},
		{Name: "alpha", Replacement: "lib/alpha.js"},
		{Name: "mid", Replacement: "vendor/"},
	}, cfg.Aliases.Rules())
	assert.Equal(t, "widget", cfg.Data["name"])
	assert.Equal(t, "js", cfg.Conversions["mjs"])
	assert.Equal(t, "events.db", cfg.Events.SQLite)
	assert.Equal(t, "builds", cfg.Events.NATS.Subject)
	require.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "pathh: dist\n")
	_, err := Load(path, true)
	assert.Error(t, err)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("INTERLEAVE_TEST_TARGET", "out")
	path := writeConfig(t, t.TempDir(), "path: ${INTERLEAVE_TEST_TARGET}/js\n")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "out/js", cfg.Path)
}

func TestLoad_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INTERLEAVE_TEST_KEEP", "process")
	t.Cleanup(func() {
		_ = os.Unsetenv("INTERLEAVE_TEST_BUCKET")
		_ = os.Unsetenv("INTERLEAVE_TEST_REGION")
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("INTERLEAVE_TEST_BUCKET=base\nINTERLEAVE_TEST_REGION=eu\nINTERLEAVE_TEST_KEEP=file\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("INTERLEAVE_TEST_BUCKET=local\n"), 0o644))
	path := writeConfig(t, dir, `
publish:
  bucket: ${INTERLEAVE_TEST_BUCKET}
  region: ${INTERLEAVE_TEST_REGION}
  prefix: ${INTERLEAVE_TEST_KEEP}
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Publish.Bucket)
	assert.Equal(t, "eu", cfg.Publish.Region)
	assert.Equal(t, "process", cfg.Publish.Prefix)
}

func TestParse_Example(t *testing.T) {
	cfg, err := Parse([]byte(Example))
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.Path)
	assert.Equal(t, List{"minify"}, cfg.After)
	require.NoError(t, cfg.Validate())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
path: dist
after: [minify]
aliases:
  a: one/
  b: two/
data:
  name: widget
`))
	require.NoError(t, err)

	cfg.ApplyOverrides(Overrides{
		Output:      "bundle.js",
		Watch:       true,
		Lint:        true,
		After:       []string{"markdown,fingerprint"},
		Flags:       []string{"debug"},
		Aliases:     []alias.Rule{{Name: "b", Replacement: "other/"}, {Name: "c", Replacement: "three/"}},
		Data:        map[string]string{"version": "2.0.0"},
		Conversions: map[string]string{"coffee": "js"},
	})

	assert.Equal(t, "dist", cfg.Path)
	assert.Equal(t, "bundle.js", cfg.Output)
	assert.True(t, cfg.Watch)
	assert.Equal(t, []string{"markdown", "fingerprint", "lint"}, cfg.AfterNames())
	assert.Equal(t, []alias.Rule{
		{Name: "a", Replacement: "one/"},
		{Name: "b", Replacement: "other/"},
		{Name: "c", Replacement: "three/"},
	}, cfg.Aliases.Rules())
	assert.Equal(t, map[string]any{"name": "widget", "version": "2.0.0"}, cfg.Data)
	assert.Equal(t, map[string]string{"coffee": "js"}, cfg.Conversions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"wrap with package", Config{Wrap: "umd", Package: List{"amd"}}},
		{"unknown wrap", Config{Wrap: "esm"}},
		{"unknown package", Config{Package: List{"amd", "esm"}}},
		{"negative debounce", Config{WatchDebounce: -time.Second}},
		{"every with watch", Config{Every: time.Minute, Watch: true}},
		{"empty alias", Config{Aliases: AliasList{{Name: "", Replacement: "x/"}}}},
		{"dotted conversion", Config{Conversions: map[string]string{".mjs": "js"}}},
		{"publish without bucket", Config{After: List{"publish"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}

	ok := Config{Package: List{AllFormats}, After: List{"publish"}, Publish: PublishConfig{Endpoint: "s3.local", Bucket: "b"}}
	assert.NoError(t, ok.Validate())
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Package = List{AllFormats}
	opts := cfg.PipelineOptions()
	assert.Equal(t, []string{"amd", "cjs", "global", "umd"}, opts.Packages)
	assert.False(t, opts.Wrap)

	cfg = Default()
	cfg.Wrap = "umd"
	cfg.Data = map[string]any{"name": "w"}
	opts = cfg.PipelineOptions()
	assert.Equal(t, []string{"umd"}, opts.Packages)
	assert.True(t, opts.Wrap)
	assert.Equal(t, ".", opts.Target)
	assert.Equal(t, 100*time.Millisecond, opts.WatchDebounce)

	opts.Data["name"] = "changed"
	assert.Equal(t, "w", cfg.Data["name"])
}

func TestAliasList_MarshalKeepsOrder(t *testing.T) {
	out, err := yaml.Marshal(struct {
		Aliases AliasList `yaml:"aliases"`
	}{AliasList{{Name: "z", Replacement: "1/"}, {Name: "a", Replacement: "2/"}}})
	require.NoError(t, err)
	assert.Equal(t, "aliases:\n    z: 1/\n    a: 2/\n", string(out))
}

func TestList_RejectsMapping(t *testing.T) {
	_, err := Parse([]byte("after:\n  minify: true\n"))
	assert.Error(t, err)
}
