package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/interleave/internal/alias"
	"git.home.luguber.info/inful/interleave/internal/directive"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

type fixture struct {
	base   string
	target string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{base: filepath.Join(root, "src"), target: filepath.Join(root, "dist")}
	require.NoError(t, os.MkdirAll(f.base, 0o755))
	for name, content := range files {
		path := filepath.Join(f.base, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return f
}

func (f fixture) controller(t *testing.T, opts Options, deps Deps) *Controller {
	t.Helper()
	opts.Basedir = f.base
	opts.Target = f.target
	c, err := New(opts, deps)
	require.NoError(t, err)
	return c
}

func (f fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.target, name))
	require.NoError(t, err)
	return string(data)
}

// cycleLog records observer notifications.
type cycleLog struct {
	mu     sync.Mutex
	starts []CycleInfo
	stages []StageResult
	dones  []CycleResult
	onDone func(CycleResult)
}

func (l *cycleLog) OnCycleStart(_ context.Context, info CycleInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = append(l.starts, info)
}

func (l *cycleLog) OnStageComplete(_ context.Context, r StageResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, r)
}

func (l *cycleLog) OnCycleDone(_ context.Context, r CycleResult) {
	if l.onDone != nil {
		l.onDone(r)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dones = append(l.dones, r)
}

func (l *cycleLog) done() []CycleResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]CycleResult(nil), l.dones...)
}

func TestRun_SingleFileIsWrittenUnderTarget(t *testing.T) {
	f := newFixture(t, map[string]string{
		"readme.js":     "//= lib/helper\nconsole.log('readme');\n",
		"lib/helper.js": "function helper() {}\n",
	})
	log := &cycleLog{}
	c := f.controller(t, Options{}, Deps{Observers: []Observer{log}})

	require.NoError(t, c.Run(context.Background(), []string{"readme.js"}))

	assert.Equal(t, "function helper() {}\nconsole.log('readme');\n", f.read(t, "readme.js"))
	dones := log.done()
	require.Len(t, dones, 1)
	assert.Equal(t, []string{filepath.Join(f.target, "readme.js")}, dones[0].Outputs)
	assert.Equal(t, TriggerRun, dones[0].Trigger)
}

func TestRun_ConcatNamesUnitAfterFirstFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.js": "var a = 1;\n",
		"b.js": "var b = 2;\n",
	})
	log := &cycleLog{}
	c := f.controller(t, Options{Concat: true}, Deps{Observers: []Observer{log}})

	require.NoError(t, c.Run(context.Background(), []string{"a.js", "b.js"}))

	assert.Equal(t, "var a = 1;\nvar b = 2;\n", f.read(t, "a.js"))
	assert.NoFileExists(t, filepath.Join(f.target, "b.js"))
	require.Len(t, log.done(), 1)
	assert.Equal(t, 1, log.done()[0].Units)
}

func TestRun_ExpandsDirectories(t *testing.T) {
	f := newFixture(t, map[string]string{
		"lib/a.js":       "a();\n",
		"lib/b.js":       "b();\n",
		"lib/.hidden.js": "hidden();\n",
	})
	c := f.controller(t, Options{}, Deps{})

	require.NoError(t, c.Run(context.Background(), []string{"lib", "missing.js"}))
	assert.Equal(t, "a();\n", f.read(t, "a.js"))
	assert.Equal(t, "b();\n", f.read(t, "b.js"))
	assert.NoFileExists(t, filepath.Join(f.target, ".hidden.js"))
}

func TestRun_NoTargets(t *testing.T) {
	f := newFixture(t, nil)
	c := f.controller(t, Options{}, Deps{})

	err := c.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTargets)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestCompile_ResolvesStrictlyInOrder(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "a\n", "b.js": "b\n", "c.js": "c\n"})
	delays := map[string]time.Duration{"a.js": 30 * time.Millisecond, "b.js": time.Millisecond, "c.js": 10 * time.Millisecond}

	var (
		mu        sync.Mutex
		order     []string
		active    atomic.Int32
		maxActive atomic.Int32
	)
	resolver := directive.ResolverFunc(func(_ context.Context, content string, opts directive.Options) (directive.Result, error) {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		mu.Lock()
		order = append(order, opts.File)
		mu.Unlock()
		time.Sleep(delays[opts.File])
		return directive.Result{Content: content}, nil
	})

	c := f.controller(t, Options{Concat: true, Output: "bundle.js"}, Deps{Resolver: resolver})
	require.NoError(t, c.Compile(context.Background(), []string{"a.js", "b.js", "c.js"}))

	assert.Equal(t, []string{"a.js", "b.js", "c.js"}, order)
	assert.EqualValues(t, 1, maxActive.Load())
	assert.Equal(t, "a\nb\nc\n", f.read(t, "bundle.js"))
}

func TestCompile_ResolveFailureWritesNothing(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "a\n", "b.js": "b\n", "c.js": "c\n"})
	var calls []string
	resolver := directive.ResolverFunc(func(_ context.Context, content string, opts directive.Options) (directive.Result, error) {
		calls = append(calls, opts.File)
		if opts.File == "b.js" {
			return directive.Result{}, fmt.Errorf("unresolved directive missing")
		}
		return directive.Result{Content: content}, nil
	})
	log := &cycleLog{}
	c := f.controller(t, Options{}, Deps{Resolver: resolver, Observers: []Observer{log}})

	err := c.Compile(context.Background(), []string{"a.js", "b.js", "c.js"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryResolve))
	assert.Equal(t, []string{"a.js", "b.js"}, calls)
	assert.NoDirExists(t, f.target)

	dones := log.done()
	require.Len(t, dones, 1)
	assert.Equal(t, StageCompile, dones[0].Stage)
	assert.Equal(t, 0, dones[0].Units)
	assert.Empty(t, dones[0].Outputs)
	assert.ErrorIs(t, dones[0].Err, err)
}

func TestCompile_ReadFailure(t *testing.T) {
	f := newFixture(t, nil)
	c := f.controller(t, Options{}, Deps{})

	err := c.Compile(context.Background(), []string{"missing.js"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRead))
}

func TestCompile_DoneOncePerCycleAfterIdle(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "a\n"})
	log := &cycleLog{}
	c := f.controller(t, Options{}, Deps{Observers: []Observer{log}})
	log.onDone = func(CycleResult) {
		assert.False(t, c.Session().Processing())
	}

	require.NoError(t, c.Compile(context.Background(), []string{"a.js"}))
	require.Error(t, c.Compile(context.Background(), []string{"missing.js"}))
	require.NoError(t, c.Compile(context.Background(), []string{"a.js"}))

	dones := log.done()
	require.Len(t, dones, 3)
	assert.Len(t, log.starts, 3)
	ids := map[string]int{}
	for _, d := range dones {
		ids[d.ID]++
	}
	assert.Len(t, ids, 3)
	assert.NoError(t, dones[0].Err)
	assert.Error(t, dones[1].Err)
	assert.NoError(t, dones[2].Err)
}

func TestCompile_RejectsConcurrentCycle(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "a\n"})
	entered := make(chan struct{})
	release := make(chan struct{})
	resolver := directive.ResolverFunc(func(_ context.Context, content string, _ directive.Options) (directive.Result, error) {
		close(entered)
		<-release
		return directive.Result{Content: content}, nil
	})
	log := &cycleLog{}
	c := f.controller(t, Options{}, Deps{Resolver: resolver, Observers: []Observer{log}})

	first := make(chan error, 1)
	go func() { first <- c.Compile(context.Background(), []string{"a.js"}) }()
	<-entered

	assert.True(t, c.Session().Processing())
	assert.ErrorIs(t, c.Compile(context.Background(), []string{"a.js"}), ErrCycleInProgress)

	close(release)
	require.NoError(t, <-first)
	assert.False(t, c.Session().Processing())
	assert.Len(t, log.done(), 1)
}

func TestCompile_PackagingBranchSkipsWriter(t *testing.T) {
	f := newFixture(t, map[string]string{"widget.js": "// req: underscore\nvar widget = {};\n"})
	c := f.controller(t, Options{Packages: []string{"amd", "cjs"}, After: []string{"minify"}}, Deps{})

	require.NoError(t, c.Compile(context.Background(), []string{"widget.js"}))

	amd := f.read(t, filepath.Join("pkg", "amd", "widget.js"))
	assert.Contains(t, amd, "define('widget', ['underscore'], function(underscore) {")
	assert.Contains(t, f.read(t, filepath.Join("pkg", "cjs", "widget.js")), "var underscore = require('underscore');")
	assert.NoFileExists(t, filepath.Join(f.target, "widget.js"))
	assert.NoFileExists(t, filepath.Join(f.target, "widget.min.js"))
}

func TestCompile_WrapWritesSingleFormatIntoTarget(t *testing.T) {
	f := newFixture(t, map[string]string{"widget.js": "var widget = {};\n"})
	c := f.controller(t, Options{Packages: []string{"umd"}, Wrap: true}, Deps{})

	require.NoError(t, c.Compile(context.Background(), []string{"widget.js"}))
	assert.Contains(t, f.read(t, "widget.js"), "root.widget = factory();")
}

func TestCompile_PostprocessorsRunAfterWrite(t *testing.T) {
	f := newFixture(t, map[string]string{"app.js": "// note\nrun();\n"})
	log := &cycleLog{}
	c := f.controller(t, Options{After: []string{"minify", "nope"}}, Deps{Observers: []Observer{log}})

	require.NoError(t, c.Compile(context.Background(), []string{"app.js"}))
	assert.Equal(t, "run();\n", f.read(t, "app.min.js"))

	var stages []string
	for _, s := range log.stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{StageCompile, StageCombine, StageWrite, StagePostprocess}, stages)
}

func TestCompile_OutputNameNeedsSingleUnit(t *testing.T) {
	f := newFixture(t, map[string]string{"a.js": "a\n", "b.js": "b\n"})
	log := &cycleLog{}
	c := f.controller(t, Options{Output: "bundle.js"}, Deps{Observers: []Observer{log}})

	err := c.Compile(context.Background(), []string{"a.js", "b.js"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, StageWrite, log.done()[0].Stage)
}

func TestCompile_PassesResolverOptions(t *testing.T) {
	f := newFixture(t, map[string]string{"lib/app.coffee": "x\n"})
	var got directive.Options
	resolver := directive.ResolverFunc(func(_ context.Context, content string, opts directive.Options) (directive.Result, error) {
		got = opts
		return directive.Result{Content: content, Settings: map[string]string{"module": "app-main", "file": "ignored"}}, nil
	})
	c := f.controller(t, Options{
		Conversions: map[string]string{"coffee": "js"},
		Flags:       []string{"debug"},
		Aliases:     []alias.Rule{{Name: "vendor", Replacement: "lib/vendor/"}},
		Data:        map[string]any{"name": "demo"},
		Packages:    []string{"amd"},
	}, Deps{Resolver: resolver})

	require.NoError(t, c.Compile(context.Background(), []string{"lib/app.coffee"}))

	assert.Equal(t, "lib/app.coffee", got.File)
	assert.Equal(t, filepath.Join(f.base, "lib"), got.Cwd)
	assert.Equal(t, "coffee", got.Ext)
	assert.Equal(t, "js", got.Filetype)
	assert.True(t, got.Flags["debug"])
	assert.Equal(t, "demo", got.Data["name"])
	assert.Equal(t, "lib/vendor/x", got.Aliases.Resolve("vendor!x"))

	assert.Contains(t, f.read(t, filepath.Join("pkg", "amd", "lib", "app.coffee")), "define('app-main'")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Packages: []string{"amd", "nope"}}, Deps{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = New(Options{Packages: []string{"amd", "cjs"}, Wrap: true}, Deps{})
	require.Error(t, err)

	_, err = New(Options{Aliases: []alias.Rule{{Name: "", Replacement: "x/"}}}, Deps{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestWithTrigger(t *testing.T) {
	assert.Equal(t, TriggerRun, triggerFrom(context.Background()))
	assert.Equal(t, TriggerSchedule, triggerFrom(WithTrigger(context.Background(), TriggerSchedule)))
}
