package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RunsCompile(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var calls atomic.Int32
	var got atomic.Value
	id, err := s.Every(context.Background(), 20*time.Millisecond, []string{"a.js", "b.js"}, func(_ context.Context, files []string) error {
		got.Store(files)
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	defer func() { _ = s.Stop() }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a.js", "b.js"}, got.Load())
}

func TestEvery_DoesNotOverlap(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var running, maxRunning, calls atomic.Int32
	_, err = s.Every(context.Background(), 10*time.Millisecond, nil, func(context.Context, []string) error {
		n := running.Add(1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		time.Sleep(40 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.EqualValues(t, 1, maxRunning.Load())
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	_, err = s.Every(context.Background(), 0, nil, func(context.Context, []string) error { return nil })
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
