package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_MergeData(t *testing.T) {
	s := newSession(Options{Data: map[string]any{"name": "kept"}}, nil)

	added := s.MergeData(map[string]any{"name": "ignored", "version": "1.0.0", "license": "MIT"})
	assert.Equal(t, []string{"license", "version"}, added)
	assert.Equal(t, map[string]any{"name": "kept", "version": "1.0.0", "license": "MIT"}, s.Data())
}

func TestSession_DataIsCopied(t *testing.T) {
	s := newSession(Options{}, nil)
	d := s.Data()
	d["x"] = 1
	assert.NotContains(t, s.Data(), "x")
}

func TestSession_StateMachine(t *testing.T) {
	s := newSession(Options{}, nil)
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Processing())

	assert.True(t, s.begin())
	assert.False(t, s.begin())
	assert.True(t, s.Processing())
	assert.Equal(t, "compiling", s.State().String())

	s.end()
	assert.False(t, s.Processing())
}

func TestSession_Filetype(t *testing.T) {
	s := newSession(Options{Conversions: map[string]string{"coffee": "js"}, Flags: []string{"debug", ""}}, nil)
	assert.Equal(t, "js", s.filetype("coffee"))
	assert.Equal(t, "css", s.filetype("css"))
	assert.True(t, s.Flag("debug"))
	assert.False(t, s.Flag(""))
}
