package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/interleave/internal/record"
)

func records() []*record.Record {
	a := record.New("a.js", "var a = 1;\n")
	a.Settings["module"] = "first"
	a.Settings["filetype"] = "js"
	b := record.New("b.js", "var b = 2;\n")
	b.Settings["module"] = "second"
	b.Settings["author"] = "someone"
	return []*record.Record{a, b}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{ConcatName, PassName}, reg.Names())

	s, err := reg.Get(Name(true))
	require.NoError(t, err)
	assert.IsType(t, Concat{}, s)

	s, err = reg.Get(Name(false))
	require.NoError(t, err)
	assert.IsType(t, Pass{}, s)
}

func TestPass(t *testing.T) {
	in := records()
	units, err := Pass{}.Combine(in, Options{Output: "ignored.js"})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "a.js", units[0].File)
	assert.Equal(t, "var a = 1;\n", units[0].Content)
	assert.Equal(t, "b.js", units[1].File)
	assert.Equal(t, "var b = 2;\n", units[1].Content)
}

func TestConcat_NamesAfterFirstRecord(t *testing.T) {
	units, err := Concat{}.Combine(records(), Options{})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "a.js", units[0].File)
	assert.Equal(t, "var a = 1;\nvar b = 2;\n", units[0].Content)
	assert.Equal(t, "first", units[0].Setting("module"))
	assert.Equal(t, "someone", units[0].Setting("author"))
}

func TestConcat_UsesOutputName(t *testing.T) {
	units, err := Concat{}.Combine(records(), Options{Output: "bundle.js"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "bundle.js", units[0].File)
}

func TestConcat_SeparatesUnterminatedContent(t *testing.T) {
	in := []*record.Record{record.New("a.js", "a()"), record.New("b.js", "b()")}
	units, err := Concat{}.Combine(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, "a()\nb()", units[0].Content)
}

func TestConcat_Empty(t *testing.T) {
	units, err := Concat{}.Combine(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, units)
}
