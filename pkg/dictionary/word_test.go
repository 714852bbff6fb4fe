package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocorr/sloth/pkg/value"
)

func TestDictionaryInsertTracksLastWord(t *testing.T) {
	d := New(nil)
	w1 := NewDefined("foo")
	w2 := NewDefined("bar")
	d.Insert(w1)
	d.Insert(w2)

	got, ok := d.Lookup("foo")
	require.True(t, ok)
	assert.Same(t, w1, got)
	assert.Same(t, w2, d.LastWord())
}

func TestDictionaryInsertWarnsOnRedefinition(t *testing.T) {
	d := New(nil)
	d.Warn = true
	var got string
	d.Out = func(s string) { got = s }

	d.Insert(NewDefined("foo"))
	assert.Empty(t, got)
	d.Insert(NewDefined("foo"))
	assert.Contains(t, got, "foo")
}

func TestDictionaryCloneIsIndependentButSharesUnmodifiedWords(t *testing.T) {
	d := New(map[string]Word{"x": NewBuiltin("x", nil, false, "", "")})
	clone := d.Clone()

	clone.Insert(NewDefined("y"))
	_, ok := d.Lookup("y")
	assert.False(t, ok, "inserting into the clone must not affect the original")

	_, ok = clone.Lookup("x")
	assert.True(t, ok)
}

func TestDefinedWordCloneHasIndependentCodeVector(t *testing.T) {
	w := NewDefined("foo")
	w.Append(value.Integer(1))
	clone := w.Clone().(*DefinedWord)

	clone.Append(value.Integer(2))
	assert.Equal(t, []value.Value{value.Integer(1)}, w.Code())
	assert.Equal(t, []value.Value{value.Integer(1), value.Integer(2)}, clone.Code())
}

func TestDefinedWordAtAndSetAtBoundsCheck(t *testing.T) {
	w := NewDefined("foo")
	w.Append(value.Integer(1))

	_, err := w.At(1)
	assert.Error(t, err)

	require.NoError(t, w.SetAt(0, value.Integer(9)))
	v, err := w.At(0)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(9), v)
}

func TestDictionaryMergeSkipsHiddenWords(t *testing.T) {
	src := New(nil)
	pub := NewDefined("public")
	hid := NewDefined("secret")
	hid.SetHidden(true)
	src.Insert(pub)
	src.Insert(hid)

	dst := New(nil)
	dst.Merge(src)

	_, ok := dst.Lookup("public")
	assert.True(t, ok)
	_, ok = dst.Lookup("secret")
	assert.False(t, ok)
}
