package charstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWordSkipsWhitespaceAndSplitsOnIt(t *testing.T) {
	cs := New("  foo   bar\tbaz\n")
	w, err := cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "foo", w)

	w, err = cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "bar", w)

	w, err = cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "baz", w)

	_, err = cs.NextWord()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestNextCharAdvancesOneRuneAtATime(t *testing.T) {
	cs := New("ab")
	r, err := cs.NextChar()
	require.NoError(t, err)
	assert.Equal(t, 'a', r)

	r, err = cs.NextChar()
	require.NoError(t, err)
	assert.Equal(t, 'b', r)

	_, err = cs.NextChar()
	assert.True(t, errors.Is(err, ErrEndOfStream))
}

func TestWriteAppendsWithoutDisturbingReadCursor(t *testing.T) {
	cs := New("foo")
	w, err := cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "foo", w)

	// The stream looked exhausted, a REPL injects more text...
	_, err = cs.NextWord()
	require.Error(t, err)

	cs.Write(" bar")
	w, err = cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "bar", w)
}

func TestLastWordStartTracksMostRecentWordOrigin(t *testing.T) {
	cs := New("  foo bar")
	_, err := cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, 2, cs.LastWordStart())

	_, err = cs.NextWord()
	require.NoError(t, err)
	assert.Equal(t, 6, cs.LastWordStart())
}

func TestCloneIsIndependent(t *testing.T) {
	cs := New("foo bar")
	_, err := cs.NextWord()
	require.NoError(t, err)

	clone := cs.Clone()
	_, err = cs.NextWord()
	require.NoError(t, err)

	w, err := clone.NextWord()
	require.NoError(t, err)
	assert.Equal(t, "bar", w, "clone must read from its own independent cursor/backing array")
}
