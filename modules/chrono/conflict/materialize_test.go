package conflict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaterializeResolvedIsVerbatim(t *testing.T) {
	m := Resolved([]byte("hello\n"))
	require.Equal(t, []byte("hello\n"), MaterializeText(m))
}

func TestMaterializeParseRoundTripSingleBase(t *testing.T) {
	side1 := []byte("celery\nsalmon\ntomatoes\ngarlic\nonions\nwine\n")
	base := []byte("celery\ngarlic\nonions\nsalmon\ntomatoes\nwine\n")
	side2 := []byte("celery\ngarlic\nsalmon\ntomatoes\nonions\nwine\n")
	m, err := New([][]byte{side1, base, side2})
	require.NoError(t, err)

	rendered := MaterializeText(m)
	parsed, err := ParseText(rendered)
	require.NoError(t, err)

	require.Equal(t, rendered, MaterializeText(parsed))
}

func TestMaterializeParseRoundTripNoConflict(t *testing.T) {
	text := []byte("same\nsame\nsame\n")
	m, err := New([][]byte{text, text, text})
	require.NoError(t, err)

	rendered := MaterializeText(m)
	require.NotContains(t, string(rendered), markerSide1)

	parsed, err := ParseText(rendered)
	require.NoError(t, err)
	v, ok := parsed.AsResolved()
	require.True(t, ok, "a fully-agreeing 3-term merge renders with no markers at all, so ParseText folds it back to a single resolved value")
	require.Equal(t, text, v)
}

func TestParseUnmarkedTextIsResolved(t *testing.T) {
	m, err := ParseText([]byte("plain file, never conflicted\n"))
	require.NoError(t, err)
	v, ok := m.AsResolved()
	require.True(t, ok)
	require.Equal(t, "plain file, never conflicted\n", string(v))
}

func TestMaterializeParseRoundTripMultiBase(t *testing.T) {
	values := [][]byte{
		[]byte("side one\n"),
		[]byte("base one\n"),
		[]byte("side two\n"),
		[]byte("base two\n"),
		[]byte("side three\n"),
	}
	m, err := New(values)
	require.NoError(t, err)

	rendered := MaterializeText(m)
	parsed, err := ParseText(rendered)
	require.NoError(t, err)
	require.Equal(t, values, parsed.Values())
	require.Equal(t, rendered, MaterializeText(parsed))
}

func TestParseMalformedMarkersErrors(t *testing.T) {
	_, err := ParseText([]byte(markerSide1 + " Side #1\nstuff\n"))
	require.Error(t, err)
}
