package copyhistory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/ids"
)

func hashOf(s string) ids.Hash { return ids.Of([]byte(s)) }

func TestHistoryNearestCommonDominator(t *testing.T) {
	root := hashOf("origin")
	left := hashOf("copy-left")
	right := hashOf("copy-right")
	merged := hashOf("copy-merged")

	nodes := []Node{
		{ID: root},
		{ID: left, Parents: []ids.Hash{root}},
		{ID: right, Parents: []ids.Hash{root}},
		{ID: merged, Parents: []ids.Hash{left, right}},
	}
	h, err := New(nodes)
	require.NoError(t, err)

	got, found, err := h.NearestCommonDominator([]ids.Hash{left, right})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, root, got)

	got, found, err = h.NearestCommonDominator([]ids.Hash{merged})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, merged, got)
}

func TestHistoryDisjointRootsHaveNoCommonDominator(t *testing.T) {
	a := hashOf("a")
	b := hashOf("b")
	nodes := []Node{{ID: a}, {ID: b}}
	h, err := New(nodes)
	require.NoError(t, err)

	_, found, err := h.NearestCommonDominator([]ids.Hash{a, b})
	require.NoError(t, err)
	require.False(t, found)
}

func TestHistoryUnknownTargetErrors(t *testing.T) {
	a := hashOf("a")
	nodes := []Node{{ID: a}}
	h, err := New(nodes)
	require.NoError(t, err)

	_, _, err = h.NearestCommonDominator([]ids.Hash{hashOf("unknown")})
	require.Error(t, err)
}
