package conflict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func eqInt(a, b int) bool { return a == b }
func lessInt(a, b int) bool { return a < b }

func TestNewRejectsEvenLength(t *testing.T) {
	_, err := New([]int{1, 2})
	require.Error(t, err)
	var evenErr *ErrEvenLength
	require.ErrorAs(t, err, &evenErr)
}

func TestResolvedRoundTrip(t *testing.T) {
	m := Resolved(42)
	require.True(t, m.IsResolved())
	v, ok := m.AsResolved()
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestTrivialResolutionLaw(t *testing.T) {
	// add0=5, remove1=3, add1=3: the remove cancels the second add,
	// leaving a single surviving add (5).
	m, err := New([]int{5, 3, 3})
	require.NoError(t, err)
	v, ok := ResolveTrivial(m, eqInt)
	require.True(t, ok)
	require.Equal(t, 5, v)
}

func TestTrivialResolutionLawNoCancellation(t *testing.T) {
	m, err := New([]int{1, 2, 3})
	require.NoError(t, err)
	_, ok := ResolveTrivial(m, eqInt)
	require.False(t, ok)
}

func TestFlattenSimpleNesting(t *testing.T) {
	// outer = Resolved(1) - Resolved(2) + Resolved(3)
	a0 := Resolved(1)
	r1 := Resolved(2)
	a2 := Resolved(3)
	outer, err := New([]Merge[int]{a0, r1, a2})
	require.NoError(t, err)
	flat := Flatten(outer)
	require.Equal(t, []int{1, 2, 3}, flat.Values())
}

func TestFlattenNestedRemove(t *testing.T) {
	// outer = 10 - (20 - 21 + 22) + 30
	inner, err := New([]int{20, 21, 22})
	require.NoError(t, err)
	outer, err := New([]Merge[int]{Resolved(10), inner, Resolved(30)})
	require.NoError(t, err)
	flat := Flatten(outer)
	require.Equal(t, []int{10, 20, 21, 22, 30}, flat.Values())
}

func TestEqualUpToCancellation(t *testing.T) {
	a, err := New([]int{5, 3, 3})
	require.NoError(t, err)
	b := Resolved(5)
	require.True(t, EqualUpToCancellation(a, b, eqInt, lessInt))
}

func TestEqualUpToCancellationOrderInsensitive(t *testing.T) {
	a, err := New([]int{1, 9, 2, 8, 3})
	require.NoError(t, err)
	b, err := New([]int{3, 8, 2, 9, 1})
	require.NoError(t, err)
	require.True(t, EqualUpToCancellation(a, b, eqInt, lessInt))
}
