package copyhistory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func edges(pairs ...[2]string) []Edge[string] {
	out := make([]Edge[string], len(pairs))
	for i, p := range pairs {
		out[i] = Edge[string]{From: p[0], To: p[1]}
	}
	return out
}

func run(t *testing.T, nodes []string, es []Edge[string], target []string, want string, wantFound bool) {
	t.Helper()
	g, err := NewGraph(nodes, es)
	require.NoError(t, err)
	got, found, err := g.ClosestCommonDominator(target)
	require.NoError(t, err)
	require.Equal(t, wantFound, found)
	if wantFound {
		require.Equal(t, want, got)
	}
}

func TestSplit(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	es := edges([2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"B", "D"}, [2]string{"C", "D"})

	run(t, nodes, es, []string{"A"}, "A", true)
	run(t, nodes, es, []string{"B"}, "B", true)
	run(t, nodes, es, []string{"C"}, "C", true)
	run(t, nodes, es, []string{"D"}, "D", true)
	run(t, nodes, es, []string{"B", "C"}, "A", true)
	run(t, nodes, es, []string{"B", "D"}, "A", true)
	run(t, nodes, es, []string{"B", "C", "D"}, "A", true)
}

func TestLinearChain(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	es := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"})

	run(t, nodes, es, []string{"A", "D"}, "A", true)
	run(t, nodes, es, []string{"B", "D"}, "B", true)
	run(t, nodes, es, []string{"C", "D"}, "C", true)
	run(t, nodes, es, []string{"A", "B", "C", "D"}, "A", true)
}

func TestDisjointNoCommon(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	es := edges([2]string{"A", "B"}, [2]string{"C", "D"})

	run(t, nodes, es, []string{"A", "C"}, "", false)
	run(t, nodes, es, []string{"A", "D"}, "", false)
	run(t, nodes, es, []string{"B", "D"}, "", false)
	run(t, nodes, es, []string{"A"}, "A", true)
}

func TestClassicDiamond(t *testing.T) {
	nodes := []string{"A", "B", "C", "D", "E"}
	es := edges([2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"B", "D"}, [2]string{"C", "D"}, [2]string{"D", "E"})

	run(t, nodes, es, []string{"B", "C"}, "A", true)
	run(t, nodes, es, []string{"B", "E"}, "A", true)
	run(t, nodes, es, []string{"D"}, "D", true)
	run(t, nodes, es, []string{"D", "E"}, "D", true)
}

func TestBasicYShape(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	es := edges([2]string{"A", "C"}, [2]string{"B", "C"}, [2]string{"C", "D"})

	run(t, nodes, es, []string{"A", "B"}, "", false)
	run(t, nodes, es, []string{"A", "C"}, "", false)
	run(t, nodes, es, []string{"C", "D"}, "C", true)
}

func TestSingleNode(t *testing.T) {
	run(t, []string{"A"}, nil, []string{"A"}, "A", true)
}

func TestGenericIntegers(t *testing.T) {
	nodes := []int{1, 2, 3}
	es := []Edge[int]{{From: 1, To: 2}, {From: 1, To: 3}}
	g, err := NewGraph(nodes, es)
	require.NoError(t, err)
	got, found, err := g.ClosestCommonDominator([]int{2, 3})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, got)
}

func TestSimpleCycleWithEntry(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	es := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"}, [2]string{"D", "B"})

	run(t, nodes, es, []string{"A", "B"}, "A", true)
	run(t, nodes, es, []string{"B", "C"}, "B", true)
	run(t, nodes, es, []string{"B", "C", "D"}, "B", true)
}

func TestNestedLoops(t *testing.T) {
	nodes := []string{"A", "B", "C", "D", "E"}
	es := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"}, [2]string{"C", "E"}, [2]string{"E", "C"}, [2]string{"D", "B"})

	run(t, nodes, es, []string{"D", "E"}, "C", true)
	run(t, nodes, es, []string{"B", "C", "D", "E"}, "B", true)
}

func TestTree(t *testing.T) {
	nodes := []string{"A", "B", "C", "D", "E"}
	es := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"B", "D"}, [2]string{"A", "E"})

	run(t, nodes, es, []string{"B", "C"}, "B", true)
	run(t, nodes, es, []string{"B", "E"}, "A", true)
	run(t, nodes, es, []string{"C", "E"}, "A", true)
}

func TestSelfLoopHandling(t *testing.T) {
	nodes := []string{"A", "B"}
	es := edges([2]string{"A", "A"}, [2]string{"A", "B"})
	run(t, nodes, es, []string{"A"}, "A", true)
}

func TestMultiEdge(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	es := edges([2]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "C"})
	run(t, nodes, es, []string{"A"}, "A", true)
}

func TestEmptyTargetSet(t *testing.T) {
	nodes := []string{"A", "B"}
	es := edges([2]string{"A", "B"})
	g, err := NewGraph(nodes, es)
	require.NoError(t, err)
	_, found, err := g.ClosestCommonDominator(nil)
	require.NoError(t, err)
	require.False(t, found)
}

func TestEmptyGraphHasNoEntry(t *testing.T) {
	_, err := NewGraph([]string(nil), nil)
	require.Error(t, err)
}

func TestRepeatedNode(t *testing.T) {
	nodes := []string{"A", "B", "A", "B"}
	es := edges([2]string{"A", "B"})
	run(t, nodes, es, []string{"A", "B"}, "A", true)
}

func TestInvalidEdgeNode(t *testing.T) {
	nodes := []string{"A", "B"}
	_, err := NewGraph(nodes, edges([2]string{"A", "C"}))
	require.Error(t, err)
	_, err = NewGraph(nodes, edges([2]string{"C", "A"}))
	require.Error(t, err)
}

func TestInvalidTargetNode(t *testing.T) {
	nodes := []string{"A", "B"}
	es := edges([2]string{"A", "B"})
	g, err := NewGraph(nodes, es)
	require.NoError(t, err)
	_, _, err = g.ClosestCommonDominator([]string{"C"})
	require.Error(t, err)
}
