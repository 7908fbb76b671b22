// Package copyhistory implements the nearest-common-dominator search of
// spec section 4.11 (C11): given a per-file copy-history DAG (children
// point to the parents they were copied from) and a set of history
// nodes, find the closest node through which every path from a virtual
// entry to the set must pass. Grounded on the Cooper-Harvey-Kennedy
// iterative dominator algorithm in original_source's
// lib/src/graph_dominators.rs, ported from its generic DominatorFinder<T>.
package copyhistory

import "fmt"

// index is an internal node id; nodes are renumbered for the duration
// of a single Graph so the dominator fixpoint loop runs over dense
// integer arrays rather than a map keyed by T.
type index int

// Graph is the generic Cooper-Harvey-Kennedy dominator graph: a forward
// adjacency list over T-typed nodes augmented with a virtual entry that
// points at every node with no incoming edge, so the graph always has a
// single well-defined entry regardless of how many natural roots the
// caller's DAG has.
type Graph[T comparable] struct {
	nodeToID map[T]index
	idToNode []T
	adj      [][]index
	revAdj   [][]index
	entry    index
}

// Edge is a directed edge (From, To) in the graph being built.
type Edge[T comparable] struct {
	From, To T
}

// NewGraph builds a Graph from a node list (duplicates ignored, order
// of first occurrence preserved) and an edge list. It returns an error
// if an edge names a node absent from nodes, or if every node already
// has an incoming edge (leaving no natural entry for the virtual entry
// to attach to).
func NewGraph[T comparable](nodes []T, edges []Edge[T]) (*Graph[T], error) {
	nodeToID := make(map[T]index, len(nodes))
	idToNode := make([]T, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := nodeToID[n]; ok {
			continue
		}
		nodeToID[n] = index(len(idToNode))
		idToNode = append(idToNode, n)
	}

	n := index(len(idToNode))
	entry := n
	adj := make([][]index, n+1)
	revAdj := make([][]index, n+1)

	for _, e := range edges {
		u, ok := nodeToID[e.From]
		if !ok {
			return nil, fmt.Errorf("copyhistory: edge contains unknown node")
		}
		v, ok := nodeToID[e.To]
		if !ok {
			return nil, fmt.Errorf("copyhistory: edge contains unknown node")
		}
		if u == v {
			continue // self loops never affect dominance
		}
		adj[u] = append(adj[u], v)
		revAdj[v] = append(revAdj[v], u)
	}

	hasEntry := false
	for i := index(0); i < n; i++ {
		if len(revAdj[i]) == 0 {
			revAdj[i] = append(revAdj[i], entry)
			adj[entry] = append(adj[entry], i)
			hasEntry = true
		}
	}
	if !hasEntry {
		return nil, fmt.Errorf("copyhistory: graph has no entry node")
	}

	return &Graph[T]{nodeToID: nodeToID, idToNode: idToNode, adj: adj, revAdj: revAdj, entry: entry}, nil
}

// ClosestCommonDominator returns the node d such that every path from
// the virtual entry to any node in targetSet passes through d, and no
// strict descendant of d (in the dominator tree) has the same property.
// It returns found=false when the only common dominator is the virtual
// entry itself (i.e. targetSet has no closest common dominator among
// real nodes), and an error if targetSet names an unknown node.
func (g *Graph[T]) ClosestCommonDominator(targetSet []T) (dominator T, found bool, err error) {
	targets := make([]index, len(targetSet))
	for i, n := range targetSet {
		id, ok := g.nodeToID[n]
		if !ok {
			return dominator, false, fmt.Errorf("copyhistory: target set contains unknown node")
		}
		targets[i] = id
	}
	if len(targets) == 0 {
		return dominator, false, nil
	}

	order := reversePostOrder(g.adj, g.entry)
	orderIndex := make(map[index]int, len(order))
	for i, u := range order {
		orderIndex[u] = i
	}

	// idom[x] == unassigned means "no immediate dominator computed yet",
	// matching the original's Option<Index>::None: a node with no path
	// yet found from entry, distinct from idom[x] == 0 (a real node).
	const unassigned index = -1
	idom := make([]index, len(g.idToNode)+1)
	for i := range idom {
		idom[i] = unassigned
	}
	idom[g.entry] = g.entry

	for {
		changed := false
		for _, u := range order {
			if u == g.entry {
				continue
			}
			preds := g.revAdj[u]
			if len(preds) == 0 {
				continue
			}
			candidate := unassigned
			for _, p := range preds {
				if idom[p] != unassigned {
					candidate = p
					break
				}
			}
			if candidate == unassigned {
				continue
			}
			for _, p := range preds {
				if idom[p] != unassigned {
					candidate = intersect(candidate, p, idom, orderIndex)
				}
			}
			if idom[u] != candidate {
				idom[u] = candidate
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	lca := targets[0]
	for _, t := range targets[1:] {
		lca = findLCA(lca, t, idom, g.entry)
	}
	if lca == g.entry {
		return dominator, false, nil
	}
	return g.idToNode[lca], true, nil
}

func intersect(b1, b2 index, idom []index, orderIndex map[index]int) index {
	for b1 != b2 {
		for orderIndex[b1] > orderIndex[b2] {
			b1 = idom[b1]
		}
		for orderIndex[b2] > orderIndex[b1] {
			b2 = idom[b2]
		}
	}
	return b1
}

func findLCA(u, v index, idom []index, root index) index {
	const unassigned index = -1
	onPathToU := map[index]bool{}
	for curr := u; ; {
		onPathToU[curr] = true
		if curr == root {
			break
		}
		p := idom[curr]
		if p == unassigned || p == curr {
			break
		}
		curr = p
	}
	for curr := v; ; {
		if onPathToU[curr] {
			return curr
		}
		if curr == root {
			break
		}
		p := idom[curr]
		if p == unassigned || p == curr {
			break
		}
		curr = p
	}
	return root
}

// reversePostOrder returns a DFS reverse postorder of graph starting at
// root, visiting each reachable node exactly once.
func reversePostOrder(graph [][]index, root index) []index {
	visited := make(map[index]bool, len(graph))
	var order []index
	var stack []struct {
		node     index
		children []index
		i        int
	}
	stack = append(stack, struct {
		node     index
		children []index
		i        int
	}{root, graph[root], 0})
	visited[root] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.i < len(top.children) {
			next := top.children[top.i]
			top.i++
			if !visited[next] {
				visited[next] = true
				stack = append(stack, struct {
					node     index
					children []index
					i        int
				}{next, graph[next], 0})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	// order is currently a postorder; reverse it in place.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
