package copyhistory

import "github.com/chronoscope/chrono/modules/chrono/ids"

// Node is one entry in a per-file copy-history DAG: a historical
// version of the file's content or name, pointing at the parent
// versions it was copied or renamed from.
type Node struct {
	ID      ids.Hash
	Parents []ids.Hash
}

// History is a per-file copy-history DAG compiled once for repeated
// nearest-common-dominator queries (spec section 4.11). The dominator
// graph is built with edges oriented parent-to-child, so the virtual
// entry (attached to every node with no recorded parent) dominates the
// whole history the way a file's point of origin dominates every copy
// and rename descended from it.
type History struct {
	graph *Graph[ids.Hash]
}

// New compiles nodes into a History. It errors if a node's Parents
// names a node not present in nodes, or if the node set has no entry
// point (every node has at least one recorded parent within the set,
// so the virtual entry would have nothing to attach to).
func New(nodes []Node) (*History, error) {
	nodeIDs := make([]ids.Hash, len(nodes))
	var edges []Edge[ids.Hash]
	for i, n := range nodes {
		nodeIDs[i] = n.ID
	}
	for _, n := range nodes {
		for _, p := range n.Parents {
			edges = append(edges, Edge[ids.Hash]{From: p, To: n.ID})
		}
	}
	g, err := NewGraph(nodeIDs, edges)
	if err != nil {
		return nil, err
	}
	return &History{graph: g}, nil
}

// NearestCommonDominator returns the closest node that dominates every
// node in targets: the node d such that every path from the file's
// virtual point of origin to any node in targets passes through d, and
// no strict descendant of d has the same property (spec section 4.11's
// contract). found is false when targets is empty or when the only
// common dominator is the virtual entry (the nodes in targets share no
// real common ancestor in this history).
func (h *History) NearestCommonDominator(targets []ids.Hash) (ids.Hash, bool, error) {
	return h.graph.ClosestCommonDominator(targets)
}
