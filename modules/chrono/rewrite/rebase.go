package rewrite

import (
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/mergedtree"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Change seeds the descendant rebaser: old is replaced by the commits in
// With (normally exactly one), or by old's own parents if Abandoned is
// set: a child of an abandoned commit inherits its parents directly, and
// the rebase merge drops the abandoned commit's own changes from the
// child's tree.
type Change struct {
	With      []ids.Hash
	Abandoned bool
}

// RebaseDescendants propagates every seed change in changes forward to
// a fixpoint across all of their descendants (spec section 4.6): each
// descendant's tree is recomputed by a 3-way merge of its old parent
// tree, its new parent tree, and its own tree, and a new commit is
// written carrying the old commit as predecessor and the same change
// id. It returns the complete old-to-replacement mapping, including the
// seed changes themselves.
func RebaseDescendants(idx *commitindex.Index, store *objstore.Store, changes map[ids.Hash]Change) (map[ids.Hash][]ids.Hash, error) {
	replacement := make(map[ids.Hash][]ids.Hash, len(changes))
	for old, ch := range changes {
		if ch.Abandoned {
			parents, err := resolveParents(store, old)
			if err != nil {
				return nil, err
			}
			replacement[old] = parents
			continue
		}
		replacement[old] = append([]ids.Hash(nil), ch.With...)
	}

	order, err := descendantsByGeneration(idx, seedIDs(changes))
	if err != nil {
		return nil, err
	}

	for _, old := range order {
		if _, already := replacement[old]; already {
			continue
		}
		oldCommit, err := store.ReadCommit(old)
		if err != nil {
			return nil, err
		}
		newParents, changed, err := remapParents(replacement, oldCommit.Parents)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		newParents, err = simplifyParents(idx, newParents)
		if err != nil {
			return nil, err
		}
		if len(newParents) == 0 {
			// every parent was replaced by nothing: the root commit
			// becomes the rebased commit's sole parent.
			newParents = []ids.Hash{object.RootCommitID}
		}
		newTree, err := rebaseTree(store, oldCommit, newParents)
		if err != nil {
			return nil, err
		}
		next := *oldCommit
		next.Hash = ids.Hash{}
		next.Parents = newParents
		next.Tree = newTree
		next.MergedTree = nil
		next.Predecessors = []ids.Hash{old}
		id, err := store.WriteCommit(&next)
		if err != nil {
			return nil, err
		}
		if err := idx.Add(id); err != nil {
			return nil, err
		}
		replacement[old] = []ids.Hash{id}
	}
	return replacement, nil
}

// rebaseTree recomputes a commit's tree against its remapped parents by
// a sequence of pairwise 3-way merges (new parent, old parent, running
// tree), one per changed parent, threading the result of each merge
// into the next. This is a documented simplification of the general
// N-way merge-commit rebase problem (see DESIGN.md): it is exact for
// the common single-parent case and a reasonable, order-dependent
// approximation for merge commits with more than one rewritten parent.
func rebaseTree(store *objstore.Store, oldCommit *object.Commit, newParents []ids.Hash) (ids.Hash, error) {
	running := oldCommit.Tree
	if oldCommit.IsMergedTree() {
		// an already-conflicted commit tree has no single root to diff
		// against; materialize it once up front so the merge below has
		// a concrete starting point.
		mt, err := mergedtree.New(store, oldCommit.MergedTree, mergedtree.AcceptSameChange)
		if err != nil {
			return ids.Hash{}, err
		}
		id, err := mergedtree.Materialize(store, mt)
		if err != nil {
			return ids.Hash{}, err
		}
		running = id
	}
	n := len(oldCommit.Parents)
	if len(newParents) < n {
		n = len(newParents)
	}
	for i := 0; i < n; i++ {
		oldParentTree, err := treeOf(store, oldCommit.Parents[i])
		if err != nil {
			return ids.Hash{}, err
		}
		newParentTree, err := treeOf(store, newParents[i])
		if err != nil {
			return ids.Hash{}, err
		}
		if oldParentTree == newParentTree {
			continue
		}
		mt, err := mergedtree.New(store, []ids.Hash{newParentTree, oldParentTree, running}, mergedtree.AcceptSameChange)
		if err != nil {
			return ids.Hash{}, err
		}
		running, err = mergedtree.Materialize(store, mt)
		if err != nil {
			return ids.Hash{}, err
		}
	}
	return running, nil
}

func treeOf(store *objstore.Store, id ids.Hash) (ids.Hash, error) {
	if id == object.RootCommitID {
		return object.EmptyTreeID, nil
	}
	c, err := store.ReadCommit(id)
	if err != nil {
		return ids.Hash{}, err
	}
	if c.IsMergedTree() {
		mt, err := mergedtree.New(store, c.MergedTree, mergedtree.AcceptSameChange)
		if err != nil {
			return ids.Hash{}, err
		}
		return mergedtree.Materialize(store, mt)
	}
	return c.Tree, nil
}

// resolveParents returns old's own parent list, used to splice in place
// of an abandoned commit.
func resolveParents(store *objstore.Store, old ids.Hash) ([]ids.Hash, error) {
	c, err := store.ReadCommit(old)
	if err != nil {
		return nil, err
	}
	if len(c.Parents) == 0 {
		return []ids.Hash{object.RootCommitID}, nil
	}
	return append([]ids.Hash(nil), c.Parents...), nil
}

// remapParents substitutes every parent present in replacement with its
// replacement list (splicing multi-element replacements in place),
// deduplicating while preserving first-seen order. changed reports
// whether any substitution actually happened.
func remapParents(replacement map[ids.Hash][]ids.Hash, parents []ids.Hash) ([]ids.Hash, bool, error) {
	var out []ids.Hash
	seen := make(map[ids.Hash]bool)
	changed := false
	for _, p := range parents {
		repl, ok := replacement[p]
		if !ok {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			continue
		}
		changed = true
		for _, r := range repl {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out, changed, nil
}

// simplifyParents drops any parent that is an ancestor of (or equal to)
// another parent in the same list, the merge-commit analogue of
// oplog's head-set re-simplification.
func simplifyParents(idx *commitindex.Index, parents []ids.Hash) ([]ids.Hash, error) {
	if len(parents) <= 1 {
		return parents, nil
	}
	keep := make([]bool, len(parents))
	for i := range keep {
		keep[i] = true
	}
	for i := range parents {
		for j := range parents {
			if i == j || !keep[i] {
				continue
			}
			if parents[i] == parents[j] {
				if j < i {
					keep[i] = false
				}
				continue
			}
			anc, err := idx.IsAncestor(parents[i], parents[j])
			if err != nil {
				return nil, err
			}
			if anc {
				keep[i] = false
			}
		}
	}
	var out []ids.Hash
	for i, p := range parents {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out, nil
}

func seedIDs(changes map[ids.Hash]Change) []ids.Hash {
	out := make([]ids.Hash, 0, len(changes))
	for id := range changes {
		out = append(out, id)
	}
	return out
}

// descendantsByGeneration returns every commit reachable as a
// descendant of seeds (seeds themselves excluded), ordered so that a
// commit's parents always precede it: a child's generation is always
// strictly greater than any parent's, so a plain ascending sort by
// generation is a valid processing order.
func descendantsByGeneration(idx *commitindex.Index, seeds []ids.Hash) ([]ids.Hash, error) {
	visited := make(map[ids.Hash]bool)
	var frontier []ids.Hash
	for _, s := range seeds {
		visited[s] = true
		frontier = append(frontier, s)
	}
	var order []ids.Hash
	for len(frontier) > 0 {
		var next []ids.Hash
		for _, id := range frontier {
			for _, c := range idx.Children(id) {
				if visited[c] {
					continue
				}
				visited[c] = true
				order = append(order, c)
				next = append(next, c)
			}
		}
		frontier = next
	}
	gen := make(map[ids.Hash]uint64, len(order))
	for _, id := range order {
		e, err := idx.Entry(id)
		if err != nil {
			return nil, err
		}
		gen[id] = e.Generation
	}
	sort.SliceStable(order, func(i, j int) bool { return gen[order[i]] < gen[order[j]] })
	return order, nil
}
