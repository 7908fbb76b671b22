package commitindex

import (
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/emirpasic/gods/maps/treemap"
	godsutils "github.com/emirpasic/gods/utils"
)

// WalkRevs returns, in reverse-topological order (children before
// parents, ties broken by descending committer time then descending
// commit id), every commit reachable from heads that is not reachable
// from any root (spec section 4.5's walk_revs). The frontier is a
// gods.TreeMap keyed by generation number: because a commit's
// generation is always strictly greater than any of its parents',
// draining the map from its highest key down is itself a valid
// topological order, with the tie-break applied only within a single
// generation bucket.
func (idx *Index) WalkRevs(heads, roots []ids.Hash) ([]ids.Hash, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	excluded, err := idx.ancestorClosure(roots)
	if err != nil {
		return nil, err
	}

	frontier := treemap.NewWith(godsutils.UInt64Comparator)
	visited := make(map[ids.Hash]bool)
	pushFrontier := func(id ids.Hash) error {
		if visited[id] || excluded[id] {
			return nil
		}
		e, ok := idx.entries[id]
		if !ok {
			return ErrUnknownCommit
		}
		visited[id] = true
		bucket, _ := frontier.Get(e.Generation)
		if bucket == nil {
			frontier.Put(e.Generation, []ids.Hash{id})
		} else {
			frontier.Put(e.Generation, append(bucket.([]ids.Hash), id))
		}
		return nil
	}

	for _, h := range heads {
		if err := pushFrontier(h); err != nil {
			return nil, err
		}
	}

	var out []ids.Hash
	for {
		genKey, bucket := frontier.Max()
		if genKey == nil {
			break
		}
		gen := genKey.(uint64)
		commits := bucket.([]ids.Hash)
		frontier.Remove(gen)
		idx.sortByCommitterThenID(commits)
		for _, id := range commits {
			if !excluded[id] {
				out = append(out, id)
			}
			e := idx.entries[id]
			for _, p := range e.Parents {
				if err := pushFrontier(p); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// ancestorClosure returns the set of roots plus every one of their
// ancestors, used to exclude them (and everything behind them) from a
// WalkRevs result.
func (idx *Index) ancestorClosure(roots []ids.Hash) (map[ids.Hash]bool, error) {
	closure := make(map[ids.Hash]bool)
	var queue []ids.Hash
	for _, r := range roots {
		if !closure[r] {
			closure[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		e, ok := idx.entries[cur]
		if !ok {
			return nil, ErrUnknownCommit
		}
		for _, p := range e.Parents {
			if !closure[p] {
				closure[p] = true
				queue = append(queue, p)
			}
		}
	}
	return closure, nil
}

func (idx *Index) sortByCommitterThenID(commits []ids.Hash) {
	sort.Slice(commits, func(i, j int) bool {
		ei, ej := idx.entries[commits[i]], idx.entries[commits[j]]
		if !ei.CommitterTime.Equal(ej.CommitterTime) {
			return ei.CommitterTime.After(ej.CommitterTime)
		}
		return commits[i].String() > commits[j].String()
	})
}
