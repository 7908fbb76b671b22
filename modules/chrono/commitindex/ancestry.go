package commitindex

import "github.com/chronoscope/chrono/modules/chrono/ids"

func ancestorCacheKey(a, b ids.Hash) string {
	return a.String() + ":" + b.String()
}

// IsAncestor reports whether a is an ancestor of (or equal to) b, in
// O(distance) by pruning the parent-walk from b as soon as a branch's
// generation drops below generation(a) (spec section 4.5 and the
// ancestor-monotonicity invariant: is_ancestor(a, b) implies
// generation(a) <= generation(b)).
func (idx *Index) IsAncestor(a, b ids.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	idx.mu.RLock()
	ea, aok := idx.entry(a)
	eb, bok := idx.entry(b)
	idx.mu.RUnlock()
	if !aok || !bok {
		return false, ErrUnknownCommit
	}
	if ea.Generation > eb.Generation {
		return false, nil
	}
	key := ancestorCacheKey(a, b)
	if cached, ok := idx.ancestorCache.Get(key); ok {
		return cached, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	result := idx.walkForAncestor(a, b, ea.Generation)
	idx.ancestorCache.Set(key, result, 1)
	return result, nil
}

func (idx *Index) walkForAncestor(a, b ids.Hash, minGeneration uint64) bool {
	visited := map[ids.Hash]bool{b: true}
	queue := []ids.Hash{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == a {
			return true
		}
		e, ok := idx.entries[cur]
		if !ok {
			continue
		}
		for _, p := range e.Parents {
			if visited[p] {
				continue
			}
			pe, ok := idx.entries[p]
			if !ok {
				continue
			}
			if pe.Generation < minGeneration {
				// every ancestor beyond p has generation < minGeneration
				// too, so a cannot appear further down this branch.
				continue
			}
			visited[p] = true
			queue = append(queue, p)
		}
	}
	return false
}
