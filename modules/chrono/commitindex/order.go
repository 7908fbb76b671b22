package commitindex

import "github.com/chronoscope/chrono/modules/chrono/ids"

// Compare orders a and b the same way WalkRevs emits commits: descending
// generation first (a commit's generation always exceeds any parent's,
// so this alone is a valid reverse-topological order), then descending
// committer time, then descending commit id. It returns -1 if a sorts
// before b, 1 if after, 0 if equal. Both ids must already be indexed.
func (idx *Index) Compare(a, b ids.Hash) (int, error) {
	if a == b {
		return 0, nil
	}
	idx.mu.RLock()
	ea, ok := idx.entries[a]
	eb, okb := idx.entries[b]
	idx.mu.RUnlock()
	if !ok || !okb {
		return 0, ErrUnknownCommit
	}
	if ea.Generation != eb.Generation {
		if ea.Generation > eb.Generation {
			return -1, nil
		}
		return 1, nil
	}
	if !ea.CommitterTime.Equal(eb.CommitterTime) {
		if ea.CommitterTime.After(eb.CommitterTime) {
			return -1, nil
		}
		return 1, nil
	}
	if a.String() > b.String() {
		return -1, nil
	}
	return 1, nil
}
