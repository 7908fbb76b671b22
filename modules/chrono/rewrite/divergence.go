package rewrite

import (
	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
)

// DivergentChanges reports every change id that currently has more than
// one visible commit, none of which is an ancestor of another (spec
// section 4.6: two independent rewrites of the same logical change —
// most often two concurrent operations amending it differently — are
// never silently resolved to one winner; they are surfaced as a
// divergent change for the user to reconcile). visible is normally the
// result of walking the current view's heads, i.e. every commit a
// revset query could return.
func DivergentChanges(idx *commitindex.Index, visible []ids.Hash) (map[object.ChangeID][]ids.Hash, error) {
	visibleSet := make(map[ids.Hash]bool, len(visible))
	byChange := make(map[object.ChangeID][]ids.Hash)
	for _, id := range visible {
		visibleSet[id] = true
		e, err := idx.Entry(id)
		if err != nil {
			return nil, err
		}
		if e.ChangeID == object.ZeroChangeID {
			continue
		}
		byChange[e.ChangeID] = append(byChange[e.ChangeID], id)
	}
	out := make(map[object.ChangeID][]ids.Hash)
	for changeID, commits := range byChange {
		heads, err := headsAmong(idx, commits)
		if err != nil {
			return nil, err
		}
		if len(heads) > 1 {
			out[changeID] = heads
		}
	}
	return out, nil
}

// headsAmong returns the elements of commits that are not an ancestor
// of any other element.
func headsAmong(idx *commitindex.Index, commits []ids.Hash) ([]ids.Hash, error) {
	var out []ids.Hash
	for i, c := range commits {
		isHead := true
		for j, d := range commits {
			if i == j {
				continue
			}
			anc, err := idx.IsAncestor(c, d)
			if err != nil {
				return nil, err
			}
			if anc {
				isHead = false
				break
			}
		}
		if isHead {
			out = append(out, c)
		}
	}
	return out, nil
}
