// Package oplog implements the view and operation store of spec section
// 4.4 (C5): an append-only DAG over two kinds sharing C1's object-store
// contract, the transaction protocol, view merging, and undo as replay.
// The on-disk shape and op-head compare-and-swap are grounded on the
// teacher's modules/zeta/reflog (plain line-oriented append-only log)
// and modules/zeta/refs/filesystem.go (a lock-file-guarded
// check-old-then-rename update of a ref pointer), generalized from "one
// ref" to "one current operation head".
package oplog

import (
	"time"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// OptionalCommit is an Option<CommitId>: nil means "no target".
type OptionalCommit = *ids.Hash

// WorkingCopyPointer is a workspace's checked-out commit and the end
// time of the operation that set it, used to break view-merge ties.
type WorkingCopyPointer struct {
	Commit  ids.Hash
	EndTime time.Time
}

// View is the repository state visible at some point in the operation
// log: the current head commits, one working-copy pointer per
// workspace, and three named pointer tables. Each named pointer is a
// Merge so an unresolved merge conflict ("conflicted branch") can be
// stored and surfaced rather than blocking.
type View struct {
	Heads         []ids.Hash
	WorkingCopies map[string]WorkingCopyPointer
	Branches      map[string]conflict.Merge[OptionalCommit]
	Tags          map[string]conflict.Merge[OptionalCommit]
	GitRefs       map[string]conflict.Merge[OptionalCommit]
}

// NewView returns an empty view with its maps initialised.
func NewView() *View {
	return &View{
		WorkingCopies: make(map[string]WorkingCopyPointer),
		Branches:      make(map[string]conflict.Merge[OptionalCommit]),
		Tags:          make(map[string]conflict.Merge[OptionalCommit]),
		GitRefs:       make(map[string]conflict.Merge[OptionalCommit]),
	}
}

// Clone deep-copies v so callers can mutate the result without aliasing
// the original (Begin gives the MutableView a clone, so the
// transaction's baseView stays untouched).
func (v *View) Clone() *View {
	out := NewView()
	out.Heads = append(out.Heads, v.Heads...)
	for k, p := range v.WorkingCopies {
		out.WorkingCopies[k] = p
	}
	for k, m := range v.Branches {
		out.Branches[k] = m
	}
	for k, m := range v.Tags {
		out.Tags[k] = m
	}
	for k, m := range v.GitRefs {
		out.GitRefs[k] = m
	}
	return out
}

// simplifyHeads drops any head that is an ancestor of another head in
// the same set, per spec section 4.4's head-set re-simplification.
func simplifyHeads(heads []ids.Hash, isAncestor func(a, b ids.Hash) (bool, error)) ([]ids.Hash, error) {
	keep := make([]bool, len(heads))
	for i := range keep {
		keep[i] = true
	}
	for i := range heads {
		for j := range heads {
			if i == j || !keep[i] || !keep[j] {
				continue
			}
			anc, err := isAncestor(heads[i], heads[j])
			if err != nil {
				return nil, err
			}
			if anc && heads[i] != heads[j] {
				keep[i] = false
			}
		}
	}
	out := make([]ids.Hash, 0, len(heads))
	seen := make(map[ids.Hash]bool)
	for i, h := range heads {
		if keep[i] && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out, nil
}
