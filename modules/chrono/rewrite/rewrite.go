// Package rewrite implements the transaction mutation surface and
// descendant rebaser of spec section 4.6 (C7): creating and amending
// commits, abandoning them, and propagating every such rewrite forward
// to a fixpoint across all of a commit's descendants. Grounded on the
// teacher's worktree_rebase.go/worktree_replay.go (the same "walk
// descendants in topological order, re-merge each one's tree onto its
// new parent, write a new commit" shape) but generalized from the
// teacher's single linear branch rebase to rewriting an arbitrary set of
// commits and cascading the change through the whole descendant set at
// once, since every commit here (not just a named branch tip) can be
// independently amended.
package rewrite

import (
	"fmt"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Rewriter creates and amends commits against a shared index and store.
type Rewriter struct {
	idx   *commitindex.Index
	store *objstore.Store
}

// New builds a Rewriter over idx and store.
func New(idx *commitindex.Index, store *objstore.Store) *Rewriter {
	return &Rewriter{idx: idx, store: store}
}

// NewCommit writes and indexes a brand new commit (not a rewrite of an
// existing one), assigning it a fresh change id.
func (r *Rewriter) NewCommit(parents []ids.Hash, tree ids.Hash, author, committer object.Signature, description string) (ids.Hash, error) {
	changeID, err := object.NewRandomChangeID()
	if err != nil {
		return ids.Hash{}, err
	}
	c := &object.Commit{
		Parents:     parents,
		Tree:        tree,
		Author:      author,
		Committer:   committer,
		ChangeID:    changeID,
		Description: description,
	}
	id, err := r.store.WriteCommit(c)
	if err != nil {
		return ids.Hash{}, err
	}
	if err := r.idx.Add(id); err != nil {
		return ids.Hash{}, err
	}
	return id, nil
}

// Amend rewrites old by applying mutate to a copy of it, preserving its
// change id and recording old as a predecessor (spec section 3.2's
// change-id-carried-across-rewrites rule). The returned commit is
// written and indexed, but old's descendants are not touched here —
// callers run RebaseDescendants afterward to propagate the change.
func (r *Rewriter) Amend(old ids.Hash, mutate func(*object.Commit)) (ids.Hash, error) {
	oldCommit, err := r.store.ReadCommit(old)
	if err != nil {
		return ids.Hash{}, fmt.Errorf("rewrite: read %s: %w", old, err)
	}
	next := *oldCommit
	next.Hash = ids.Hash{}
	next.Predecessors = []ids.Hash{old}
	mutate(&next)
	id, err := r.store.WriteCommit(&next)
	if err != nil {
		return ids.Hash{}, err
	}
	if err := r.idx.Add(id); err != nil {
		return ids.Hash{}, err
	}
	return id, nil
}
