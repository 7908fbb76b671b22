// Package mergedtree implements the merged tree of spec section 4.2: an
// odd-length list of tree ids descended in lock-step, with the trivial
// resolution rule collapsing agreeing or cancelling sides down to a
// single value. Grounded on the teacher's plain single-tree commit model
// (modules/zeta/object/tree.go), generalized here to the n-way case the
// teacher never needed.
package mergedtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// CopyPolicy decides whether two file entries with different
// copy-tracking ids are considered equal when cancelling a conflict.
type CopyPolicy int

const (
	// AcceptSameChange treats two file values as equal whenever their
	// content and executable bit agree, ignoring copy-tracking id.
	AcceptSameChange CopyPolicy = iota
	// RequireIdentical additionally requires copy-tracking ids to match.
	RequireIdentical
)

// Tree is a merged tree: an odd-length list of tree ids read through a
// shared object store.
type Tree struct {
	store  *objstore.Store
	ids    []object.TreeValue
	policy CopyPolicy
}

// New builds a merged tree from an odd-length list of tree ids.
func New(store *objstore.Store, treeIDs []ids.Hash, policy CopyPolicy) (*Tree, error) {
	if len(treeIDs)%2 == 0 {
		return nil, fmt.Errorf("mergedtree: odd-length tree id list required, got %d", len(treeIDs))
	}
	values := make([]object.TreeValue, len(treeIDs))
	for i, id := range treeIDs {
		values[i] = object.SubTree(id)
	}
	return &Tree{store: store, ids: values, policy: policy}, nil
}

// IDs returns the underlying tree ids in order.
func (t *Tree) IDs() []ids.Hash {
	out := make([]ids.Hash, len(t.ids))
	for i, v := range t.ids {
		out[i] = v.TreeID
	}
	return out
}

func (t *Tree) valueEqual(a, b *object.TreeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if t.policy == RequireIdentical {
		return a.EqualStrict(*b)
	}
	return a.Equal(*b)
}

// Positions returns the raw, unsimplified per-position tree value at
// path: one slot per member tree id, nil where that side has nothing
// at path. Value and ChildNames build on this; difftree uses it
// directly to tell a real directory from a file/directory conflict
// during a pre-order descent.
func (t *Tree) Positions(path string) ([]*object.TreeValue, error) {
	current := make([]*object.TreeValue, len(t.ids))
	for i := range t.ids {
		v := t.ids[i]
		current[i] = &v
	}
	if path == "" {
		return current, nil
	}
	for _, component := range strings.Split(path, "/") {
		next := make([]*object.TreeValue, len(current))
		for i, v := range current {
			if v == nil || v.Kind != object.KindTree {
				continue
			}
			tree, err := t.store.ReadTree(v.TreeID)
			if err != nil {
				if errors.Is(err, objstore.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if entry, ok := tree.Find(component); ok {
				val := entry.Value
				next[i] = &val
			}
		}
		current = next
	}
	return current, nil
}

// Value resolves path (a "/"-separated, non-rooted path; "" is the
// tree root) by descending every member tree in lock-step one path
// component at a time, then applying the trivial resolution rule.
func (t *Tree) Value(path string) (conflict.Merge[*object.TreeValue], error) {
	current, err := t.Positions(path)
	if err != nil {
		return conflict.Merge[*object.TreeValue]{}, err
	}
	return t.Collapse(current)
}

// Collapse applies this tree's trivial-resolution and cancellation
// policy to an already-fetched position slice (e.g. from Positions),
// without re-descending from the root. Used by difftree, which fetches
// positions once per path and needs to collapse both the before and
// after side of a comparison. When the adds left after cancellation all
// agree (every side made the same change), the result is that value.
func (t *Tree) Collapse(positions []*object.TreeValue) (conflict.Merge[*object.TreeValue], error) {
	m, err := conflict.New(positions)
	if err != nil {
		return conflict.Merge[*object.TreeValue]{}, err
	}
	s := conflict.Simplify(m, t.valueEqual)
	if _, ok := s.AsResolved(); !ok {
		adds := s.Adds()
		same := true
		for _, a := range adds[1:] {
			same = same && t.valueEqual(adds[0], a)
		}
		if same {
			return conflict.Resolved(adds[0]), nil
		}
	}
	return s, nil
}

// ChildNames returns the union of child entry names across every
// member tree at path, for directories only (non-tree positions are
// ignored). Used by difftree to discover what to recurse into.
func (t *Tree) ChildNames(path string) (map[string]bool, error) {
	positions, err := t.Positions(path)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, v := range positions {
		if v == nil || v.Kind != object.KindTree {
			continue
		}
		tree, err := t.store.ReadTree(v.TreeID)
		if err != nil {
			if errors.Is(err, objstore.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, e := range tree.Entries {
			names[e.Name] = true
		}
	}
	return names, nil
}

// Resolve is Value plus the trivial-resolution convenience: ok is false
// when the path is genuinely conflicted (or absent on every side).
func (t *Tree) Resolve(path string) (*object.TreeValue, bool, error) {
	m, err := t.Value(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := m.AsResolved()
	if !ok || v == nil {
		return nil, false, nil
	}
	return v, true, nil
}
