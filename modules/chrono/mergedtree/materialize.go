package mergedtree

import (
	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Materialize collapses t into a single concrete tree id, writing any
// new directory objects the collapse produces. A path where t's member
// trees disagree and do not cancel is written as a KindConflict entry
// holding the raw, unresolved Merge[TreeValue] (spec section 3.2) rather
// than blocking the write — this is what lets the rewrite engine's
// descendant rebaser carry a conflict forward into a commit instead of
// stopping.
func Materialize(store *objstore.Store, t *Tree) (ids.Hash, error) {
	v, err := materializeAt(store, t, "")
	if err != nil {
		return ids.Hash{}, err
	}
	if v == nil {
		return object.EmptyTreeID, nil
	}
	return v.TreeID, nil
}

func materializeAt(store *objstore.Store, t *Tree, dir string) (*object.TreeValue, error) {
	positions, err := t.Positions(dir)
	if err != nil {
		return nil, err
	}
	if !positionsAllTreeOrAbsent(positions) {
		m, err := t.Collapse(positions)
		if err != nil {
			return nil, err
		}
		return resolveLeaf(store, m)
	}
	names, err := t.ChildNames(dir)
	if err != nil {
		return nil, err
	}
	var entries []object.Entry
	for name := range names {
		childPath := name
		if dir != "" {
			childPath = dir + "/" + name
		}
		v, err := materializeAt(store, t, childPath)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		entries = append(entries, object.Entry{Name: name, Value: *v})
	}
	if len(entries) == 0 {
		if dir == "" {
			tv := object.SubTree(object.EmptyTreeID)
			return &tv, nil
		}
		return nil, nil
	}
	id, err := store.WriteTree(object.NewTree(entries))
	if err != nil {
		return nil, err
	}
	tv := object.SubTree(id)
	return &tv, nil
}

func positionsAllTreeOrAbsent(positions []*object.TreeValue) bool {
	for _, v := range positions {
		if v != nil && v.Kind != object.KindTree {
			return false
		}
	}
	return true
}

func resolveLeaf(store *objstore.Store, m conflict.Merge[*object.TreeValue]) (*object.TreeValue, error) {
	if v, ok := m.AsResolved(); ok {
		return v, nil
	}
	values := make([]object.TreeValue, m.Len())
	for i, v := range m.Values() {
		if v != nil {
			values[i] = *v
		}
	}
	cm, err := conflict.New(values)
	if err != nil {
		return nil, err
	}
	id, err := store.WriteConflict(&object.ConflictBlob{Merge: cm})
	if err != nil {
		return nil, err
	}
	tv := object.Conflict(id)
	return &tv, nil
}
