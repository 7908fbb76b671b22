package oplog

import (
	"errors"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// IsAncestorFunc answers commit-graph ancestry queries; callers pass
// commitindex.Index.IsAncestor (this package cannot import commitindex
// directly without an import cycle risk as both mature, and head-set
// simplification is the only place the operation log needs ancestry).
type IsAncestorFunc func(a, b ids.Hash) (bool, error)

// MutableView is the in-memory view a transaction mutates before
// committing (spec section 4.4 step 2).
type MutableView struct {
	view *View
}

func (m *MutableView) AddHead(h ids.Hash) {
	for _, existing := range m.view.Heads {
		if existing == h {
			return
		}
	}
	m.view.Heads = append(m.view.Heads, h)
}

func (m *MutableView) RemoveHead(h ids.Hash) {
	out := m.view.Heads[:0]
	for _, existing := range m.view.Heads {
		if existing != h {
			out = append(out, existing)
		}
	}
	m.view.Heads = out
}

func (m *MutableView) SetWorkingCopy(workspace string, commit ids.Hash, end time.Time) {
	m.view.WorkingCopies[workspace] = WorkingCopyPointer{Commit: commit, EndTime: end}
}

func (m *MutableView) RemoveWorkingCopy(workspace string) {
	delete(m.view.WorkingCopies, workspace)
}

func (m *MutableView) SetBranch(name string, commit ids.Hash) {
	m.view.Branches[name] = conflict.Resolved[OptionalCommit](&commit)
}

func (m *MutableView) RemoveBranch(name string) { delete(m.view.Branches, name) }

func (m *MutableView) SetTag(name string, commit ids.Hash) {
	m.view.Tags[name] = conflict.Resolved[OptionalCommit](&commit)
}

func (m *MutableView) RemoveTag(name string) { delete(m.view.Tags, name) }

func (m *MutableView) SetGitRef(name string, commit ids.Hash) {
	m.view.GitRefs[name] = conflict.Resolved[OptionalCommit](&commit)
}

func (m *MutableView) RemoveGitRef(name string) { delete(m.view.GitRefs, name) }

// View returns the view as mutated so far, without committing it.
func (m *MutableView) View() *View { return m.view }

// Transaction implements the protocol of spec section 4.4: load the
// current head and view, let the caller mutate an in-memory copy, then
// commit by writing the view, an operation, and advancing the op-head
// pointer — re-merging and retrying if another writer advanced the head
// first.
type Transaction struct {
	dir        string
	store      *Store
	isAncestor IsAncestorFunc

	baseHead ids.Hash
	baseView *View
	mutable  *MutableView
}

// Begin opens a transaction against the op-head pointer stored in dir.
func Begin(dir string, store *Store, isAncestor IsAncestorFunc) (*Transaction, error) {
	head, err := readHead(dir)
	if err != nil {
		return nil, err
	}
	view := NewView()
	if !head.IsZero() {
		op, err := store.ReadOperation(head)
		if err != nil {
			return nil, err
		}
		view, err = store.ReadView(op.ViewID)
		if err != nil {
			return nil, err
		}
	}
	return &Transaction{
		dir:        dir,
		store:      store,
		isAncestor: isAncestor,
		baseHead:   head,
		baseView:   view,
		mutable:    &MutableView{view: view.Clone()},
	}, nil
}

// MutableView returns the view this transaction's caller should mutate.
func (tx *Transaction) MutableView() *MutableView { return tx.mutable }

// Commit writes the mutated view and a new operation, advancing the
// op-head. If another operation committed concurrently, the new
// operation gets both the original and the concurrent op as parents and
// its view is the three-way merge of the two (spec section 4.4 steps
// 3-4); the step is retried whenever the head moves again before the
// CAS. If another writer holds the op-head lock, Commit returns
// ErrResourceLocked.
func (tx *Transaction) Commit(description string, start, end time.Time) (*Operation, error) {
	for {
		currentHead, err := readHead(tx.dir)
		if err != nil {
			return nil, err
		}

		finalView := tx.mutable.view
		var parents []ids.Hash
		if currentHead == tx.baseHead {
			if !tx.baseHead.IsZero() {
				parents = []ids.Hash{tx.baseHead}
			}
		} else {
			concurrentOp, err := tx.store.ReadOperation(currentHead)
			if err != nil {
				return nil, err
			}
			concurrentView, err := tx.store.ReadView(concurrentOp.ViewID)
			if err != nil {
				return nil, err
			}
			finalView, err = MergeViews(tx.baseView, tx.mutable.view, concurrentView, tx.isAncestor)
			if err != nil {
				return nil, err
			}
			parents = []ids.Hash{currentHead}
			if !tx.baseHead.IsZero() {
				parents = []ids.Hash{tx.baseHead, currentHead}
			}
		}

		viewID, err := tx.store.WriteView(finalView)
		if err != nil {
			return nil, err
		}
		op := &Operation{Parents: parents, ViewID: viewID, Description: description, Start: start, End: end}
		opID, err := tx.store.WriteOperation(op)
		if err != nil {
			return nil, err
		}
		if err := advanceHead(tx.dir, currentHead, opID); err != nil {
			if errors.Is(err, ErrHeadChanged) {
				continue
			}
			return nil, err
		}
		return op, nil
	}
}

// Undo records a new operation whose view equals the view at an older
// operation, without deleting any history (spec section 4.4's "undo is
// reinterpreting the view at an older operation").
func Undo(dir string, store *Store, target ids.Hash, description string, start, end time.Time, isAncestor IsAncestorFunc) (*Operation, error) {
	targetOp, err := store.ReadOperation(target)
	if err != nil {
		return nil, err
	}
	targetView, err := store.ReadView(targetOp.ViewID)
	if err != nil {
		return nil, err
	}
	tx, err := Begin(dir, store, isAncestor)
	if err != nil {
		return nil, err
	}
	tx.mutable.view = targetView.Clone()
	return tx.Commit(description, start, end)
}
