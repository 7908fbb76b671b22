package oplog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

func noAncestor(ids.Hash, ids.Hash) (bool, error) { return false, nil }

func commitID(s string) ids.Hash {
	var h ids.Hash
	copy(h[:], s)
	return h
}

func TestViewEncodeDecodeRoundTrip(t *testing.T) {
	c1, c2 := commitID("commit-one"), commitID("commit-two")
	v := NewView()
	v.Heads = []ids.Hash{c1}
	v.WorkingCopies["default"] = WorkingCopyPointer{Commit: c1, EndTime: time.Unix(1000, 0).UTC()}
	v.Branches["main"] = conflictResolved(c2)

	payload := v.Encode()
	got, err := DecodeView(payload)
	require.NoError(t, err)
	require.Equal(t, v.Heads, got.Heads)
	require.Equal(t, v.WorkingCopies["default"].Commit, got.WorkingCopies["default"].Commit)
	gotBranch, ok := got.Branches["main"].AsResolved()
	require.True(t, ok)
	require.Equal(t, c2, *gotBranch)
}

func TestTransactionFirstCommitHasNoParents(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	tx, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	c1 := commitID("commit-one")
	tx.MutableView().AddHead(c1)
	tx.MutableView().SetBranch("main", c1)

	op, err := tx.Commit("initial commit", time.Unix(100, 0), time.Unix(101, 0))
	require.NoError(t, err)
	require.Empty(t, op.Parents)

	head, err := readHead(dir)
	require.NoError(t, err)
	require.Equal(t, op.ID, head)
}

func TestTransactionSecondCommitHasSingleParent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	tx1, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	c1 := commitID("commit-one")
	tx1.MutableView().AddHead(c1)
	op1, err := tx1.Commit("first", time.Unix(100, 0), time.Unix(101, 0))
	require.NoError(t, err)

	tx2, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	c2 := commitID("commit-two")
	tx2.MutableView().AddHead(c2)
	op2, err := tx2.Commit("second", time.Unix(200, 0), time.Unix(201, 0))
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{op1.ID}, op2.Parents)
}

func TestConcurrentCommitsMergeViews(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	base, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	baseC := commitID("base-commit")
	base.MutableView().AddHead(baseC)
	baseOp, err := base.Commit("base", time.Unix(1, 0), time.Unix(2, 0))
	require.NoError(t, err)

	// Two transactions both start from baseOp's view.
	txA, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	txB, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	require.Equal(t, baseOp.ID, txA.baseHead)
	require.Equal(t, baseOp.ID, txB.baseHead)

	cA := commitID("commit-from-a")
	txA.MutableView().AddHead(cA)
	txA.MutableView().SetWorkingCopy("default", cA, time.Unix(10, 0))
	opA, err := txA.Commit("from a", time.Unix(10, 0), time.Unix(11, 0))
	require.NoError(t, err)

	cB := commitID("commit-from-b")
	txB.MutableView().AddHead(cB)
	txB.MutableView().SetWorkingCopy("default", cB, time.Unix(20, 0))
	opB, err := txB.Commit("from b", time.Unix(20, 0), time.Unix(21, 0))
	require.NoError(t, err)

	require.ElementsMatch(t, []ids.Hash{baseOp.ID, opA.ID}, opB.Parents)

	mergedView, err := store.ReadView(opB.ViewID)
	require.NoError(t, err)
	require.ElementsMatch(t, []ids.Hash{baseC, cA, cB}, mergedView.Heads)
	// both sides changed the working copy; cB's end time (20) is later
	// than cA's (10), so it wins the tie.
	require.Equal(t, cB, mergedView.WorkingCopies["default"].Commit)
}

func TestUndoReplaysAncestorView(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	tx1, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	c1 := commitID("commit-one")
	tx1.MutableView().AddHead(c1)
	op1, err := tx1.Commit("first", time.Unix(1, 0), time.Unix(2, 0))
	require.NoError(t, err)

	tx2, err := Begin(dir, store, noAncestor)
	require.NoError(t, err)
	c2 := commitID("commit-two")
	tx2.MutableView().AddHead(c2)
	_, err = tx2.Commit("second", time.Unix(3, 0), time.Unix(4, 0))
	require.NoError(t, err)

	undoOp, err := Undo(dir, store, op1.ID, "undo second", time.Unix(5, 0), time.Unix(6, 0), noAncestor)
	require.NoError(t, err)

	undoneView, err := store.ReadView(undoOp.ViewID)
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{c1}, undoneView.Heads)
}

func conflictResolved(h ids.Hash) conflict.Merge[OptionalCommit] {
	return conflict.Resolved[OptionalCommit](&h)
}
