package rewrite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

func newFixture(t *testing.T) (*objstore.Store, *commitindex.Index) {
	t.Helper()
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	idx, err := commitindex.Open(t.TempDir(), store)
	require.NoError(t, err)
	return store, idx
}

func writeFileTree(t *testing.T, store *objstore.Store, name, content string) ids.Hash {
	t.Helper()
	fileID, _, err := store.WriteFile(strings.NewReader(content))
	require.NoError(t, err)
	treeID, err := store.WriteTree(object.NewTree([]object.Entry{{Name: name, Value: object.File(fileID, false, "")}}))
	require.NoError(t, err)
	return treeID
}

func commit(t *testing.T, store *objstore.Store, idx *commitindex.Index, parents []ids.Hash, tree ids.Hash, changeID object.ChangeID, when time.Time, desc string) ids.Hash {
	t.Helper()
	sig := object.Signature{Name: "a", Email: "a@example.com", When: when}
	c := &object.Commit{Parents: parents, Tree: tree, Author: sig, Committer: sig, ChangeID: changeID, Description: desc}
	id, err := store.WriteCommit(c)
	require.NoError(t, err)
	require.NoError(t, idx.Add(id))
	return id
}

// TestAmendRebasesDescendant builds root -> A -> B, amends A's content,
// and checks that B's content after RebaseDescendants carries A's
// change forward while keeping B's own edit to a different file.
func TestAmendRebasesDescendant(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	changeA, err := object.NewRandomChangeID()
	require.NoError(t, err)
	changeB, err := object.NewRandomChangeID()
	require.NoError(t, err)

	treeA, err := store.WriteTree(object.NewTree(nil))
	require.NoError(t, err)
	fileA, _, err := store.WriteFile(strings.NewReader("one\n"))
	require.NoError(t, err)
	treeA, err = store.WriteTree(object.NewTree([]object.Entry{{Name: "a.txt", Value: object.File(fileA, false, "")}}))
	require.NoError(t, err)
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "add a")

	fileB, _, err := store.WriteFile(strings.NewReader("two\n"))
	require.NoError(t, err)
	treeAB, err := store.WriteTree(object.NewTree([]object.Entry{
		{Name: "a.txt", Value: object.File(fileA, false, "")},
		{Name: "b.txt", Value: object.File(fileB, false, "")},
	}))
	require.NoError(t, err)
	b := commit(t, store, idx, []ids.Hash{a}, treeAB, changeB, base.Add(time.Minute), "add b")

	rw := New(idx, store)
	newA, err := rw.Amend(a, func(c *object.Commit) {
		fixedA, _, err := store.WriteFile(strings.NewReader("one (fixed)\n"))
		require.NoError(t, err)
		newTree, err := store.WriteTree(object.NewTree([]object.Entry{{Name: "a.txt", Value: object.File(fixedA, false, "")}}))
		require.NoError(t, err)
		c.Tree = newTree
	})
	require.NoError(t, err)

	replacement, err := RebaseDescendants(idx, store, map[ids.Hash]Change{a: {With: []ids.Hash{newA}}})
	require.NoError(t, err)

	bReplacements, ok := replacement[b]
	require.True(t, ok)
	require.Len(t, bReplacements, 1)
	newB := bReplacements[0]

	newBCommit, err := store.ReadCommit(newB)
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{newA}, newBCommit.Parents)
	require.Equal(t, changeB, newBCommit.ChangeID)
	require.Equal(t, []ids.Hash{b}, newBCommit.Predecessors)

	newTree, err := store.ReadTree(newBCommit.Tree)
	require.NoError(t, err)
	aVal, ok := newTree.Find("a.txt")
	require.True(t, ok)
	data, err := store.OpenFile(aVal.FileID)
	require.NoError(t, err)
	defer data.Close()
	got := make([]byte, 32)
	n, _ := data.Read(got)
	require.Equal(t, "one (fixed)\n", string(got[:n]))
	_, ok = newTree.Find("b.txt")
	require.True(t, ok)
}

// TestAbandonSplicesParent checks that abandoning A (root -> A -> B)
// makes B's rebased copy a direct child of the root, without A's a.txt
// but with B's own b.txt.
func TestAbandonSplicesParent(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changeA, _ := object.NewRandomChangeID()
	changeB, _ := object.NewRandomChangeID()

	treeA := writeFileTree(t, store, "a.txt", "one\n")
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "add a")

	fileB, _, err := store.WriteFile(strings.NewReader("two\n"))
	require.NoError(t, err)
	treeAB, err := store.ReadTree(treeA)
	require.NoError(t, err)
	withB := object.NewTree(append(append([]object.Entry{}, treeAB.Entries...), object.Entry{Name: "b.txt", Value: object.File(fileB, false, "")}))
	treeABID, err := store.WriteTree(withB)
	require.NoError(t, err)
	b := commit(t, store, idx, []ids.Hash{a}, treeABID, changeB, base.Add(time.Minute), "add b")

	replacement, err := RebaseDescendants(idx, store, map[ids.Hash]Change{a: {Abandoned: true}})
	require.NoError(t, err)

	bReplacements, ok := replacement[b]
	require.True(t, ok)
	require.Len(t, bReplacements, 1)
	newBCommit, err := store.ReadCommit(bReplacements[0])
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{object.RootCommitID}, newBCommit.Parents)
	tr, err := store.ReadTree(newBCommit.Tree)
	require.NoError(t, err)
	_, ok = tr.Find("a.txt")
	require.False(t, ok)
	_, ok = tr.Find("b.txt")
	require.True(t, ok)
}

func TestRequireForwardMoveRejectsSidewaysWithoutForce(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changeA, _ := object.NewRandomChangeID()
	changeC, _ := object.NewRandomChangeID()
	treeA := writeFileTree(t, store, "a.txt", "one\n")
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "a")
	treeC := writeFileTree(t, store, "c.txt", "three\n")
	c := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeC, changeC, base.Add(time.Minute), "c")

	err := RequireForwardMove(idx, "main", a, c, false)
	require.Error(t, err)
	var nfm *ErrNonForwardBranchMove
	require.ErrorAs(t, err, &nfm)
	require.Equal(t, BranchMoveSideways, nfm.Kind)

	require.NoError(t, RequireForwardMove(idx, "main", a, c, true))
}

func TestApplyFixerPropagatesToDescendants(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changeA, _ := object.NewRandomChangeID()
	changeB, _ := object.NewRandomChangeID()

	treeA := writeFileTree(t, store, "a.txt", "messy\n")
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "a")

	fileB, _, err := store.WriteFile(strings.NewReader("two\n"))
	require.NoError(t, err)
	ta, err := store.ReadTree(treeA)
	require.NoError(t, err)
	treeAB, err := store.WriteTree(object.NewTree(append(append([]object.Entry{}, ta.Entries...), object.Entry{Name: "b.txt", Value: object.File(fileB, false, "")})))
	require.NoError(t, err)
	b := commit(t, store, idx, []ids.Hash{a}, treeAB, changeB, base.Add(time.Minute), "b")

	fixer := FixerFunc(func(_ context.Context, path string, content []byte) ([]byte, bool, error) {
		if path != "a.txt" {
			return content, false, nil
		}
		return []byte("clean\n"), true, nil
	})

	replacement, err := ApplyFixer(context.Background(), idx, store, []ids.Hash{a}, fixer, 4)
	require.NoError(t, err)
	require.Contains(t, replacement, a)
	require.Contains(t, replacement, b)

	newB, err := store.ReadCommit(replacement[b][0])
	require.NoError(t, err)
	tr, err := store.ReadTree(newB.Tree)
	require.NoError(t, err)
	_, ok := tr.Find("b.txt")
	require.True(t, ok)
}

// TestRebaseKeepsCommitEmptyRatherThanDropping builds root -> A -> C
// where C adds c.txt, then amends A to already contain c.txt (as if
// the same change had landed upstream first). Rebasing C onto the
// amended A collapses C's tree to match its new parent's tree exactly
// — the commit becomes an empty-diff commit. Per the Open Question
// decision recorded in DESIGN.md, RebaseDescendants keeps this commit
// rather than silently dropping it; only an explicit Abandoned change
// removes a commit from history.
func TestRebaseKeepsCommitEmptyRatherThanDropping(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changeA, _ := object.NewRandomChangeID()
	changeC, _ := object.NewRandomChangeID()

	treeA := writeFileTree(t, store, "a.txt", "one\n")
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "add a")

	fileC, _, err := store.WriteFile(strings.NewReader("landed upstream already\n"))
	require.NoError(t, err)
	ta, err := store.ReadTree(treeA)
	require.NoError(t, err)
	treeAC, err := store.WriteTree(object.NewTree(append(append([]object.Entry{}, ta.Entries...), object.Entry{Name: "c.txt", Value: object.File(fileC, false, "")})))
	require.NoError(t, err)
	c := commit(t, store, idx, []ids.Hash{a}, treeAC, changeC, base.Add(time.Minute), "add c")

	rw := New(idx, store)
	newA, err := rw.Amend(a, func(commit *object.Commit) {
		newTree, err := store.WriteTree(object.NewTree(append(append([]object.Entry{}, ta.Entries...), object.Entry{Name: "c.txt", Value: object.File(fileC, false, "")})))
		require.NoError(t, err)
		commit.Tree = newTree
	})
	require.NoError(t, err)

	replacement, err := RebaseDescendants(idx, store, map[ids.Hash]Change{a: {With: []ids.Hash{newA}}})
	require.NoError(t, err)

	cReplacements, ok := replacement[c]
	require.True(t, ok)
	require.Len(t, cReplacements, 1)
	newC, err := store.ReadCommit(cReplacements[0])
	require.NoError(t, err)
	newACommit, err := store.ReadCommit(newA)
	require.NoError(t, err)

	require.Equal(t, newACommit.Tree, newC.Tree)
	require.Equal(t, changeC, newC.ChangeID)
	require.Equal(t, []ids.Hash{c}, newC.Predecessors)
}

func TestDivergentChangesDetectsUnrelatedRewrites(t *testing.T) {
	store, idx := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changeA, _ := object.NewRandomChangeID()

	treeA := writeFileTree(t, store, "a.txt", "one\n")
	a := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA, changeA, base, "a")

	treeA2 := writeFileTree(t, store, "a.txt", "one (variant 2)\n")
	a2 := commit(t, store, idx, []ids.Hash{object.RootCommitID}, treeA2, changeA, base.Add(time.Minute), "a variant")

	divergent, err := DivergentChanges(idx, []ids.Hash{a, a2})
	require.NoError(t, err)
	require.ElementsMatch(t, []ids.Hash{a, a2}, divergent[changeA])
}
