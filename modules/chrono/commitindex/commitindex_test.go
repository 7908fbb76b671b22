package commitindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

func writeCommit(t *testing.T, store *objstore.Store, parents []ids.Hash, when time.Time, changeID object.ChangeID, subject string) ids.Hash {
	t.Helper()
	sig := object.Signature{Name: "a", Email: "a@example.com", When: when}
	c := &object.Commit{
		Parents:     parents,
		Tree:        object.EmptyTreeID,
		Author:      sig,
		Committer:   sig,
		ChangeID:    changeID,
		Description: subject,
	}
	id, err := store.WriteCommit(c)
	require.NoError(t, err)
	return id
}

func newChangeID(t *testing.T) object.ChangeID {
	t.Helper()
	cid, err := object.NewRandomChangeID()
	require.NoError(t, err)
	return cid
}

// buildChain builds root -> c1 -> c2 -> c3, each one minute apart.
func buildChain(t *testing.T) (*objstore.Store, *Index, []ids.Hash) {
	t.Helper()
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	idx, err := Open(t.TempDir(), store)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := writeCommit(t, store, []ids.Hash{object.RootCommitID}, base, newChangeID(t), "first")
	c2 := writeCommit(t, store, []ids.Hash{c1}, base.Add(time.Minute), newChangeID(t), "second")
	c3 := writeCommit(t, store, []ids.Hash{c2}, base.Add(2*time.Minute), newChangeID(t), "third")

	require.NoError(t, idx.Add(c3))
	return store, idx, []ids.Hash{c1, c2, c3}
}

func TestGenerationNumbers(t *testing.T) {
	_, idx, chain := buildChain(t)

	root, err := idx.Entry(object.RootCommitID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), root.Generation)

	for i, id := range chain {
		e, err := idx.Entry(id)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), e.Generation)
	}
}

func TestIsAncestor(t *testing.T) {
	_, idx, chain := buildChain(t)
	c1, c2, c3 := chain[0], chain[1], chain[2]

	ok, err := idx.IsAncestor(object.RootCommitID, c3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = idx.IsAncestor(c1, c3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = idx.IsAncestor(c3, c1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = idx.IsAncestor(c2, c2)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWalkRevsChildrenBeforeParents(t *testing.T) {
	_, idx, chain := buildChain(t)
	c1, c2, c3 := chain[0], chain[1], chain[2]

	revs, err := idx.WalkRevs([]ids.Hash{c3}, nil)
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{c3, c2, c1, object.RootCommitID}, revs)
}

func TestWalkRevsExcludesRoots(t *testing.T) {
	_, idx, chain := buildChain(t)
	c1, c2, c3 := chain[0], chain[1], chain[2]

	revs, err := idx.WalkRevs([]ids.Hash{c3}, []ids.Hash{c1})
	require.NoError(t, err)
	require.Equal(t, []ids.Hash{c3, c2}, revs)
}

func TestChangeIDToCommitIDs(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	idx, err := Open(t.TempDir(), store)
	require.NoError(t, err)

	shared := newChangeID(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := writeCommit(t, store, []ids.Hash{object.RootCommitID}, base, shared, "rewritten once")
	b := writeCommit(t, store, []ids.Hash{object.RootCommitID}, base.Add(time.Minute), shared, "rewritten twice")
	require.NoError(t, idx.Add(a))
	require.NoError(t, idx.Add(b))

	got := idx.ChangeIDToCommitIDs(shared)
	require.ElementsMatch(t, []ids.Hash{a, b}, got)
}

func TestRebuildFromObjectStoreAlone(t *testing.T) {
	store, _, chain := buildChain(t)
	dir := t.TempDir()

	idx, err := Open(dir, store)
	require.NoError(t, err)
	require.False(t, idx.Has(chain[2]))

	require.NoError(t, idx.Rebuild([]ids.Hash{chain[2]}))
	for _, id := range chain {
		require.True(t, idx.Has(id))
	}
	e, err := idx.Entry(chain[2])
	require.NoError(t, err)
	require.Equal(t, uint64(3), e.Generation)
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)

	idx, err := Open(dir, store)
	require.NoError(t, err)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := writeCommit(t, store, []ids.Hash{object.RootCommitID}, base, newChangeID(t), "first")
	require.NoError(t, idx.Add(c1))
	require.NoError(t, idx.Close())

	reopened, err := Open(dir, store)
	require.NoError(t, err)
	require.True(t, reopened.Has(c1))
	e, err := reopened.Entry(c1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), e.Generation)
}
