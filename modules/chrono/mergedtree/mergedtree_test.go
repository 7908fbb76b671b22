package mergedtree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

func TestResolveAgreeingSides(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)

	fileID, _, err := store.WriteFile(strings.NewReader("hello\n"))
	require.NoError(t, err)

	tree := object.NewTree([]object.Entry{{Name: "a.txt", Value: object.File(fileID, false, "")}})
	treeID, err := store.WriteTree(tree)
	require.NoError(t, err)

	mt, err := New(store, []ids.Hash{treeID, object.EmptyTreeID, treeID}, AcceptSameChange)
	require.NoError(t, err)

	v, ok, err := mt.Resolve("a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fileID, v.FileID)
}

func TestConflictingSidesSurface(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)

	id1, _, err := store.WriteFile(strings.NewReader("one\n"))
	require.NoError(t, err)
	id2, _, err := store.WriteFile(strings.NewReader("two\n"))
	require.NoError(t, err)

	treeA, err := store.WriteTree(object.NewTree([]object.Entry{{Name: "a.txt", Value: object.File(id1, false, "")}}))
	require.NoError(t, err)
	treeB, err := store.WriteTree(object.NewTree([]object.Entry{{Name: "a.txt", Value: object.File(id2, false, "")}}))
	require.NoError(t, err)

	mt, err := New(store, []ids.Hash{treeA, object.EmptyTreeID, treeB}, AcceptSameChange)
	require.NoError(t, err)

	_, ok, err := mt.Resolve("a.txt")
	require.NoError(t, err)
	require.False(t, ok)

	m, err := mt.Value("a.txt")
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())
}

func TestAbsentPathResolvesNil(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	mt, err := New(store, []ids.Hash{object.EmptyTreeID, object.EmptyTreeID, object.EmptyTreeID}, AcceptSameChange)
	require.NoError(t, err)

	_, ok, err := mt.Resolve("missing.txt")
	require.NoError(t, err)
	require.False(t, ok)
}
