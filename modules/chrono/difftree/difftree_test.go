package difftree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/mergedtree"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

func drain(t *testing.T, entries <-chan Entry, errc <-chan error) []Entry {
	t.Helper()
	var out []Entry
	for e := range entries {
		out = append(out, e)
	}
	require.NoError(t, <-errc)
	return out
}

func TestDiffEmitsAddedFile(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)

	fileID, _, err := store.WriteFile(strings.NewReader("hi\n"))
	require.NoError(t, err)
	afterTreeID, err := store.WriteTree(object.NewTree([]object.Entry{{Name: "new.txt", Value: object.File(fileID, false, "")}}))
	require.NoError(t, err)

	before, err := mergedtree.New(store, []ids.Hash{object.EmptyTreeID, object.EmptyTreeID, object.EmptyTreeID}, mergedtree.AcceptSameChange)
	require.NoError(t, err)
	after, err := mergedtree.New(store, []ids.Hash{afterTreeID, object.EmptyTreeID, afterTreeID}, mergedtree.AcceptSameChange)
	require.NoError(t, err)

	entries, errc := Diff(context.Background(), before, after, matcher.Everything)
	got := drain(t, entries, errc)
	require.Len(t, got, 1)
	require.Equal(t, "new.txt", got[0].Path)
	_, beforeOK := got[0].Before.AsResolved()
	require.True(t, beforeOK)
	afterVal, afterOK := got[0].After.AsResolved()
	require.True(t, afterOK)
	require.Equal(t, fileID, afterVal.FileID)
}

func TestDiffSkipsUnchangedPaths(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)

	fileID, _, err := store.WriteFile(strings.NewReader("same\n"))
	require.NoError(t, err)
	treeID, err := store.WriteTree(object.NewTree([]object.Entry{{Name: "same.txt", Value: object.File(fileID, false, "")}}))
	require.NoError(t, err)

	tree, err := mergedtree.New(store, []ids.Hash{treeID, object.EmptyTreeID, treeID}, mergedtree.AcceptSameChange)
	require.NoError(t, err)

	entries, errc := Diff(context.Background(), tree, tree, matcher.Everything)
	got := drain(t, entries, errc)
	require.Empty(t, got)
}

