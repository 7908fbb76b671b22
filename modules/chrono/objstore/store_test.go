package objstore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestWriteFileIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	id1, size1, err := s.WriteFile(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	id2, size2, err := s.WriteFile(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, size1, size2)
}

func TestReadUnknownFileNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.OpenFile(ids.Of([]byte("never written")))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestEmptyTreeNeverWritten(t *testing.T) {
	s := newTestStore(t)
	id, err := s.WriteTree(object.NewTree(nil))
	require.NoError(t, err)
	require.Equal(t, EmptyTreeID, id)
	tr, err := s.ReadTree(id)
	require.NoError(t, err)
	require.Empty(t, tr.Entries)
}

func TestTreeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	fileID, _, err := s.WriteFile(bytes.NewReader([]byte("package main\n")))
	require.NoError(t, err)
	tr := object.NewTree([]object.Entry{
		{Name: "main.go", Value: object.File(fileID, false, "")},
	})
	id, err := s.WriteTree(tr)
	require.NoError(t, err)

	got, err := s.ReadTree(id)
	require.NoError(t, err)
	require.True(t, tr.Equal(got))
}

func TestCommitHashStability(t *testing.T) {
	s := newTestStore(t)
	c := &object.Commit{
		Parents:     []ids.Hash{object.RootCommitID},
		Tree:        EmptyTreeID,
		Author:      object.Signature{Name: "A", Email: "a@example.com"},
		Committer:   object.Signature{Name: "A", Email: "a@example.com"},
		ChangeID:    object.NewChangeID("00000000000000000000000000000001"),
		Description: "initial\n",
	}
	id1, err := s.WriteCommit(c)
	require.NoError(t, err)
	id2, err := s.WriteCommit(c)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	got, err := s.ReadCommit(id1)
	require.NoError(t, err)
	require.Equal(t, c.ChangeID, got.ChangeID)
	require.Equal(t, c.Description, got.Description)
}

func TestRootCommitAlwaysReadable(t *testing.T) {
	s := newTestStore(t)
	c, err := s.ReadCommit(object.RootCommitID)
	require.NoError(t, err)
	require.Empty(t, c.Parents)
	require.Equal(t, EmptyTreeID, c.Tree)
}
