package remote

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *objstore.Store {
	t.Helper()
	s, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func writeSampleCommit(t *testing.T, store *objstore.Store, message string) ids.Hash {
	t.Helper()
	fileID, _, err := store.WriteFile(bytes.NewReader([]byte("package main\n")))
	require.NoError(t, err)
	tree := object.NewTree([]object.Entry{
		{Name: "main.go", Value: object.File(fileID, false, "")},
	})
	treeID, err := store.WriteTree(tree)
	require.NoError(t, err)
	changeID, err := object.NewRandomChangeID()
	require.NoError(t, err)
	sig := object.Signature{Name: "Ada", Email: "ada@example.com", When: time.Unix(1700000000, 0).UTC()}
	c := &object.Commit{
		Parents:     []ids.Hash{object.RootCommitID},
		Tree:        treeID,
		Author:      sig,
		Committer:   sig,
		ChangeID:    changeID,
		Description: message,
	}
	id, err := store.WriteCommit(c)
	require.NoError(t, err)
	return id
}

// TestPushServeRoundTrip runs Push over one end of an in-memory
// connection against Serve on the other, skipping ssh/gliderlabs
// entirely so the negotiation and wire framing are exercised directly.
func TestPushServeRoundTrip(t *testing.T) {
	source := newTestStore(t)
	commitID := writeSampleCommit(t, source, "initial\n")

	dest := newTestStore(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		done <- Push(source, clientConn, map[string]ids.Hash{"main": commitID})
	}()

	refs, err := Serve(dest, serverConn)
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Equal(t, commitID, refs["main"])
	require.True(t, dest.HasCommit(commitID))

	got, err := dest.ReadCommit(commitID)
	require.NoError(t, err)
	require.Equal(t, "initial\n", got.Description)

	gotTree, err := dest.ReadTree(got.Tree)
	require.NoError(t, err)
	value, ok := gotTree.Find("main.go")
	require.True(t, ok)
	require.True(t, dest.HasFile(value.FileID))
}

// TestPushServeSkipsAlreadyPresentObjects checks that re-pushing a
// commit the peer already has transfers nothing new and still reports
// the ref correctly.
func TestPushServeSkipsAlreadyPresentObjects(t *testing.T) {
	source := newTestStore(t)
	commitID := writeSampleCommit(t, source, "initial\n")

	dest := newTestStore(t)
	{
		clientConn, serverConn := net.Pipe()
		done := make(chan error, 1)
		go func() { done <- Push(source, clientConn, map[string]ids.Hash{"main": commitID}) }()
		_, err := Serve(dest, serverConn)
		require.NoError(t, err)
		require.NoError(t, <-done)
		clientConn.Close()
		serverConn.Close()
	}

	// Second push of the same history should probe everything as
	// already-had and send zero object frames, but still update refs.
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	done := make(chan error, 1)
	go func() { done <- Push(source, clientConn, map[string]ids.Hash{"main": commitID}) }()
	refs, err := Serve(dest, serverConn)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, commitID, refs["main"])
}
