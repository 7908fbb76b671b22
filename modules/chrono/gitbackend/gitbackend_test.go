package gitbackend

import (
	"bytes"
	"testing"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/stretchr/testify/require"
)

func newGitStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLooseObjectRoundTrip(t *testing.T) {
	s := newGitStore(t)
	sha, err := s.WriteObject("blob", []byte("package main\n"))
	require.NoError(t, err)
	require.True(t, s.Has(sha))

	typ, content, err := s.ReadObject(sha)
	require.NoError(t, err)
	require.Equal(t, "blob", typ)
	require.Equal(t, []byte("package main\n"), content)
}

func TestWriteObjectIsIdempotent(t *testing.T) {
	s := newGitStore(t)
	sha1, err := s.WriteObject("blob", []byte("same content"))
	require.NoError(t, err)
	sha2, err := s.WriteObject("blob", []byte("same content"))
	require.NoError(t, err)
	require.Equal(t, sha1, sha2)
}

func TestEncodeDecodeTreeRoundTrip(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeFile, Name: "zebra.txt", SHA: "0100000000000000000000000000000000000000"[:40]},
		{Mode: ModeTree, Name: "apple", SHA: "0200000000000000000000000000000000000000"[:40]},
		{Mode: ModeFile, Name: "apple.txt", SHA: "0300000000000000000000000000000000000000"[:40]},
	}
	payload, err := EncodeTree(entries)
	require.NoError(t, err)

	got, err := DecodeTree(payload)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// git sorts a directory name "apple" as if it were "apple/", which
	// sorts after "apple.txt" but before "zebra.txt".
	require.Equal(t, "apple.txt", got[0].Name)
	require.Equal(t, "apple", got[1].Name)
	require.Equal(t, "zebra.txt", got[2].Name)
}

func TestEncodeCommitDecodeCommitRoundTrip(t *testing.T) {
	c := Commit{
		Tree:      "1111111111111111111111111111111111111111",
		Parents:   []string{"2222222222222222222222222222222222222222"},
		Author:    "Ada Lovelace <ada@example.com> 1700000000 +0000",
		Committer: "Ada Lovelace <ada@example.com> 1700000000 +0000",
		Message:   "initial commit\n",
	}
	payload := EncodeCommit(c)
	got, err := DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestSignatureFormatParseRoundTrip(t *testing.T) {
	raw := formatSignature("Ada Lovelace", "ada@example.com", 1700000000, -330)
	name, email, unixSeconds, offsetMinutes, err := parseSignature(raw)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", name)
	require.Equal(t, "ada@example.com", email)
	require.Equal(t, int64(1700000000), unixSeconds)
	require.Equal(t, -330, offsetMinutes)
}

func writeNativeCommit(t *testing.T, store *objstore.Store, parents []ids.Hash, tree ids.Hash, when time.Time, message string) ids.Hash {
	t.Helper()
	changeID, err := object.NewRandomChangeID()
	require.NoError(t, err)
	sig := object.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: when, OffsetMinutes: 0}
	c := &object.Commit{
		Parents:     parents,
		Tree:        tree,
		Author:      sig,
		Committer:   sig,
		ChangeID:    changeID,
		Description: message,
	}
	id, err := store.WriteCommit(c)
	require.NoError(t, err)
	return id
}

func TestExportImportRoundTrip(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	objects := newGitStore(t)

	fileID, _, err := store.WriteFile(bytes.NewReader([]byte("package main\n")))
	require.NoError(t, err)
	symlinkID, err := store.WriteSymlink("main.go")
	require.NoError(t, err)

	subTree := object.NewTree([]object.Entry{
		{Name: "main.go", Value: object.File(fileID, false, "")},
	})
	subTreeID, err := store.WriteTree(subTree)
	require.NoError(t, err)

	rootTree := object.NewTree([]object.Entry{
		{Name: "cmd", Value: object.SubTree(subTreeID)},
		{Name: "link", Value: object.Symlink(symlinkID)},
	})
	rootTreeID, err := store.WriteTree(rootTree)
	require.NoError(t, err)

	when := time.Unix(1700000000, 0).UTC()
	commitID := writeNativeCommit(t, store, []ids.Hash{object.RootCommitID}, rootTreeID, when, "initial\n")

	ex := NewExporter(store, objects)
	gitSHA, err := ex.ExportCommit(commitID)
	require.NoError(t, err)
	require.True(t, objects.Has(gitSHA))

	importStore, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	index, err := commitindex.Open(t.TempDir(), importStore)
	require.NoError(t, err)

	im := NewImporter(objects, importStore, index)
	imported, err := im.ImportRefs([]string{gitSHA})
	require.NoError(t, err)
	importedID := imported[gitSHA]

	got, err := importStore.ReadCommit(importedID)
	require.NoError(t, err)
	require.Equal(t, "initial\n", got.Description)
	require.Equal(t, []ids.Hash{object.RootCommitID}, got.Parents)

	gotTree, err := importStore.ReadTree(got.Tree)
	require.NoError(t, err)
	require.Len(t, gotTree.Entries, 2)

	linkValue, ok := gotTree.Find("link")
	require.True(t, ok)
	target, err := importStore.ReadSymlink(linkValue.SymlinkID)
	require.NoError(t, err)
	require.Equal(t, "main.go", target)

	require.True(t, index.Has(importedID))
}

func TestExportSkipsUnresolvedConflict(t *testing.T) {
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	objects := newGitStore(t)

	conflictID, err := store.WriteConflict(&object.ConflictBlob{})
	require.NoError(t, err)

	tree := object.NewTree([]object.Entry{
		{Name: "conflicted.txt", Value: object.Conflict(conflictID)},
	})
	treeID, err := store.WriteTree(tree)
	require.NoError(t, err)

	commitID := writeNativeCommit(t, store, []ids.Hash{object.RootCommitID}, treeID, time.Unix(1700000000, 0).UTC(), "has a conflict\n")

	ex := NewExporter(store, objects)
	_, err = ex.ExportCommit(commitID)
	require.Error(t, err)

	var unresolved *ErrUnresolved
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, commitID, unresolved.CommitID)
}
