package gitbackend

import (
	"fmt"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// ErrUnresolved is returned by Export when a commit's tree (directly or
// through a descendant subtree) still carries an unresolved conflict,
// or when the commit itself is an unresolved merge-of-trees. Git has no
// wire representation for either, so such commits cannot be exported;
// the conflict blob itself is left exactly where it already lives, in
// the native store, which doubles as the side store spec section 6
// calls for (content-addressed the same way either way).
type ErrUnresolved struct {
	CommitID ids.Hash
}

func (e *ErrUnresolved) Error() string {
	return fmt.Sprintf("gitbackend: commit %s has an unresolved conflict and cannot be exported", e.CommitID.String())
}

// Exporter translates native commits/trees into git loose objects,
// memoizing every id it has already translated so a shared history is
// only encoded once.
type Exporter struct {
	store   *objstore.Store
	objects *Store

	treeIDs   map[ids.Hash]string
	commitIDs map[ids.Hash]string
}

// NewExporter builds an Exporter reading from store and writing into
// objects.
func NewExporter(store *objstore.Store, objects *Store) *Exporter {
	return &Exporter{
		store:     store,
		objects:   objects,
		treeIDs:   make(map[ids.Hash]string),
		commitIDs: make(map[ids.Hash]string),
	}
}

// ExportTree translates the tree named treeID (and everything it
// contains) into a git tree object, returning its SHA-1.
func (ex *Exporter) ExportTree(treeID ids.Hash) (string, error) {
	if treeID == object.EmptyTreeID {
		return ex.objects.WriteObject("tree", nil)
	}
	if sha, ok := ex.treeIDs[treeID]; ok {
		return sha, nil
	}

	tree, err := ex.store.ReadTree(treeID)
	if err != nil {
		return "", err
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entry, err := ex.exportEntry(e)
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}

	payload, err := EncodeTree(entries)
	if err != nil {
		return "", err
	}
	sha, err := ex.objects.WriteObject("tree", payload)
	if err != nil {
		return "", err
	}
	ex.treeIDs[treeID] = sha
	return sha, nil
}

func (ex *Exporter) exportEntry(e object.Entry) (TreeEntry, error) {
	switch e.Value.Kind {
	case object.KindFile:
		sha, err := ex.exportBlob(e.Value.FileID)
		if err != nil {
			return TreeEntry{}, err
		}
		mode := ModeFile
		if e.Value.Executable {
			mode = ModeExecutable
		}
		return TreeEntry{Mode: mode, Name: e.Name, SHA: sha}, nil
	case object.KindSymlink:
		target, err := ex.store.ReadSymlink(e.Value.SymlinkID)
		if err != nil {
			return TreeEntry{}, err
		}
		sha, err := ex.objects.WriteObject("blob", []byte(target))
		if err != nil {
			return TreeEntry{}, err
		}
		return TreeEntry{Mode: ModeSymlink, Name: e.Name, SHA: sha}, nil
	case object.KindTree:
		sha, err := ex.ExportTree(e.Value.TreeID)
		if err != nil {
			return TreeEntry{}, err
		}
		return TreeEntry{Mode: ModeTree, Name: e.Name, SHA: sha}, nil
	case object.KindSubmodule:
		return TreeEntry{Mode: ModeSubmodule, Name: e.Name, SHA: e.Value.SubmoduleID}, nil
	case object.KindConflict:
		return TreeEntry{}, &ErrUnresolved{}
	default:
		return TreeEntry{}, fmt.Errorf("gitbackend: unexpected tree value kind %v", e.Value.Kind)
	}
}

func (ex *Exporter) exportBlob(fileID ids.Hash) (string, error) {
	rc, err := ex.store.OpenFile(fileID)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return ex.objects.WriteObject("blob", data)
}

// ExportCommit translates commitID and every ancestor it has not
// already translated into git commit objects, returning commitID's git
// SHA-1. If commitID or any of its trees carries an unresolved
// conflict, it returns *ErrUnresolved naming the offending commit
// rather than partially exporting it.
func (ex *Exporter) ExportCommit(commitID ids.Hash) (string, error) {
	if sha, ok := ex.commitIDs[commitID]; ok {
		return sha, nil
	}

	c, err := ex.store.ReadCommit(commitID)
	if err != nil {
		return "", err
	}
	if c.IsMergedTree() {
		return "", &ErrUnresolved{CommitID: commitID}
	}

	treeSHA, err := ex.ExportTree(c.Tree)
	if err != nil {
		if ue, ok := err.(*ErrUnresolved); ok && ue.CommitID == (ids.Hash{}) {
			ue.CommitID = commitID
		}
		return "", err
	}

	parentSHAs := make([]string, len(c.Parents))
	for i, p := range c.Parents {
		if p == object.RootCommitID {
			continue
		}
		sha, err := ex.ExportCommit(p)
		if err != nil {
			return "", err
		}
		parentSHAs[i] = sha
	}

	gc := Commit{
		Tree:      treeSHA,
		Parents:   nonEmpty(parentSHAs),
		Author:    formatSignature(c.Author.Name, c.Author.Email, c.Author.When.Unix(), c.Author.OffsetMinutes),
		Committer: formatSignature(c.Committer.Name, c.Committer.Email, c.Committer.When.Unix(), c.Committer.OffsetMinutes),
		Message:   c.Description,
	}
	sha, err := ex.objects.WriteObject("commit", EncodeCommit(gc))
	if err != nil {
		return "", err
	}
	ex.commitIDs[commitID] = sha
	return sha, nil
}

func nonEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExportRefs exports every head in heads independently, collecting the
// git SHA each successfully exported head maps to and the commits that
// had to be skipped (with the *ErrUnresolved that stopped them) instead
// of aborting the whole batch on the first unresolved conflict.
func ExportRefs(store *objstore.Store, objects *Store, heads []ids.Hash) (exported map[ids.Hash]string, skipped map[ids.Hash]error) {
	ex := NewExporter(store, objects)
	exported = make(map[ids.Hash]string, len(heads))
	skipped = make(map[ids.Hash]error)
	for _, h := range heads {
		sha, err := ex.ExportCommit(h)
		if err != nil {
			skipped[h] = err
			continue
		}
		exported[h] = sha
	}
	return exported, skipped
}
