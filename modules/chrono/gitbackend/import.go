package gitbackend

import (
	"fmt"
	"strings"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Importer translates git loose objects into native objects, writing
// them into a store and adding each imported ref tip to a
// commitindex.Index. It remembers the git trees and commits it has
// already translated and does not translate those again. It does not
// ask the index whether a commit is already there, and every commit it
// translates gets a fresh random change id, so a second Importer run
// over the same git history writes a second set of native commits.
type Importer struct {
	objects *Store
	store   *objstore.Store
	index   *commitindex.Index

	treeIDs   map[string]ids.Hash
	commitIDs map[string]ids.Hash
}

// NewImporter builds an Importer reading git loose objects from
// objects and writing native objects into store/index.
func NewImporter(objects *Store, store *objstore.Store, index *commitindex.Index) *Importer {
	return &Importer{
		objects:   objects,
		store:     store,
		index:     index,
		treeIDs:   make(map[string]ids.Hash),
		commitIDs: make(map[string]ids.Hash),
	}
}

// ImportTree translates the git tree named sha (and everything beneath
// it) into a native tree, returning its id.
func (im *Importer) ImportTree(sha string) (ids.Hash, error) {
	if id, ok := im.treeIDs[sha]; ok {
		return id, nil
	}

	typ, content, err := im.objects.ReadObject(sha)
	if err != nil {
		return ids.Hash{}, err
	}
	if typ != "tree" {
		return ids.Hash{}, fmt.Errorf("gitbackend: object %s is a %s, not a tree", sha, typ)
	}
	rows, err := DecodeTree(content)
	if err != nil {
		return ids.Hash{}, err
	}

	entries := make([]object.Entry, 0, len(rows))
	for _, row := range rows {
		value, err := im.importEntry(row)
		if err != nil {
			return ids.Hash{}, err
		}
		entries = append(entries, object.Entry{Name: row.Name, Value: value})
	}

	id, err := im.store.WriteTree(object.NewTree(entries))
	if err != nil {
		return ids.Hash{}, err
	}
	im.treeIDs[sha] = id
	return id, nil
}

func (im *Importer) importEntry(row TreeEntry) (object.TreeValue, error) {
	switch row.Mode {
	case ModeTree:
		id, err := im.ImportTree(row.SHA)
		if err != nil {
			return object.TreeValue{}, err
		}
		return object.SubTree(id), nil
	case ModeSubmodule:
		return object.Submodule(row.SHA), nil
	case ModeSymlink:
		_, content, err := im.objects.ReadObject(row.SHA)
		if err != nil {
			return object.TreeValue{}, err
		}
		id, err := im.store.WriteSymlink(string(content))
		if err != nil {
			return object.TreeValue{}, err
		}
		return object.Symlink(id), nil
	case ModeFile, ModeExecutable:
		_, content, err := im.objects.ReadObject(row.SHA)
		if err != nil {
			return object.TreeValue{}, err
		}
		id, _, err := im.store.WriteFile(strings.NewReader(string(content)))
		if err != nil {
			return object.TreeValue{}, err
		}
		return object.File(id, row.Mode == ModeExecutable, ""), nil
	default:
		return object.TreeValue{}, fmt.Errorf("gitbackend: unsupported tree entry mode %q", row.Mode)
	}
}

// ImportCommit translates the git commit named sha, and every ancestor
// this Importer has not already translated, into native commits,
// returning the native id of the commit named sha. The walk stops only
// at commits in this Importer's own memo; the commit index is not
// consulted.
func (im *Importer) ImportCommit(sha string) (ids.Hash, error) {
	if id, ok := im.commitIDs[sha]; ok {
		return id, nil
	}

	typ, content, err := im.objects.ReadObject(sha)
	if err != nil {
		return ids.Hash{}, err
	}
	if typ != "commit" {
		return ids.Hash{}, fmt.Errorf("gitbackend: object %s is a %s, not a commit", sha, typ)
	}
	gc, err := DecodeCommit(content)
	if err != nil {
		return ids.Hash{}, err
	}

	treeID, err := im.ImportTree(gc.Tree)
	if err != nil {
		return ids.Hash{}, err
	}

	parents := make([]ids.Hash, 0, len(gc.Parents))
	for _, p := range gc.Parents {
		pid, err := im.ImportCommit(p)
		if err != nil {
			return ids.Hash{}, err
		}
		parents = append(parents, pid)
	}
	if len(parents) == 0 {
		parents = []ids.Hash{object.RootCommitID}
	}

	author, err := toSignature(gc.Author)
	if err != nil {
		return ids.Hash{}, err
	}
	committer, err := toSignature(gc.Committer)
	if err != nil {
		return ids.Hash{}, err
	}

	changeID, err := object.NewRandomChangeID()
	if err != nil {
		return ids.Hash{}, err
	}

	c := &object.Commit{
		Parents:     parents,
		Tree:        treeID,
		Author:      author,
		Committer:   committer,
		ChangeID:    changeID,
		Description: gc.Message,
	}

	id, err := im.store.WriteCommit(c)
	if err != nil {
		return ids.Hash{}, err
	}
	im.commitIDs[sha] = id
	return id, nil
}

// ImportRefs hydrates every ref tip in tips (a git sha each) into the
// native store and registers each with the commit index, skipping any
// ref whose git commit has already been imported in a prior call.
func (im *Importer) ImportRefs(tips []string) (map[string]ids.Hash, error) {
	out := make(map[string]ids.Hash, len(tips))
	for _, sha := range tips {
		id, err := im.ImportCommit(sha)
		if err != nil {
			return nil, fmt.Errorf("gitbackend: import ref %s: %w", sha, err)
		}
		if err := im.index.Add(id); err != nil {
			return nil, fmt.Errorf("gitbackend: index %s: %w", sha, err)
		}
		out[sha] = id
	}
	return out, nil
}

func toSignature(raw string) (object.Signature, error) {
	name, email, unixSeconds, offsetMinutes, err := parseSignature(raw)
	if err != nil {
		return object.Signature{}, err
	}
	return object.Signature{
		Name:          name,
		Email:         email,
		When:          time.Unix(unixSeconds, 0).UTC(),
		OffsetMinutes: offsetMinutes,
	}, nil
}
