// Package objstore implements the write-once, content-addressed object
// store contract of spec section 4.1: five kinds (file blob, symlink
// blob, tree, commit, conflict blob), idempotent writes, atomic
// temp-file-then-rename placement, and a fixed empty-tree id that never
// needs writing. The on-disk layout mirrors the teacher's
// modules/zeta/backend file_storer: objects live under a directory
// named by kind, sharded two hex characters deep.
package objstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned by Read* when the id is unknown. Callers
// should treat any other error as a backend (I/O) error per spec
// section 7's error taxonomy.
var ErrNotFound = errors.New("objstore: object not found")

// NotFoundError carries the missing id and kind for callers that need
// to report it.
type NotFoundError struct {
	Kind string
	ID   ids.Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("objstore: %s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Kind enumerates the five object kinds of spec section 4.1.
type Kind string

const (
	KindFileBlob     Kind = "file"
	KindSymlinkBlob  Kind = "symlink"
	KindTree         Kind = "tree"
	KindCommit       Kind = "commit"
	KindConflictBlob Kind = "conflict"
)

// Store is a content-addressed, write-once key-value store for the five
// object kinds. Implementations must be safe for concurrent use by
// multiple goroutines and multiple processes sharing the same on-disk
// directory (spec section 4.1).
type Store struct {
	root string
}

// Open returns a Store rooted at dir, creating the per-kind shard
// directories if they do not already exist.
func Open(dir string) (*Store, error) {
	for _, k := range []Kind{KindFileBlob, KindSymlinkBlob, KindTree, KindCommit, KindConflictBlob} {
		if err := os.MkdirAll(filepath.Join(dir, string(k)), 0o755); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	return &Store{root: dir}, nil
}

func (s *Store) pathFor(kind Kind, id ids.Hash) string {
	hex := id.String()
	return filepath.Join(s.root, string(kind), hex[:2], hex[2:4], hex)
}

// EmptyTreeID is re-exported so callers needn't import object directly
// just to special-case the well-known empty tree.
var EmptyTreeID = object.EmptyTreeID

func (s *Store) has(kind Kind, id ids.Hash) bool {
	_, err := os.Stat(s.pathFor(kind, id))
	return err == nil
}

// writeRaw writes payload under kind/id atomically via a temp file in
// the same directory followed by a rename, so a partial write is never
// observable under the final name. Writing identical content twice is a
// no-op that succeeds (idempotent).
func (s *Store) writeRaw(kind Kind, id ids.Hash, payload []byte) error {
	if s.has(kind, id) {
		return nil
	}
	dir := filepath.Dir(s.pathFor(kind, id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return trace.Wrap(err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return trace.Wrap(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed away
	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return trace.Wrap(err)
	}
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		tmp.Close()
		return trace.Wrap(err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return trace.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return trace.Wrap(err)
	}
	return os.Rename(tmpName, s.pathFor(kind, id))
}

func (s *Store) readRaw(kind Kind, id ids.Hash) ([]byte, error) {
	f, err := os.Open(s.pathFor(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Kind: string(kind), ID: id}
		}
		return nil, trace.Wrap(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// WriteTree stores a tree and returns its id. Writing the canonical
// empty tree returns EmptyTreeID without touching disk.
func (s *Store) WriteTree(t *object.Tree) (ids.Hash, error) {
	payload := t.Encode()
	id := ids.Of(payload)
	if id == EmptyTreeID {
		return id, nil
	}
	if err := s.writeRaw(KindTree, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadTree(id ids.Hash) (*object.Tree, error) {
	if id == EmptyTreeID {
		return object.NewTree(nil), nil
	}
	payload, err := s.readRaw(KindTree, id)
	if err != nil {
		return nil, err
	}
	return object.DecodeTree(payload)
}

// WriteCommit stores a commit. The commit's own Hash field is ignored;
// the id is computed from its encoded form. The synthetic root commit
// is never written: ReadCommit and HasCommit answer for RootCommitID
// without touching disk.
func (s *Store) WriteCommit(c *object.Commit) (ids.Hash, error) {
	payload := c.Encode()
	id := ids.Of(payload)
	if err := s.writeRaw(KindCommit, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadCommit(id ids.Hash) (*object.Commit, error) {
	if id == object.RootCommitID {
		return object.NewRootCommit(), nil
	}
	payload, err := s.readRaw(KindCommit, id)
	if err != nil {
		return nil, err
	}
	return object.Decode(id, payload)
}

// WriteConflict stores a conflict blob.
func (s *Store) WriteConflict(c *object.ConflictBlob) (ids.Hash, error) {
	payload := c.Encode()
	id := ids.Of(payload)
	if err := s.writeRaw(KindConflictBlob, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadConflict(id ids.Hash) (*object.ConflictBlob, error) {
	payload, err := s.readRaw(KindConflictBlob, id)
	if err != nil {
		return nil, err
	}
	return object.DecodeConflictBlob(payload)
}

// WriteFile stores file content streamed from r, returning its id. File
// blobs are the one kind the contract requires to be streamable.
func (s *Store) WriteFile(r io.Reader) (ids.Hash, int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return ids.Zero, 0, trace.Wrap(err)
	}
	id := ids.Of(buf)
	if err := s.writeRaw(KindFileBlob, id, buf); err != nil {
		return ids.Zero, 0, err
	}
	return id, int64(len(buf)), nil
}

// RemoveFile deletes the local copy of a file blob. It exists for the
// large-blob offload path (objstore/remote.OffloadStore): once content
// has been confirmed present in a remote backend, the local copy is no
// longer needed. A no-op if id is already absent; never used for any
// other object kind, all of which remain write-once for their lifetime.
func (s *Store) RemoveFile(id ids.Hash) error {
	if err := os.Remove(s.pathFor(KindFileBlob, id)); err != nil && !os.IsNotExist(err) {
		return trace.Wrap(err)
	}
	return nil
}

// OpenFile returns a streaming reader for the file blob named by id.
func (s *Store) OpenFile(id ids.Hash) (io.ReadCloser, error) {
	payload, err := s.readRaw(KindFileBlob, id)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// WriteSymlink stores a symlink target as its own blob kind.
func (s *Store) WriteSymlink(target string) (ids.Hash, error) {
	payload := []byte(target)
	id := ids.Of(payload)
	if err := s.writeRaw(KindSymlinkBlob, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadSymlink(id ids.Hash) (string, error) {
	payload, err := s.readRaw(KindSymlinkBlob, id)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// HasCommit, HasTree etc. let callers probe existence without paying
// for a full decode; used by the commit index rebuild walk.
func (s *Store) HasCommit(id ids.Hash) bool   { return id == object.RootCommitID || s.has(KindCommit, id) }
func (s *Store) HasTree(id ids.Hash) bool     { return id == EmptyTreeID || s.has(KindTree, id) }
func (s *Store) HasFile(id ids.Hash) bool     { return s.has(KindFileBlob, id) }
func (s *Store) HasSymlink(id ids.Hash) bool  { return s.has(KindSymlinkBlob, id) }
func (s *Store) HasConflict(id ids.Hash) bool { return s.has(KindConflictBlob, id) }

// Backend is the minimal read surface of an object store, satisfied by
// *Store. remote.OffloadStore does not implement it: its OpenFile takes
// a context, and it offers no tree, commit, conflict or symlink reads.
type Backend interface {
	ReadTree(id ids.Hash) (*object.Tree, error)
	ReadCommit(id ids.Hash) (*object.Commit, error)
	ReadConflict(id ids.Hash) (*object.ConflictBlob, error)
	OpenFile(id ids.Hash) (io.ReadCloser, error)
	ReadSymlink(id ids.Hash) (string, error)
}

var _ Backend = (*Store)(nil)
