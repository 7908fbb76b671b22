package oplog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/klauspost/compress/zstd"
)

// Store is the append-only, content-addressed DAG store for view and
// operation objects: the same write-once/idempotent/atomic-rename
// contract as objstore.Store (spec section 4.1), applied here to the
// two kinds spec section 4.4 names instead of objstore's five. Kept as
// its own small store (rather than widening objstore.Kind) because C1's
// five kinds are a closed, spec-named set.
type Store struct {
	root string
}

const (
	viewDir      = "view"
	operationDir = "operation"
)

// Open returns a Store rooted at dir, creating the view/operation shard
// directories if needed.
func Open(dir string) (*Store, error) {
	for _, d := range []string{viewDir, operationDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	return &Store{root: dir}, nil
}

func (s *Store) pathFor(kindDir string, id ids.Hash) string {
	hex := id.String()
	return filepath.Join(s.root, kindDir, hex[:2], hex[2:4], hex)
}

func (s *Store) writeRaw(kindDir string, id ids.Hash, payload []byte) error {
	path := s.pathFor(kindDir, id)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return trace.Wrap(err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return trace.Wrap(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
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
	return os.Rename(tmpName, path)
}

func (s *Store) readRaw(kindDir string, id ids.Hash) ([]byte, error) {
	f, err := os.Open(s.pathFor(kindDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Kind: kindDir, ID: id}
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

// NotFoundError names a missing view or operation id.
type NotFoundError struct {
	Kind string
	ID   ids.Hash
}

func (e *NotFoundError) Error() string {
	return "oplog: " + e.Kind + " " + e.ID.String() + " not found"
}

// WriteView stores v and returns its content-derived id.
func (s *Store) WriteView(v *View) (ids.Hash, error) {
	payload := v.Encode()
	id := ids.Of(payload)
	if err := s.writeRaw(viewDir, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadView(id ids.Hash) (*View, error) {
	payload, err := s.readRaw(viewDir, id)
	if err != nil {
		return nil, err
	}
	return DecodeView(payload)
}

// WriteOperation stores op under an id derived from its encoded form
// (op.ID is ignored and overwritten).
func (s *Store) WriteOperation(op *Operation) (ids.Hash, error) {
	payload := op.Encode()
	id := ids.Of(payload)
	op.ID = id
	if err := s.writeRaw(operationDir, id, payload); err != nil {
		return ids.Zero, err
	}
	return id, nil
}

func (s *Store) ReadOperation(id ids.Hash) (*Operation, error) {
	payload, err := s.readRaw(operationDir, id)
	if err != nil {
		return nil, err
	}
	return DecodeOperation(id, payload)
}
