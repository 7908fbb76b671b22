// Package gitbackend maps chrono's content-addressed objects onto git's
// own loose-object format (§6 External interfaces: the git-backed
// backend), so a chrono repository can be imported from, and exported
// to, an ordinary git object store. Conflict blobs and submodule refs
// have no git equivalent and live in a side store keyed the same way as
// the native object store.
//
// The teacher's modules/git/gitobj loose-object reader/writer (not
// present in this repository) ships without the Blob/Tree/Commit/ObjectReader types
// its own Database methods reference — that fragment was retrieved
// incomplete and isn't buildable on its own. Rather than depend on
// symbols that don't exist, this package implements the same loose
// object format directly: "<type> <size>\0<content>" zlib-deflated and
// addressed by its SHA-1, which is what Database.encodeBuffer/decode
// operate on above the missing ObjectWriter/ObjectReader layer.
package gitbackend

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store is a git loose-object directory rooted at dir (normally a
// repository's .git/objects).
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sha string) string {
	return filepath.Join(s.dir, sha[:2], sha[2:])
}

// WriteObject deflates and stores content under the git loose-object
// header for typ ("blob", "tree", or "commit"), returning its hex SHA-1.
// Writing identical content twice is a no-op that succeeds.
func (s *Store) WriteObject(typ string, content []byte) (string, error) {
	header := fmt.Sprintf("%s %d\x00", typ, len(content))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(content)
	sha := hex.EncodeToString(h.Sum(nil))

	path := s.path(sha)
	if _, err := os.Stat(path); err == nil {
		return sha, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zlib.NewWriter(tmp)
	if _, err := zw.Write([]byte(header)); err != nil {
		zw.Close()
		tmp.Close()
		return "", err
	}
	if _, err := zw.Write(content); err != nil {
		zw.Close()
		tmp.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", err
	}
	return sha, nil
}

// ReadObject inflates and returns the type and content stored under sha.
func (s *Store) ReadObject(sha string) (typ string, content []byte, err error) {
	f, err := os.Open(s.path(sha))
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, err
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("gitbackend: malformed loose object %s: no header terminator", sha)
	}
	header := string(raw[:nul])
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &typ, &size); err != nil {
		return "", nil, fmt.Errorf("gitbackend: malformed loose object %s header %q: %w", sha, header, err)
	}
	return typ, raw[nul+1:], nil
}

// Has reports whether sha is already stored.
func (s *Store) Has(sha string) bool {
	_, err := os.Stat(s.path(sha))
	return err == nil
}
