package oplog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// ErrHeadChanged is returned by advanceHead when the current op-head no
// longer matches the expected value, meaning another writer committed
// concurrently; the caller should re-read the head, view-merge, and
// retry (spec section 4.4 step 4).
var ErrHeadChanged = errors.New("oplog: operation head changed concurrently")

// ErrResourceLocked is returned when another writer currently holds the
// op-head update lock.
var ErrResourceLocked = errors.New("oplog: operation head is locked")

const opHeadFile = "op-head"

func headPath(dir string) string { return filepath.Join(dir, opHeadFile) }

// readHead returns the current op-head operation id, or ids.Zero if no
// transaction has ever committed.
func readHead(dir string) (ids.Hash, error) {
	b, err := os.ReadFile(headPath(dir))
	if os.IsNotExist(err) {
		return ids.Zero, nil
	}
	if err != nil {
		return ids.Zero, err
	}
	return ids.New(strings.TrimSpace(string(b))), nil
}

// advanceHead atomically sets the op-head to next, but only if the
// current on-disk value still equals expected; a lock file guards the
// check-then-rename the way modules/zeta/refs/filesystem.go guards a
// single reference update, generalized here to the one op-head pointer.
func advanceHead(dir string, expected, next ids.Hash) error {
	lockName := headPath(dir) + ".lock"
	fd, err := os.OpenFile(lockName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrResourceLocked
		}
		return err
	}
	defer func() {
		fd.Close()
		os.Remove(lockName)
	}()

	current, err := readHead(dir)
	if err != nil {
		return err
	}
	if current != expected {
		return ErrHeadChanged
	}

	path := headPath(dir)
	tmp, err := os.CreateTemp(dir, ".tmp-op-head-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(next.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
