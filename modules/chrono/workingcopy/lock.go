package workingcopy

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked is returned by Lock when another process already holds the
// workspace lock.
type ErrLocked struct {
	Path string
}

func (e *ErrLocked) Error() string {
	return fmt.Sprintf("workingcopy: %s is locked by another process", e.Path)
}

// Lock is the per-workspace exclusive file lock spec section 4.7 and
// section 5 require around every mutating operation: a single
// O_CREATE|O_EXCL lock file, grounded on the teacher's
// refs/filesystem.go openNotExists idiom (no flock syscall needed,
// since the lock only ever needs to exclude other chrono processes on
// the same workspace directory, not arbitrary file access).
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the workspace lock under dir, failing immediately with
// ErrLocked if another process already holds it.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &ErrLocked{Path: path}
		}
		return nil, err
	}
	return &Lock{path: path, file: f}, nil
}

// Release closes and removes the lock file. It is safe to call once;
// calling it again is a no-op error from the OS that callers should
// ignore.
func (l *Lock) Release() error {
	_ = l.file.Close()
	return os.Remove(l.path)
}
