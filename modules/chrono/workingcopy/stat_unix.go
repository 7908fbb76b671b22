//go:build linux

package workingcopy

import (
	"os"

	"golang.org/x/sys/unix"
)

// raceKey holds a file's device+inode+change-time. statRaceKey is not
// called by snapshotFile: the same-second race guard in snapshot.go
// compares size, mtime and the state's WrittenAt only, on every
// platform. Grounded on the teacher's
// worktree_bsd.go/worktree_unix_other.go per-platform Stat_t split,
// using golang.org/x/sys/unix for the portable struct fields instead of
// raw syscall.Stat_t.
type raceKey struct {
	dev   uint64
	ino   uint64
	ctime int64
}

func statRaceKey(fi os.FileInfo) raceKey {
	st, ok := fi.Sys().(*unix.Stat_t)
	if !ok {
		return raceKey{}
	}
	return raceKey{dev: uint64(st.Dev), ino: st.Ino, ctime: int64(st.Ctim.Sec)}
}
