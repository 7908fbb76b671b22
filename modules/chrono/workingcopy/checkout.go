package workingcopy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/difftree"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/mergedtree"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Checkout materializes newTree under root, applying only the
// additions/removals/modifications difftree.Diff reports between
// st.TreeID and newTree, restricted by sparse (spec section 4.7's
// store-to-filesystem direction). It updates st.Files and st.TreeID in
// place on success; callers are responsible for calling st.Save
// afterward. Grounded on the teacher's worktree_checkout.go/worktree.go
// checkoutChange/checkoutFile/checkoutSymlink family, adapted from a
// git-index target to this repo's TreeState.
func Checkout(ctx context.Context, store *objstore.Store, root string, st *TreeState, newTreeID ids.Hash, sparse matcher.Matcher) error {
	if err := checkoutBetween(ctx, store, root, st, st.TreeID, newTreeID, sparse); err != nil {
		return err
	}
	st.TreeID = newTreeID
	return nil
}

// checkoutBetween applies the diff between two arbitrary tree ids to
// root, restricted by m, without touching st.TreeID itself: the
// sparse-pattern two-checkout dance in sparse.go needs to diff against
// object.EmptyTreeID on one side while leaving the persisted tree id
// unchanged until both halves succeed.
func checkoutBetween(ctx context.Context, store *objstore.Store, root string, st *TreeState, fromTreeID, toTreeID ids.Hash, m matcher.Matcher) error {
	before, err := mergedtree.New(store, []ids.Hash{fromTreeID}, mergedtree.AcceptSameChange)
	if err != nil {
		return err
	}
	after, err := mergedtree.New(store, []ids.Hash{toTreeID}, mergedtree.AcceptSameChange)
	if err != nil {
		return err
	}

	entries, errc := difftree.Diff(ctx, before, after, m)
	for e := range entries {
		if err := applyCheckoutEntry(store, root, st, e); err != nil {
			return err
		}
	}
	return <-errc
}

func applyCheckoutEntry(store *objstore.Store, root string, st *TreeState, e difftree.Entry) error {
	absPath := filepath.Join(root, filepath.FromSlash(e.Path))

	// parent directories are never written or removed through a symlink.
	if i := strings.LastIndex(e.Path, "/"); i >= 0 {
		dir := root
		for _, part := range strings.Split(e.Path[:i], "/") {
			dir = filepath.Join(dir, part)
			if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("workingcopy: %s: parent directory %s is a symlink", e.Path, dir)
			}
		}
	}

	after, isResolved := e.After.AsResolved()
	if isResolved && after == nil {
		delete(st.Files, e.Path)
		return removePathAndEmptyDirs(root, absPath)
	}

	// a newly added path that already exists on disk keeps its contents;
	// leaving it out of st.Files makes the next snapshot re-hash it, so it
	// shows as modified against the checked-out tree.
	if before, ok := e.Before.AsResolved(); ok && before == nil {
		if _, err := os.Lstat(absPath); err == nil {
			delete(st.Files, e.Path)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(absPath); err != nil {
		return err
	}

	if isResolved {
		fs, err := writeWorkingFile(store, absPath, *after)
		if err != nil {
			return err
		}
		st.Files[e.Path] = fs
		return nil
	}

	fs, err := writeWorkingConflict(store, absPath, e.After)
	if err != nil {
		return err
	}
	st.Files[e.Path] = fs
	return nil
}

func writeWorkingFile(store *objstore.Store, absPath string, v object.TreeValue) (FileState, error) {
	switch v.Kind {
	case object.KindFile:
		mode := os.FileMode(0o644)
		if v.Executable {
			mode = 0o755
		}
		rc, err := store.OpenFile(v.FileID)
		if err != nil {
			return FileState{}, err
		}
		defer rc.Close()
		f, err := os.OpenFile(absPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return FileState{}, err
		}
		if _, err := io.Copy(f, rc); err != nil {
			f.Close()
			return FileState{}, err
		}
		if err := f.Close(); err != nil {
			return FileState{}, err
		}
		info, err := os.Lstat(absPath)
		if err != nil {
			return FileState{}, err
		}
		kind := KindRegular
		if v.Executable {
			kind = KindExecutable
		}
		return FileState{Kind: kind, Size: info.Size(), ModTime: info.ModTime(), ContentID: v.FileID}, nil
	case object.KindSymlink:
		return writeWorkingSymlink(store, absPath, v.SymlinkID)
	case object.KindSubmodule:
		return FileState{Kind: KindSubmodule, SubmoduleRef: v.SubmoduleID}, nil
	case object.KindConflict:
		// a tree entry can itself be Kind=Conflict: a conflict blob stored
		// from an earlier unresolved rebase/merge that nothing has
		// resolved since. Materialize it from the stored blob rather than
		// from difftree's (trivially resolved, single-source) merge view.
		return materializeStoredConflict(store, absPath, v.ConflictID)
	default:
		return FileState{}, fmt.Errorf("workingcopy: unexpected resolved tree value kind %v at checkout", v.Kind)
	}
}

// materializeStoredConflict renders the conflict already recorded under
// conflictID to conflict-marker text, preserving conflictID itself in
// the resulting FileState since the stored conflict is unchanged.
func materializeStoredConflict(store *objstore.Store, absPath string, conflictID ids.Hash) (FileState, error) {
	blob, err := store.ReadConflict(conflictID)
	if err != nil {
		return FileState{}, err
	}
	byteMerge, err := conflictAsBytes(store, blob.Merge)
	if err != nil {
		return FileState{}, err
	}
	text := conflict.MaterializeText(byteMerge)
	if err := os.WriteFile(absPath, text, 0o644); err != nil {
		return FileState{}, err
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return FileState{}, err
	}
	return FileState{Kind: KindConflict, Size: info.Size(), ModTime: info.ModTime(), ContentID: conflictID}, nil
}

// writeWorkingSymlink creates a real symlink where the platform
// supports it, falling back to a plain text file holding the target
// path when it doesn't (e.g. unprivileged Windows) and logging a
// warning, per the teacher's checkoutSymlink isSymlinkWindowsNonAdmin
// fallback.
func writeWorkingSymlink(store *objstore.Store, absPath string, symlinkID ids.Hash) (FileState, error) {
	target, err := store.ReadSymlink(symlinkID)
	if err != nil {
		return FileState{}, err
	}
	symErr := os.Symlink(target, absPath)
	if symErr == nil {
		info, err := os.Lstat(absPath)
		if err != nil {
			return FileState{}, err
		}
		return FileState{Kind: KindSymlink, Size: info.Size(), ModTime: info.ModTime(), ContentID: symlinkID}, nil
	}
	logrus.Warnf("workingcopy: cannot create symlink %s (%v); writing its target as a text file", absPath, symErr)
	if err := os.WriteFile(absPath, []byte(target), 0o644); err != nil {
		return FileState{}, err
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return FileState{}, err
	}
	return FileState{Kind: KindRegular, Size: info.Size(), ModTime: info.ModTime(), ContentID: symlinkID}, nil
}

// writeWorkingConflict materializes an unresolved tree-value merge as
// conflict-marker text (spec section 6's bit-exact marker format),
// recording the blob id of the conflict it was built from so a later
// Snapshot can tell whether the user's edit actually resolved it.
func writeWorkingConflict(store *objstore.Store, absPath string, m conflict.Merge[*object.TreeValue]) (FileState, error) {
	byteSides := make([][]byte, m.Len())
	treeValues := make([]object.TreeValue, m.Len())
	for i, v := range m.Values() {
		if v == nil || v.Kind != object.KindFile {
			byteSides[i] = nil
			if v != nil {
				treeValues[i] = *v
			}
			continue
		}
		rc, err := store.OpenFile(v.FileID)
		if err != nil {
			return FileState{}, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return FileState{}, err
		}
		byteSides[i] = data
		treeValues[i] = *v
	}
	byteMerge, err := conflict.New(byteSides)
	if err != nil {
		return FileState{}, err
	}
	text := conflict.MaterializeText(byteMerge)
	if err := os.WriteFile(absPath, text, 0o644); err != nil {
		return FileState{}, err
	}

	treeMerge, err := conflict.New(treeValues)
	if err != nil {
		return FileState{}, err
	}
	cid, err := store.WriteConflict(&object.ConflictBlob{Merge: treeMerge})
	if err != nil {
		return FileState{}, err
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return FileState{}, err
	}
	return FileState{Kind: KindConflict, Size: info.Size(), ModTime: info.ModTime(), ContentID: cid}, nil
}

// removePathAndEmptyDirs removes absPath and then walks upward removing
// any now-empty parent directories, stopping at root.
func removePathAndEmptyDirs(root, absPath string) error {
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	dir := filepath.Dir(absPath)
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return nil
		}
		dir = filepath.Dir(dir)
	}
}
