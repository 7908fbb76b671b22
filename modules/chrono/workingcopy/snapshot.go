package workingcopy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Snapshot walks root under sparse, comparing every tracked path against
// st.Files, re-hashing whatever changed, and writes the resulting tree
// id into st.TreeID (spec section 4.7's filesystem-to-store direction).
// It reports whether the tree id actually changed. File hashing fans
// out over a worker pool (one semaphore per directory level, mirroring
// the shape of rewrite.fixTree's parallel walk) bounded by workers.
func Snapshot(ctx context.Context, store *objstore.Store, root string, st *TreeState, sparse matcher.Matcher, workers int64) (bool, error) {
	newFiles := make(map[string]FileState, len(st.Files))
	var mu sync.Mutex
	tv, err := snapshotDir(ctx, store, root, "", sparse, &Stack{}, st, newFiles, &mu, workers)
	if err != nil {
		return false, err
	}
	newTreeID := object.EmptyTreeID
	if tv != nil {
		newTreeID = tv.TreeID
	}
	changed := newTreeID != st.TreeID
	st.TreeID = newTreeID
	st.Files = newFiles
	return changed, nil
}

func snapshotDir(ctx context.Context, store *objstore.Store, root, relDir string, sparse matcher.Matcher, ignores *Stack, st *TreeState, newFiles map[string]FileState, mu *sync.Mutex, workers int64) (*object.TreeValue, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	absDir := filepath.Join(root, filepath.FromSlash(relDir))
	ignores, err := ignores.WithDir(absDir, relDir)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })

	sem := semaphore.NewWeighted(workers)
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*object.Entry, len(dirEntries))
	for i, de := range dirEntries {
		i, de := i, de
		name := de.Name()
		if name == StateDirName {
			continue
		}
		rel := name
		if relDir != "" {
			rel = path.Join(relDir, name)
		}
		isDir := de.IsDir()
		if ignores.Ignored(rel, isDir) {
			continue
		}
		if isDir {
			visit := sparse.Visit(rel)
			if visit.Kind == matcher.VisitNothing {
				continue
			}
			g.Go(func() error {
				child, err := snapshotDir(gctx, store, root, rel, sparse, ignores, st, newFiles, mu, workers)
				if err != nil {
					return err
				}
				if child != nil {
					results[i] = &object.Entry{Name: name, Value: *child}
				}
				return nil
			})
			continue
		}
		if !sparse.Matches(rel) {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			v, fs, err := snapshotFile(store, absDir, name, rel, st, mu)
			if err != nil {
				return err
			}
			if v == nil {
				return nil
			}
			mu.Lock()
			newFiles[rel] = fs
			mu.Unlock()
			results[i] = &object.Entry{Name: name, Value: *v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []object.Entry
	for _, e := range results {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	id, err := store.WriteTree(object.NewTree(entries))
	if err != nil {
		return nil, err
	}
	tv := object.SubTree(id)
	return &tv, nil
}

// StateDirName is the hidden directory snapshot never descends into.
const StateDirName = ".chrono"

func snapshotFile(store *objstore.Store, absDir, name, rel string, st *TreeState, mu *sync.Mutex) (*object.TreeValue, FileState, error) {
	absPath := filepath.Join(absDir, name)
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, FileState{}, err
	}

	mu.Lock()
	prev, hadPrev := st.Files[rel]
	prevWrittenAt := st.WrittenAt
	mu.Unlock()

	if info.Mode()&os.ModeSymlink != 0 {
		return snapshotSymlink(store, absPath, info, prev, hadPrev)
	}

	unchanged := hadPrev && prev.Kind != KindConflict && prev.Kind != KindSubmodule &&
		info.Size() == prev.Size && info.ModTime().Equal(prev.ModTime) && !info.ModTime().Equal(prevWrittenAt)
	executable := info.Mode().Perm()&0o111 != 0
	wantKind := KindRegular
	if executable {
		wantKind = KindExecutable
	}
	if unchanged && prev.Kind == wantKind {
		tv := object.File(prev.ContentID, executable, "")
		return &tv, prev, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, FileState{}, err
	}
	defer f.Close()

	if hadPrev && prev.Kind == KindConflict {
		return snapshotMaybeConflictResolution(store, f, prev, info, executable)
	}

	id, _, err := store.WriteFile(f)
	if err != nil {
		return nil, FileState{}, err
	}
	fs := FileState{Kind: wantKind, Size: info.Size(), ModTime: info.ModTime(), ContentID: id}
	tv := object.File(id, executable, "")
	return &tv, fs, nil
}

// snapshotMaybeConflictResolution implements spec section 4.7 step 3: a
// path that was a materialized conflict is re-parsed; if the parsed
// merge still equals the stored conflict, the conflict id is preserved
// unchanged (even though the bytes may have been rewritten identically
// by an editor); if it differs, a new conflict blob is written; if
// parsing fails outright, the user resolved it and the path becomes a
// plain regular file.
func snapshotMaybeConflictResolution(store *objstore.Store, f *os.File, prev FileState, info os.FileInfo, executable bool) (*object.TreeValue, FileState, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, FileState{}, err
	}
	parsed, parseErr := conflict.ParseText(data)
	if parseErr == nil {
		if _, resolved := parsed.AsResolved(); !resolved {
			if existing, err := store.ReadConflict(prev.ContentID); err == nil {
				if asBytes, err := conflictAsBytes(store, existing.Merge); err == nil &&
					conflict.Equal(asBytes, parsed, func(a, b []byte) bool { return string(a) == string(b) }) {
					fs := FileState{Kind: KindConflict, Size: info.Size(), ModTime: info.ModTime(), ContentID: prev.ContentID}
					tv := object.Conflict(prev.ContentID)
					return &tv, fs, nil
				}
			}
			values := make([]object.TreeValue, parsed.Len())
			for i, v := range parsed.Values() {
				id, _, werr := store.WriteFile(strings.NewReader(string(v)))
				if werr != nil {
					return nil, FileState{}, werr
				}
				values[i] = object.File(id, false, "")
			}
			m, err := conflict.New(values)
			if err != nil {
				return nil, FileState{}, err
			}
			cid, err := store.WriteConflict(&object.ConflictBlob{Merge: m})
			if err != nil {
				return nil, FileState{}, err
			}
			fs := FileState{Kind: KindConflict, Size: info.Size(), ModTime: info.ModTime(), ContentID: cid}
			tv := object.Conflict(cid)
			return &tv, fs, nil
		}
	}
	// either ParseText found no marker block (already resolved text) or
	// the marker block was malformed: either way this is now a plain file.
	fileID, _, err := store.WriteFile(strings.NewReader(string(data)))
	if err != nil {
		return nil, FileState{}, err
	}
	wantKind := KindRegular
	if executable {
		wantKind = KindExecutable
	}
	fs := FileState{Kind: wantKind, Size: info.Size(), ModTime: info.ModTime(), ContentID: fileID}
	tv := object.File(fileID, executable, "")
	return &tv, fs, nil
}

// conflictAsBytes reads the blob content of every file side of a stored
// TreeValue conflict, so it can be compared against a Merge[[]byte]
// freshly parsed out of materialized conflict-marker text.
func conflictAsBytes(store *objstore.Store, m conflict.Merge[object.TreeValue]) (conflict.Merge[[]byte], error) {
	values := make([][]byte, m.Len())
	for i, v := range m.Values() {
		if v.Kind != object.KindFile {
			return conflict.Merge[[]byte]{}, fmt.Errorf("workingcopy: conflict side is not a file")
		}
		if v.FileID.IsZero() {
			// the absent side of a conflict (present on one branch, missing
			// on the other) renders as empty content, mirroring how
			// MaterializeText treats a nil []byte side.
			continue
		}
		rc, err := store.OpenFile(v.FileID)
		if err != nil {
			return conflict.Merge[[]byte]{}, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return conflict.Merge[[]byte]{}, err
		}
		values[i] = data
	}
	return conflict.New(values)
}

func snapshotSymlink(store *objstore.Store, absPath string, info os.FileInfo, prev FileState, hadPrev bool) (*object.TreeValue, FileState, error) {
	target, err := os.Readlink(absPath)
	if err != nil {
		return nil, FileState{}, err
	}
	if hadPrev && prev.Kind == KindSymlink && info.ModTime().Equal(prev.ModTime) {
		tv := object.Symlink(prev.ContentID)
		return &tv, prev, nil
	}
	id, err := store.WriteSymlink(target)
	if err != nil {
		return nil, FileState{}, err
	}
	fs := FileState{Kind: KindSymlink, Size: int64(len(target)), ModTime: info.ModTime(), ContentID: id}
	tv := object.Symlink(id)
	return &tv, fs, nil
}
