package rewrite

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// FileFixer is the seam spec section 1 carves out for external
// formatters: the fix pipeline's process of shelling out to a real
// formatter is out of scope, but the interface the rewrite engine
// drives it through is not. Fix returns the (possibly unchanged)
// content and whether it changed.
type FileFixer interface {
	Fix(ctx context.Context, path string, content []byte) (fixed []byte, changed bool, err error)
}

// FixerFunc adapts a plain function to FileFixer.
type FixerFunc func(ctx context.Context, path string, content []byte) ([]byte, bool, error)

func (f FixerFunc) Fix(ctx context.Context, path string, content []byte) ([]byte, bool, error) {
	return f(ctx, path, content)
}

// NoopFixer never changes anything; it exists so the seam is
// exercisable without a real formatter wired in.
var NoopFixer FileFixer = FixerFunc(func(_ context.Context, _ string, content []byte) ([]byte, bool, error) {
	return content, false, nil
})

// ApplyFixer runs fixer across every regular file in each of targets'
// trees, fans the work out over a worker pool (grounded on the
// teacher's errgroup-based parallel unpack/object-hashing idiom),
// rewrites each commit whose tree changed, and propagates the rewrite
// to all of targets' descendants via RebaseDescendants. Targets whose
// tree is conflicted (Commit.IsMergedTree) are skipped unchanged.
func ApplyFixer(ctx context.Context, idx *commitindex.Index, store *objstore.Store, targets []ids.Hash, fixer FileFixer, workers int64) (map[ids.Hash][]ids.Hash, error) {
	changes := make(map[ids.Hash]Change, len(targets))
	for _, old := range targets {
		c, err := store.ReadCommit(old)
		if err != nil {
			return nil, err
		}
		if c.IsMergedTree() {
			continue
		}
		newTree, changed, err := fixTree(ctx, store, fixer, c.Tree, workers)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		next := *c
		next.Hash = ids.Hash{}
		next.Tree = newTree
		next.Predecessors = []ids.Hash{old}
		id, err := store.WriteCommit(&next)
		if err != nil {
			return nil, err
		}
		if err := idx.Add(id); err != nil {
			return nil, err
		}
		changes[old] = Change{With: []ids.Hash{id}}
	}
	if len(changes) == 0 {
		return map[ids.Hash][]ids.Hash{}, nil
	}
	return RebaseDescendants(idx, store, changes)
}

// fixTree rewrites every regular file under treeID through fixer,
// fanning out one goroutine per file bounded by a weighted semaphore,
// and writes new tree objects bottom-up where any child changed.
func fixTree(ctx context.Context, store *objstore.Store, fixer FileFixer, treeID ids.Hash, workers int64) (ids.Hash, bool, error) {
	tree, err := store.ReadTree(treeID)
	if err != nil {
		return ids.Hash{}, false, err
	}
	sem := semaphore.NewWeighted(workers)
	g, gctx := errgroup.WithContext(ctx)
	newEntries := make([]object.Entry, len(tree.Entries))
	changedAny := make([]bool, len(tree.Entries))
	for i, e := range tree.Entries {
		i, e := i, e
		newEntries[i] = e
		if e.Value.Kind != object.KindFile && e.Value.Kind != object.KindTree {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if e.Value.Kind == object.KindTree {
				newID, changed, err := fixTree(gctx, store, fixer, e.Value.TreeID, workers)
				if err != nil {
					return err
				}
				if changed {
					newEntries[i].Value = object.SubTree(newID)
					changedAny[i] = true
				}
				return nil
			}
			rc, err := store.OpenFile(e.Value.FileID)
			if err != nil {
				return err
			}
			content, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return err
			}
			fixed, changed, err := fixer.Fix(gctx, e.Name, content)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			newID, _, err := store.WriteFile(bytes.NewReader(fixed))
			if err != nil {
				return err
			}
			newEntries[i].Value = object.File(newID, e.Value.Executable, e.Value.CopyID)
			changedAny[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ids.Hash{}, false, err
	}
	changed := false
	for _, c := range changedAny {
		if c {
			changed = true
			break
		}
	}
	if !changed {
		return treeID, false, nil
	}
	newID, err := store.WriteTree(object.NewTree(newEntries))
	if err != nil {
		return ids.Hash{}, false, err
	}
	return newID, true, nil
}
