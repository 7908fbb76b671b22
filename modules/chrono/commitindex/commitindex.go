// Package commitindex implements the persistent reverse-topological
// commit index of spec section 4.5 (C4): ancestry queries pruned by
// generation number, reverse-topological walks, and change-id lookup.
// Grounded on the teacher's commit_walker*.go family, which implements
// the same generation-pruned BFS/topo walk over a single-parent-chain
// commit graph; generalized here to the explicit persistent index the
// spec requires instead of a re-walk-from-scratch iterator.
package commitindex

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/dgraph-io/ristretto/v2"
)

// ErrUnknownCommit is returned by any query naming a commit id the index
// has not seen.
var ErrUnknownCommit = errors.New("commitindex: unknown commit")

// Entry is the per-commit record the index stores (spec section 4.5).
type Entry struct {
	CommitID      ids.Hash
	Parents       []ids.Hash
	ChangeID      object.ChangeID
	AuthorTime    time.Time
	CommitterTime time.Time
	Generation    uint64
}

// Index is a persistent, rebuildable reverse-topological index over a
// single object store. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	store *objstore.Store
	seg   *segment

	entries  map[ids.Hash]*Entry
	byChange map[object.ChangeID]map[ids.Hash]bool
	children map[ids.Hash][]ids.Hash

	ancestorCache *ristretto.Cache[string, bool]
}

// Open loads (or creates) the index's on-disk segment under dir, backed
// by store for rebuilds. The synthetic root commit is always present at
// generation 0 without ever being written to the segment file.
func Open(dir string, store *objstore.Store) (*Index, error) {
	seg, loaded, err := openSegment(dir)
	if err != nil {
		return nil, err
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("commitindex: init ancestor cache: %w", err)
	}
	idx := &Index{
		store:         store,
		seg:           seg,
		entries:       make(map[ids.Hash]*Entry),
		byChange:      make(map[object.ChangeID]map[ids.Hash]bool),
		children:      make(map[ids.Hash][]ids.Hash),
		ancestorCache: cache,
	}
	idx.index(&Entry{
		CommitID:   object.RootCommitID,
		Generation: 0,
		ChangeID:   object.ZeroChangeID,
	})
	for _, e := range loaded {
		idx.index(e)
	}
	return idx, nil
}

func (idx *Index) index(e *Entry) {
	idx.entries[e.CommitID] = e
	set := idx.byChange[e.ChangeID]
	if set == nil {
		set = make(map[ids.Hash]bool)
		idx.byChange[e.ChangeID] = set
	}
	set[e.CommitID] = true
	for _, p := range e.Parents {
		idx.children[p] = append(idx.children[p], e.CommitID)
	}
}

// Children returns the indexed commits whose direct parent is id.
func (idx *Index) Children(id ids.Hash) []ids.Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]ids.Hash, len(idx.children[id]))
	copy(out, idx.children[id])
	return out
}

// AllCommitIDs returns every commit id the index knows about, in no
// particular order.
func (idx *Index) AllCommitIDs() []ids.Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]ids.Hash, 0, len(idx.entries))
	for id := range idx.entries {
		out = append(out, id)
	}
	return out
}

// Has reports whether id is present in the index.
func (idx *Index) Has(id ids.Hash) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.entries[id]
	return ok
}

func (idx *Index) entry(id ids.Hash) (*Entry, bool) {
	e, ok := idx.entries[id]
	return e, ok
}

// Entry returns the indexed record for id.
func (idx *Index) Entry(id ids.Hash) (*Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	if !ok {
		return nil, ErrUnknownCommit
	}
	return e, nil
}

// ChangeIDToCommitIDs returns every commit id sharing changeID, in no
// particular order.
func (idx *Index) ChangeIDToCommitIDs(changeID object.ChangeID) []ids.Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.byChange[changeID]
	out := make([]ids.Hash, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Add indexes id and every unindexed ancestor reachable from it,
// reading missing commits from the backing store. A no-op for commits
// already indexed.
func (idx *Index) Add(id ids.Hash) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.ensure(id)
	return err
}

// Rebuild indexes every commit reachable from heads by reading it from
// the object store (spec section 4.5's "rebuildable from the object
// store alone"); already-indexed commits are skipped, not re-read.
func (idx *Index) Rebuild(heads []ids.Hash) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, h := range heads {
		if _, err := idx.ensure(h); err != nil {
			return err
		}
	}
	return nil
}

// ensure returns the entry for id, computing and persisting it (and any
// unindexed ancestors) first if necessary. Caller must hold idx.mu.
func (idx *Index) ensure(id ids.Hash) (*Entry, error) {
	if e, ok := idx.entries[id]; ok {
		return e, nil
	}
	c, err := idx.store.ReadCommit(id)
	if err != nil {
		return nil, fmt.Errorf("commitindex: read %s: %w", id, err)
	}
	var generation uint64
	for _, p := range c.Parents {
		pe, err := idx.ensure(p)
		if err != nil {
			return nil, err
		}
		if pe.Generation+1 > generation {
			generation = pe.Generation + 1
		}
	}
	e := &Entry{
		CommitID:      id,
		Parents:       c.Parents,
		ChangeID:      c.ChangeID,
		AuthorTime:    c.Author.When,
		CommitterTime: c.Committer.When,
		Generation:    generation,
	}
	if err := idx.seg.append(e); err != nil {
		return nil, err
	}
	idx.index(e)
	return e, nil
}

// Close releases the segment file handle.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.seg.close()
}
