// Package difftree streams the differences between two merged trees
// (spec section 4.2): a pre-order, matcher-pruned descent emitting one
// entry per path where the before and after merge values differ.
// Cancellation is by cancelling ctx: a consumer that stops draining the
// channel without cancelling leaves the producer goroutine blocked on
// its next send. Streaming takes the place of a callback-based walk
// (spec section 9's "streaming diffs replace callback-based tree walks").
package difftree

import (
	"context"
	"path"
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/mergedtree"
	"github.com/chronoscope/chrono/modules/chrono/object"
)

// Entry is one emitted difference: the merge value before and after at
// a given path.
type Entry struct {
	Path   string
	Before conflict.Merge[*object.TreeValue]
	After  conflict.Merge[*object.TreeValue]
}

// Diff streams the differences between before and after, filtered by
// m. The returned channel is closed when the walk completes or ctx is
// cancelled; a single error, if any, is sent on the error channel
// before both channels close.
func Diff(ctx context.Context, before, after *mergedtree.Tree, m matcher.Matcher) (<-chan Entry, <-chan error) {
	entries := make(chan Entry)
	errc := make(chan error, 1)
	go func() {
		defer close(entries)
		defer close(errc)
		if err := walk(ctx, before, after, m, "", entries); err != nil {
			errc <- err
		}
	}()
	return entries, errc
}

func walk(ctx context.Context, before, after *mergedtree.Tree, m matcher.Matcher, dir string, out chan<- Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	beforePositions, err := before.Positions(dir)
	if err != nil {
		return err
	}
	afterPositions, err := after.Positions(dir)
	if err != nil {
		return err
	}

	if positionsAllTreeOrAbsent(beforePositions) && positionsAllTreeOrAbsent(afterPositions) {
		names, err := unionChildNames(before, after, dir)
		if err != nil {
			return err
		}
		sorted := make([]string, 0, len(names))
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)
		for _, name := range sorted {
			childPath := name
			if dir != "" {
				childPath = path.Join(dir, name)
			}
			visit := m.Visit(childPath)
			if visit.Kind == matcher.VisitNothing {
				continue
			}
			if err := walk(ctx, before, after, m, childPath, out); err != nil {
				return err
			}
		}
		return nil
	}

	if dir == "" {
		// the root itself can never be a leaf entry: an empty repository
		// has no path to report a conflict against.
		return nil
	}
	if !m.Matches(dir) {
		return nil
	}
	beforeMerge, err := before.Collapse(beforePositions)
	if err != nil {
		return err
	}
	afterMerge, err := after.Collapse(afterPositions)
	if err != nil {
		return err
	}
	if mergeEqual(beforeMerge, afterMerge) {
		return nil
	}
	select {
	case out <- Entry{Path: dir, Before: beforeMerge, After: afterMerge}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func positionsAllTreeOrAbsent(positions []*object.TreeValue) bool {
	for _, v := range positions {
		if v != nil && v.Kind != object.KindTree {
			return false
		}
	}
	return true
}

func unionChildNames(before, after *mergedtree.Tree, dir string) (map[string]bool, error) {
	names, err := before.ChildNames(dir)
	if err != nil {
		return nil, err
	}
	afterNames, err := after.ChildNames(dir)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = make(map[string]bool, len(afterNames))
	}
	for n := range afterNames {
		names[n] = true
	}
	return names, nil
}

// mergeEqual decides whether a path is unchanged: both merges resolve
// the same way, or both carry the same unresolved conflict up to
// add/remove cancellation (an untouched, already-conflicted path must
// not be re-reported on every diff).
func mergeEqual(a, b conflict.Merge[*object.TreeValue]) bool {
	return conflict.EqualUpToCancellation(a, b, treeValueEqual, treeValueLess)
}

func treeValueEqual(a, b *object.TreeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// treeValueLess gives a canonical order for cancellation-equality
// comparisons; the specific order doesn't matter, only that it is
// total and stable across the two merges being compared.
func treeValueLess(a, b *object.TreeValue) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return treeValueKey(a) < treeValueKey(b)
}

func treeValueKey(v *object.TreeValue) string {
	switch v.Kind {
	case object.KindFile:
		return v.FileID.String()
	case object.KindSymlink:
		return v.SymlinkID.String()
	case object.KindTree:
		return v.TreeID.String()
	case object.KindConflict:
		return v.ConflictID.String()
	case object.KindSubmodule:
		return v.SubmoduleID
	default:
		return ""
	}
}
