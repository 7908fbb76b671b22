package difftree

import (
	"context"

	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/mergedtree"
	"github.com/chronoscope/chrono/modules/chrono/object"
)

// CopyKind classifies a CopyEntry.
type CopyKind int

const (
	// NotCopy is an ordinary entry, unrelated to any copy record.
	NotCopy CopyKind = iota
	// Copy means the source path still exists in the after state.
	Copy
	// Rename means the source path is gone (or now a tree) in the after
	// state, so the content effectively moved rather than duplicated.
	Rename
)

// CopyRecord names a single source path whose content reappears at
// target in the after tree.
type CopyRecord struct {
	Source string
	Target string
}

// CopyEntry is a plain Entry plus, when it participates in a copy
// record, the source path and whether it reads as a copy or a rename.
type CopyEntry struct {
	Entry
	Source string
	Kind   CopyKind
}

// DiffCopyAware wraps Diff: whenever a path matches a CopyRecord's
// Target and the record's Source was deleted in this diff, the delete
// at Source is suppressed and the entry at Target is annotated instead
// (spec section 4.2's copy-aware tree diff). Records not referenced by
// any emitted delete are ignored.
func DiffCopyAware(ctx context.Context, before, after *mergedtree.Tree, m matcher.Matcher, records []CopyRecord) (<-chan CopyEntry, <-chan error) {
	bySource := make(map[string]CopyRecord, len(records))
	for _, r := range records {
		bySource[r.Source] = r
	}

	in, errIn := Diff(ctx, before, after, m)
	out := make(chan CopyEntry)
	errOut := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errOut)

		var buffered []Entry
		deletedSources := make(map[string]Entry)
		for e := range in {
			if _, isSource := bySource[e.Path]; isSource && isDelete(e) {
				deletedSources[e.Path] = e
				continue
			}
			buffered = append(buffered, e)
		}
		if err, ok := <-errIn; ok && err != nil {
			errOut <- err
			return
		}

		targets := make(map[string]CopyRecord)
		for _, r := range records {
			targets[r.Target] = r
		}

		claimed := make(map[string]bool)
		for _, e := range buffered {
			ce := CopyEntry{Entry: e}
			if r, ok := targets[e.Path]; ok {
				if _, wasDeleted := deletedSources[r.Source]; wasDeleted {
					ce.Source = r.Source
					ce.Kind = classifyCopy(after, r.Source, e.Path)
					claimed[r.Source] = true
				}
			}
			select {
			case out <- ce:
			case <-ctx.Done():
				return
			}
		}
		// any deleted source whose content was not claimed by a target
		// (the record pointed nowhere matched, or the target itself was
		// filtered by the matcher) is still reported as a plain delete.
		for path, e := range deletedSources {
			if !claimed[path] {
				select {
				case out <- CopyEntry{Entry: e}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errOut
}

// isDelete reports whether an entry represents a path's content
// disappearing entirely (After resolves to absent).
func isDelete(e Entry) bool {
	v, ok := e.After.AsResolved()
	return ok && v == nil
}

// classifyCopy decides Copy vs Rename: rename iff the source path is
// now absent, or now resolves to a tree, in the after state.
func classifyCopy(after *mergedtree.Tree, source, target string) CopyKind {
	v, ok, err := after.Resolve(source)
	if err != nil {
		return Copy
	}
	if !ok || v == nil || v.Kind == object.KindTree {
		return Rename
	}
	return Copy
}
