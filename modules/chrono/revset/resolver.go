package revset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/oplog"
)

// refTable is shorthand for the branch/tag/git-ref pointer tables a view
// carries (spec section 4.4).
type refTable = map[string]conflict.Merge[oplog.OptionalCommit]

// ResolutionError names a symbol revset could not resolve: unknown, or
// an ambiguous id prefix (spec section 4.5's resolution order: branches
// then tags then git-refs then commit/change-id prefixes).
type ResolutionError struct {
	Name   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("revset: cannot resolve %q: %s", e.Name, e.Reason)
}

// Resolver looks up symbols against a view and commit index.
type Resolver struct {
	idx       *commitindex.Index
	view      *oplog.View
	workspace string
}

// NewResolver builds a Resolver over idx and view; workspace names the
// working-copy pointer "@" resolves against.
func NewResolver(idx *commitindex.Index, view *oplog.View, workspace string) *Resolver {
	return &Resolver{idx: idx, view: view, workspace: workspace}
}

// Resolve looks up a bare symbol, returning every commit id it denotes
// (more than one for a conflicted branch, tag or git-ref, or for a
// change-id prefix spanning several rewrites of the same change).
func (r *Resolver) Resolve(name string) ([]ids.Hash, error) {
	switch name {
	case "@":
		wc, ok := r.view.WorkingCopies[r.workspace]
		if !ok {
			return nil, &ResolutionError{Name: name, Reason: fmt.Sprintf("no working copy for workspace %q", r.workspace)}
		}
		return []ids.Hash{wc.Commit}, nil
	case "@-":
		wc, ok := r.view.WorkingCopies[r.workspace]
		if !ok {
			return nil, &ResolutionError{Name: name, Reason: fmt.Sprintf("no working copy for workspace %q", r.workspace)}
		}
		e, err := r.idx.Entry(wc.Commit)
		if err != nil {
			return nil, err
		}
		if len(e.Parents) == 0 {
			return nil, nil
		}
		return []ids.Hash{e.Parents[0]}, nil
	}
	if targets := resolvedTargets(r.view.Branches, name); len(targets) > 0 {
		return targets, nil
	}
	if targets := resolvedTargets(r.view.Tags, name); len(targets) > 0 {
		return targets, nil
	}
	if targets := resolvedTargets(r.view.GitRefs, name); len(targets) > 0 {
		return targets, nil
	}
	return r.prefixLookup(name)
}

func resolvedTargets(table refTable, name string) []ids.Hash {
	m, ok := table[name]
	if !ok {
		return nil
	}
	var out []ids.Hash
	for _, v := range m.Adds() {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (r *Resolver) prefixLookup(name string) ([]ids.Hash, error) {
	var commitMatches []ids.Hash
	changeMatches := make(map[object.ChangeID]bool)
	for _, id := range r.idx.AllCommitIDs() {
		if strings.HasPrefix(id.String(), name) {
			commitMatches = append(commitMatches, id)
		}
		e, err := r.idx.Entry(id)
		if err != nil {
			continue
		}
		if e.ChangeID != object.ZeroChangeID && strings.HasPrefix(e.ChangeID.String(), name) {
			changeMatches[e.ChangeID] = true
		}
	}
	switch {
	case len(commitMatches) == 0 && len(changeMatches) == 0:
		return nil, &ResolutionError{Name: name, Reason: "no such revision"}
	case len(commitMatches) > 0 && len(changeMatches) > 0:
		return nil, &ResolutionError{Name: name, Reason: "ambiguous prefix: matches both a commit id and a change id"}
	case len(commitMatches) > 1:
		return nil, &ResolutionError{Name: name, Reason: "ambiguous commit id prefix"}
	case len(changeMatches) > 1:
		return nil, &ResolutionError{Name: name, Reason: "ambiguous change id prefix"}
	case len(commitMatches) == 1:
		return commitMatches, nil
	default:
		for cid := range changeMatches {
			out := r.idx.ChangeIDToCommitIDs(cid)
			sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
			return out, nil
		}
		return nil, &ResolutionError{Name: name, Reason: "no such revision"}
	}
}

// matchNames returns the pointer-table names matching pat, sorted.
func matchNames(table refTable, pat Pattern) ([]string, error) {
	var out []string
	for name := range table {
		ok, err := matchPattern(pat, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
