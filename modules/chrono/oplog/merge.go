package oplog

import (
	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

func eqOptionalCommit(a, b OptionalCommit) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func resolvedOrAbsent(m map[string]conflict.Merge[OptionalCommit], name string) conflict.Merge[OptionalCommit] {
	if v, ok := m[name]; ok {
		return v
	}
	return conflict.Resolved[OptionalCommit](nil)
}

// mergePointers pointwise three-way merges a, ancestor and b's pointer
// tables (branches, tags or git-refs): for every name appearing in any
// of the three, the per-name terms are combined via Flatten + Simplify
// so identical sides collapse and genuine conflicts persist as an
// unresolved Merge (spec section 4.4).
func mergePointers(ancestor, a, b map[string]conflict.Merge[OptionalCommit]) (map[string]conflict.Merge[OptionalCommit], error) {
	names := make(map[string]bool)
	for n := range ancestor {
		names[n] = true
	}
	for n := range a {
		names[n] = true
	}
	for n := range b {
		names[n] = true
	}
	out := make(map[string]conflict.Merge[OptionalCommit], len(names))
	for name := range names {
		outer, err := conflict.New([]conflict.Merge[OptionalCommit]{
			resolvedOrAbsent(a, name),
			resolvedOrAbsent(ancestor, name),
			resolvedOrAbsent(b, name),
		})
		if err != nil {
			return nil, err
		}
		result := conflict.Simplify(conflict.Flatten(outer), eqOptionalCommit)
		if _, ok := result.AsResolved(); !ok {
			// both sides moved the pointer to the same target
			adds := result.Adds()
			same := true
			for _, a := range adds[1:] {
				same = same && eqOptionalCommit(adds[0], a)
			}
			if same {
				result = conflict.Resolved(adds[0])
			}
		}
		if v, ok := result.AsResolved(); ok && v == nil {
			continue // no branch of this name survives the merge
		}
		out[name] = result
	}
	return out, nil
}

// mergeHeads computes the symmetric-difference head-set merge of spec
// section 4.4: added-on-one-side heads are added, removed-on-one-side
// heads are removed, and the result is re-simplified by dropping any
// head that is an ancestor of another surviving head.
func mergeHeads(ancestor, a, b []ids.Hash, isAncestor func(x, y ids.Hash) (bool, error)) ([]ids.Hash, error) {
	ancestorSet := toSet(ancestor)
	aSet := toSet(a)
	bSet := toSet(b)

	result := make(map[ids.Hash]bool)
	for h := range ancestorSet {
		result[h] = true
	}
	for h := range aSet {
		if !ancestorSet[h] {
			result[h] = true
		}
	}
	for h := range bSet {
		if !ancestorSet[h] {
			result[h] = true
		}
	}
	for h := range ancestorSet {
		if !aSet[h] {
			delete(result, h)
		}
		if !bSet[h] {
			delete(result, h)
		}
	}

	merged := make([]ids.Hash, 0, len(result))
	for h := range result {
		merged = append(merged, h)
	}
	return simplifyHeads(merged, isAncestor)
}

func toSet(hs []ids.Hash) map[ids.Hash]bool {
	out := make(map[ids.Hash]bool, len(hs))
	for _, h := range hs {
		out[h] = true
	}
	return out
}

// mergeWorkingCopies implements spec section 4.4's working-copy pointer
// merge: unchanged-on-both-sides keeps the ancestor value; changed on
// exactly one side keeps that side; changed on both sides to different
// commits keeps whichever side's operation ended later; a removal on
// either side (key absent) beats an unchanged side.
func mergeWorkingCopies(ancestor, a, b map[string]WorkingCopyPointer) map[string]WorkingCopyPointer {
	names := make(map[string]bool)
	for n := range ancestor {
		names[n] = true
	}
	for n := range a {
		names[n] = true
	}
	for n := range b {
		names[n] = true
	}
	out := make(map[string]WorkingCopyPointer, len(names))
	for name := range names {
		anc, ancOK := ancestor[name]
		av, aOK := a[name]
		bv, bOK := b[name]

		aChanged := aOK != ancOK || (aOK && ancOK && av.Commit != anc.Commit)
		bChanged := bOK != ancOK || (bOK && ancOK && bv.Commit != anc.Commit)

		switch {
		case !aChanged && !bChanged:
			if ancOK {
				out[name] = anc
			}
		case aChanged && !bChanged:
			if aOK {
				out[name] = av
			}
		case !aChanged && bChanged:
			if bOK {
				out[name] = bv
			}
		default: // both changed
			if !aOK || !bOK {
				continue // a removal beats the other side's change
			}
			if av.Commit == bv.Commit {
				out[name] = av
				continue
			}
			if av.EndTime.After(bv.EndTime) {
				out[name] = av
			} else {
				out[name] = bv
			}
		}
	}
	return out
}

// MergeViews three-way merges a and b, both built on top of ancestor, as
// spec section 4.4's view-merge step.
func MergeViews(ancestor, a, b *View, isAncestor func(x, y ids.Hash) (bool, error)) (*View, error) {
	heads, err := mergeHeads(ancestor.Heads, a.Heads, b.Heads, isAncestor)
	if err != nil {
		return nil, err
	}
	branches, err := mergePointers(ancestor.Branches, a.Branches, b.Branches)
	if err != nil {
		return nil, err
	}
	tags, err := mergePointers(ancestor.Tags, a.Tags, b.Tags)
	if err != nil {
		return nil, err
	}
	gitRefs, err := mergePointers(ancestor.GitRefs, a.GitRefs, b.GitRefs)
	if err != nil {
		return nil, err
	}
	return &View{
		Heads:         heads,
		WorkingCopies: mergeWorkingCopies(ancestor.WorkingCopies, a.WorkingCopies, b.WorkingCopies),
		Branches:      branches,
		Tags:          tags,
		GitRefs:       gitRefs,
	}, nil
}
