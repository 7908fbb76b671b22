package conflict

// Simplify cancels equal add/remove pairs using eq, then re-packs the
// survivors into a new, shorter Merge. The trivial resolution law
// (spec section 4.3) is the special case where exactly one add survives
// and every remove cancelled: Simplify returns a resolved Merge.
//
// Cancellation proceeds by removing one matching (add, remove) pair at a
// time: removes are taken in order, and each one cancels the earliest
// not-yet-cancelled add equal to it, whichever position that add holds
// (the first add, values[0], can be cancelled like any other).
func Simplify[T any](m Merge[T], eq func(T, T) bool) Merge[T] {
	adds := m.Adds()
	removes := m.Removes()

	addUsed := make([]bool, len(adds))
	removeUsed := make([]bool, len(removes))

	for ri, r := range removes {
		for ai, a := range adds {
			if addUsed[ai] || removeUsed[ri] {
				continue
			}
			if eq(a, r) {
				addUsed[ai] = true
				removeUsed[ri] = true
				break
			}
		}
	}

	var survivingAdds []T
	for i, a := range adds {
		if !addUsed[i] {
			survivingAdds = append(survivingAdds, a)
		}
	}
	var survivingRemoves []T
	for i, r := range removes {
		if !removeUsed[i] {
			survivingRemoves = append(survivingRemoves, r)
		}
	}

	if len(survivingAdds) == 0 {
		// Degenerate: everything cancelled including the base add. This
		// should not arise from well-formed merges (adds always
		// outnumber removes by one), but guard against empty output.
		var zero T
		return Resolved(zero)
	}

	values := make([]T, 0, len(survivingAdds)+len(survivingRemoves))
	values = append(values, survivingAdds[0])
	for i := 0; i < len(survivingRemoves); i++ {
		values = append(values, survivingRemoves[i])
		if i+1 < len(survivingAdds) {
			values = append(values, survivingAdds[i+1])
		}
	}
	// Any leftover adds beyond what alternation consumed (can only
	// happen if cancellation left an uneven surplus of adds, which the
	// odd-length invariant rules out for a single cancellation pass)
	// are appended to keep Simplify total.
	for i := len(survivingRemoves) + 1; i < len(survivingAdds); i++ {
		values = append(values, survivingRemoves[len(survivingRemoves)-1], survivingAdds[i])
	}

	return Merge[T]{values: values}
}

// ResolveTrivial implements the trivial resolution law: if m simplifies
// to a single add, it is returned with ok=true.
func ResolveTrivial[T any](m Merge[T], eq func(T, T) bool) (T, bool) {
	return Simplify(m, eq).AsResolved()
}

// EqualUpToCancellation reports whether a and b represent the same
// conflict once both are simplified by cancelling equal add/remove
// pairs to a stable (sorted) representative. Requires a total order key
// function because cancellation order must be deterministic.
func EqualUpToCancellation[T any](a, b Merge[T], eq func(T, T) bool, less func(T, T) bool) bool {
	sa := stableCancel(a, eq, less)
	sb := stableCancel(b, eq, less)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if !eq(sa[i], sb[i]) {
			return false
		}
	}
	return true
}

// stableCancel cancels pairs then sorts the surviving adds and removes
// independently, giving a canonical representative for equality
// comparisons that must not depend on incidental ordering.
func stableCancel[T any](m Merge[T], eq func(T, T) bool, less func(T, T) bool) []T {
	simplified := Simplify(m, eq)
	adds := simplified.Adds()
	removes := simplified.Removes()
	sortBy(adds, less)
	sortBy(removes, less)
	out := make([]T, 0, len(adds)+len(removes))
	out = append(out, adds...)
	out = append(out, removes...)
	return out
}

func sortBy[T any](s []T, less func(T, T) bool) {
	// insertion sort: merges are small (sides of a conflict), so this
	// avoids pulling in sort.Slice's reflection-based comparator.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
