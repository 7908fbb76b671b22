package revset

import (
	"fmt"
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/chronoscope/chrono/modules/chrono/oplog"
)

// Evaluator lowers a parsed revset AST to a plan over the commit index,
// per spec section 4.5.
type Evaluator struct {
	idx      *commitindex.Index
	store    *objstore.Store
	view     *oplog.View
	resolver *Resolver
}

// NewEvaluator builds an Evaluator over idx (the commit graph), store
// (for commit metadata beyond the index: author/committer identity,
// description, tree), and view (heads, branches, tags, git-refs, and
// the working-copy pointers "@"/"@-" resolve against), evaluating
// symbols for the given workspace.
func NewEvaluator(idx *commitindex.Index, store *objstore.Store, view *oplog.View, workspace string) *Evaluator {
	return &Evaluator{idx: idx, store: store, view: view, resolver: NewResolver(idx, view, workspace)}
}

func (ev *Evaluator) cmp(a, b ids.Hash) (int, error) { return ev.idx.Compare(a, b) }

// Eval compiles expr into a lazily-pulled Seq.
func (ev *Evaluator) Eval(expr Expr) (Seq, error) {
	switch e := expr.(type) {
	case Symbol:
		ids, err := ev.resolver.Resolve(e.Name)
		if err != nil {
			return nil, err
		}
		return ev.sortedSeq(ids)

	case Pattern:
		return nil, fmt.Errorf("revset: a string pattern is not a valid standalone expression")

	case Union:
		l, err := ev.Eval(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.Eval(e.Right)
		if err != nil {
			return nil, err
		}
		return Union(l, r, ev.cmp), nil

	case Intersect:
		l, err := ev.Eval(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.Eval(e.Right)
		if err != nil {
			return nil, err
		}
		return Intersect(l, r, ev.cmp), nil

	case Difference:
		l, err := ev.Eval(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.Eval(e.Right)
		if err != nil {
			return nil, err
		}
		return Difference(l, r, ev.cmp), nil

	case Negate:
		all, err := ev.allVisible()
		if err != nil {
			return nil, err
		}
		inner, err := ev.Eval(e.X)
		if err != nil {
			return nil, err
		}
		return Difference(NewSliceSeq(all), inner, ev.cmp), nil

	case AncestorsOf:
		heads, err := ev.materialize(e.X)
		if err != nil {
			return nil, err
		}
		return ev.ancestorsSeq(heads, -1)

	case DescendantsOf:
		roots, err := ev.materialize(e.X)
		if err != nil {
			return nil, err
		}
		out, err := ev.descendants(roots, -1)
		if err != nil {
			return nil, err
		}
		return ev.sortedSeq(out)

	case DagRange:
		from, err := ev.materialize(e.From)
		if err != nil {
			return nil, err
		}
		to, err := ev.materialize(e.To)
		if err != nil {
			return nil, err
		}
		return ev.dagRange(from, to)

	case ParentsOf:
		xs, err := ev.materialize(e.X)
		if err != nil {
			return nil, err
		}
		set := make(map[ids.Hash]bool)
		for _, id := range xs {
			entry, err := ev.idx.Entry(id)
			if err != nil {
				return nil, err
			}
			for _, p := range entry.Parents {
				set[p] = true
			}
		}
		return ev.sortedSeq(setToSlice(set))

	case ChildrenOf:
		xs, err := ev.materialize(e.X)
		if err != nil {
			return nil, err
		}
		set := make(map[ids.Hash]bool)
		for _, id := range xs {
			for _, c := range ev.idx.Children(id) {
				set[c] = true
			}
		}
		return ev.sortedSeq(setToSlice(set))

	case FuncCall:
		return ev.evalFunc(e)

	default:
		return nil, fmt.Errorf("revset: unhandled expression type %T", expr)
	}
}

// materialize fully evaluates expr, for uses that are inherently
// whole-set (function arguments to heads/roots/ancestors/etc).
func (ev *Evaluator) materialize(expr Expr) ([]ids.Hash, error) {
	seq, err := ev.Eval(expr)
	if err != nil {
		return nil, err
	}
	return ToSlice(seq)
}

func (ev *Evaluator) sortedSeq(xs []ids.Hash) (Seq, error) {
	out := append([]ids.Hash(nil), xs...)
	var sortErr error
	sort.Slice(out, func(i, j int) bool {
		c, err := ev.idx.Compare(out[i], out[j])
		if err != nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return NewSliceSeq(out), nil
}

func setToSlice(set map[ids.Hash]bool) []ids.Hash {
	out := make([]ids.Hash, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// allVisible returns every commit reachable from the view's current
// heads: the universe unary negation ("~x") subtracts from.
func (ev *Evaluator) allVisible() ([]ids.Hash, error) {
	return ev.idx.WalkRevs(ev.view.Heads, nil)
}

// ancestorsSeq returns heads and all their ancestors (inclusive),
// reverse-topologically ordered; depth < 0 means unlimited.
func (ev *Evaluator) ancestorsSeq(heads []ids.Hash, depth int) (Seq, error) {
	if depth < 0 {
		out, err := ev.idx.WalkRevs(heads, nil)
		if err != nil {
			return nil, err
		}
		return NewSliceSeq(out), nil
	}
	set := make(map[ids.Hash]bool)
	frontier := append([]ids.Hash(nil), heads...)
	for d := 0; d <= depth && len(frontier) > 0; d++ {
		var next []ids.Hash
		for _, id := range frontier {
			if set[id] {
				continue
			}
			set[id] = true
			if d == depth {
				continue
			}
			entry, err := ev.idx.Entry(id)
			if err != nil {
				return nil, err
			}
			next = append(next, entry.Parents...)
		}
		frontier = next
	}
	return ev.sortedSeq(setToSlice(set))
}

// descendants returns roots and all their descendants (inclusive);
// depth < 0 means unlimited.
func (ev *Evaluator) descendants(roots []ids.Hash, depth int) ([]ids.Hash, error) {
	set := make(map[ids.Hash]bool)
	frontier := append([]ids.Hash(nil), roots...)
	for d := 0; (depth < 0 || d <= depth) && len(frontier) > 0; d++ {
		var next []ids.Hash
		for _, id := range frontier {
			if set[id] {
				continue
			}
			set[id] = true
			if depth >= 0 && d == depth {
				continue
			}
			next = append(next, ev.idx.Children(id)...)
		}
		frontier = next
	}
	return setToSlice(set), nil
}

// dagRange computes descendants of from that are also ancestors of to:
// the ancestor list is already in the total order, so filtering it by
// descendant-set membership preserves order without a second sort.
func (ev *Evaluator) dagRange(from, to []ids.Hash) (Seq, error) {
	ancestorsOfTo, err := ev.idx.WalkRevs(to, nil)
	if err != nil {
		return nil, err
	}
	descOfFrom, err := ev.descendants(from, -1)
	if err != nil {
		return nil, err
	}
	descSet := make(map[ids.Hash]bool, len(descOfFrom))
	for _, id := range descOfFrom {
		descSet[id] = true
	}
	var out []ids.Hash
	for _, id := range ancestorsOfTo {
		if descSet[id] {
			out = append(out, id)
		}
	}
	return NewSliceSeq(out), nil
}

func (ev *Evaluator) commit(id ids.Hash) (*object.Commit, error) {
	return ev.store.ReadCommit(id)
}
