package revset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
)

// evalFunc evaluates one of the named functions spec section 4.5 lists.
func (ev *Evaluator) evalFunc(f FuncCall) (Seq, error) {
	switch f.Name {
	case "root":
		return ev.sortedSeq([]ids.Hash{object.RootCommitID})

	case "heads":
		xs, err := ev.argSet(f, 1)
		if err != nil {
			return nil, err
		}
		out, err := ev.reduceToHeads(xs)
		if err != nil {
			return nil, err
		}
		return ev.sortedSeq(out)

	case "roots":
		xs, err := ev.argSet(f, 1)
		if err != nil {
			return nil, err
		}
		out, err := ev.reduceToRoots(xs)
		if err != nil {
			return nil, err
		}
		return ev.sortedSeq(out)

	case "branches":
		pat, err := ev.patternArg(f, 0, Pattern{Kind: "glob", Value: "*"})
		if err != nil {
			return nil, err
		}
		return ev.refTableFunc(ev.view.Branches, pat)

	case "tags":
		pat, err := ev.patternArg(f, 0, Pattern{Kind: "glob", Value: "*"})
		if err != nil {
			return nil, err
		}
		return ev.refTableFunc(ev.view.Tags, pat)

	case "remote_branches":
		return ev.evalRemoteBranches(f)

	case "author":
		pat, err := ev.requirePatternArg(f, 0)
		if err != nil {
			return nil, err
		}
		return ev.filterCommits(func(c *object.Commit) (bool, error) {
			return matchPattern(pat, c.Author.Name+" <"+c.Author.Email+">")
		})

	case "committer":
		pat, err := ev.requirePatternArg(f, 0)
		if err != nil {
			return nil, err
		}
		return ev.filterCommits(func(c *object.Commit) (bool, error) {
			return matchPattern(pat, c.Committer.Name+" <"+c.Committer.Email+">")
		})

	case "description":
		pat, err := ev.requirePatternArg(f, 0)
		if err != nil {
			return nil, err
		}
		return ev.filterCommits(func(c *object.Commit) (bool, error) {
			return matchPattern(pat, c.Description)
		})

	case "empty":
		return ev.filterCommitsByID(func(id ids.Hash, c *object.Commit) (bool, error) {
			return ev.isEmpty(id, c)
		})

	case "conflicts":
		return ev.filterCommits(func(c *object.Commit) (bool, error) {
			return c.IsMergedTree(), nil
		})

	case "merges":
		return ev.filterCommits(func(c *object.Commit) (bool, error) {
			return len(c.Parents) > 1, nil
		})

	case "mutable":
		return ev.mutable()

	case "immutable":
		return ev.immutable()

	case "reachable":
		if len(f.Args) != 2 {
			return nil, fmt.Errorf("revset: reachable() takes exactly 2 arguments")
		}
		srcs, err := ev.materialize(f.Args[0])
		if err != nil {
			return nil, err
		}
		domain, err := ev.materialize(f.Args[1])
		if err != nil {
			return nil, err
		}
		ancestors, err := ev.idx.WalkRevs(srcs, nil)
		if err != nil {
			return nil, err
		}
		domainSet := toSet(domain)
		var out []ids.Hash
		for _, id := range ancestors {
			if domainSet[id] {
				out = append(out, id)
			}
		}
		return NewSliceSeq(out), nil

	case "ancestors":
		heads, depth, err := ev.setAndOptionalDepth(f)
		if err != nil {
			return nil, err
		}
		return ev.ancestorsSeq(heads, depth)

	case "descendants":
		roots, depth, err := ev.setAndOptionalDepth(f)
		if err != nil {
			return nil, err
		}
		out, err := ev.descendants(roots, depth)
		if err != nil {
			return nil, err
		}
		return ev.sortedSeq(out)

	case "connected":
		xs, err := ev.argSet(f, 1)
		if err != nil {
			return nil, err
		}
		heads, err := ev.reduceToHeads(xs)
		if err != nil {
			return nil, err
		}
		roots, err := ev.reduceToRoots(xs)
		if err != nil {
			return nil, err
		}
		return ev.dagRange(roots, heads)

	case "present":
		if len(f.Args) != 1 {
			return nil, fmt.Errorf("revset: present() takes exactly 1 argument")
		}
		seq, err := ev.Eval(f.Args[0])
		if err != nil {
			return NewSliceSeq(nil), nil
		}
		out, err := ToSlice(seq)
		if err != nil {
			return NewSliceSeq(nil), nil
		}
		return NewSliceSeq(out), nil

	default:
		return nil, fmt.Errorf("revset: unknown function %q", f.Name)
	}
}

func (ev *Evaluator) argSet(f FuncCall, want int) ([]ids.Hash, error) {
	if len(f.Args) != want {
		return nil, fmt.Errorf("revset: %s() takes exactly %d argument(s)", f.Name, want)
	}
	return ev.materialize(f.Args[0])
}

func (ev *Evaluator) patternArg(f FuncCall, i int, def Pattern) (Pattern, error) {
	if i >= len(f.Args) {
		return def, nil
	}
	return asPattern(f.Args[i])
}

func (ev *Evaluator) requirePatternArg(f FuncCall, i int) (Pattern, error) {
	if i >= len(f.Args) {
		return Pattern{}, fmt.Errorf("revset: %s() requires a pattern argument", f.Name)
	}
	return asPattern(f.Args[i])
}

func (ev *Evaluator) setAndOptionalDepth(f FuncCall) ([]ids.Hash, int, error) {
	if len(f.Args) < 1 || len(f.Args) > 2 {
		return nil, 0, fmt.Errorf("revset: %s() takes 1 or 2 arguments", f.Name)
	}
	xs, err := ev.materialize(f.Args[0])
	if err != nil {
		return nil, 0, err
	}
	depth := -1
	if len(f.Args) == 2 {
		sym, ok := f.Args[1].(Symbol)
		if !ok {
			return nil, 0, fmt.Errorf("revset: %s()'s depth argument must be an integer literal", f.Name)
		}
		n, err := strconv.Atoi(sym.Name)
		if err != nil || n < 0 {
			return nil, 0, fmt.Errorf("revset: %s()'s depth argument must be a non-negative integer", f.Name)
		}
		depth = n
	}
	return xs, depth, nil
}

func (ev *Evaluator) refTableFunc(table refTable, pat Pattern) (Seq, error) {
	names, err := matchNames(table, pat)
	if err != nil {
		return nil, err
	}
	set := make(map[ids.Hash]bool)
	for _, name := range names {
		for _, id := range resolvedTargets(table, name) {
			set[id] = true
		}
	}
	return ev.sortedSeq(setToSlice(set))
}

func (ev *Evaluator) evalRemoteBranches(f FuncCall) (Seq, error) {
	branchPat, err := ev.patternArg(f, 0, Pattern{Kind: "glob", Value: "*"})
	if err != nil {
		return nil, err
	}
	remotePat, err := ev.patternArg(f, 1, Pattern{Kind: "glob", Value: "*"})
	if err != nil {
		return nil, err
	}
	set := make(map[ids.Hash]bool)
	for name, m := range ev.view.GitRefs {
		remote, branch, ok := strings.Cut(name, "/")
		if !ok {
			continue
		}
		okBranch, err := matchPattern(branchPat, branch)
		if err != nil {
			return nil, err
		}
		okRemote, err := matchPattern(remotePat, remote)
		if err != nil {
			return nil, err
		}
		if !okBranch || !okRemote {
			continue
		}
		for _, v := range m.Adds() {
			if v != nil {
				set[*v] = true
			}
		}
	}
	return ev.sortedSeq(setToSlice(set))
}

func (ev *Evaluator) filterCommits(keep func(*object.Commit) (bool, error)) (Seq, error) {
	return ev.filterCommitsByID(func(_ ids.Hash, c *object.Commit) (bool, error) {
		return keep(c)
	})
}

func (ev *Evaluator) filterCommitsByID(keep func(ids.Hash, *object.Commit) (bool, error)) (Seq, error) {
	var out []ids.Hash
	for _, id := range ev.idx.AllCommitIDs() {
		c, err := ev.commit(id)
		if err != nil {
			return nil, err
		}
		ok, err := keep(id, c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return ev.sortedSeq(out)
}

func (ev *Evaluator) isEmpty(id ids.Hash, c *object.Commit) (bool, error) {
	if len(c.Parents) == 0 {
		return c.Tree == object.EmptyTreeID, nil
	}
	if len(c.Parents) != 1 || c.IsMergedTree() {
		return false, nil
	}
	parent, err := ev.commit(c.Parents[0])
	if err != nil {
		return false, err
	}
	return c.Tree == parent.Tree, nil
}

// mutable is every indexed commit not in immutable().
func (ev *Evaluator) mutable() (Seq, error) {
	immutable, err := ev.materialize(FuncCall{Name: "immutable"})
	if err != nil {
		return nil, err
	}
	immutableSet := toSet(immutable)
	var out []ids.Hash
	for _, id := range ev.idx.AllCommitIDs() {
		if !immutableSet[id] {
			out = append(out, id)
		}
	}
	return ev.sortedSeq(out)
}

// immutable is the root commit plus the ancestors of every branch
// target (spec section 4.6's default immutable set: "ancestors of
// public heads plus the root"; this repo has no separate "public head"
// concept from an ordinary branch, so a view's branch targets stand in
// for it — see DESIGN.md).
func (ev *Evaluator) immutable() (Seq, error) {
	heads := []ids.Hash{object.RootCommitID}
	for _, m := range ev.view.Branches {
		for _, v := range m.Adds() {
			if v != nil {
				heads = append(heads, *v)
			}
		}
	}
	out, err := ev.idx.WalkRevs(heads, nil)
	if err != nil {
		return nil, err
	}
	return NewSliceSeq(out), nil
}

func (ev *Evaluator) reduceToHeads(dup []ids.Hash) ([]ids.Hash, error) {
	xs := setToSlice(toSet(dup))
	var out []ids.Hash
	for i, c := range xs {
		isHead := true
		for j, d := range xs {
			if i == j {
				continue
			}
			anc, err := ev.idx.IsAncestor(c, d)
			if err != nil {
				return nil, err
			}
			if anc {
				isHead = false
				break
			}
		}
		if isHead {
			out = append(out, c)
		}
	}
	return out, nil
}

func (ev *Evaluator) reduceToRoots(dup []ids.Hash) ([]ids.Hash, error) {
	xs := setToSlice(toSet(dup))
	var out []ids.Hash
	for i, c := range xs {
		isRoot := true
		for j, d := range xs {
			if i == j {
				continue
			}
			anc, err := ev.idx.IsAncestor(d, c)
			if err != nil {
				return nil, err
			}
			if anc {
				isRoot = false
				break
			}
		}
		if isRoot {
			out = append(out, c)
		}
	}
	return out, nil
}

func toSet(xs []ids.Hash) map[ids.Hash]bool {
	out := make(map[ids.Hash]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}
