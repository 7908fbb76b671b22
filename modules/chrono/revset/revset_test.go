package revset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/chronoscope/chrono/modules/chrono/oplog"
)

type fixture struct {
	idx        *commitindex.Index
	store      *objstore.Store
	view       *oplog.View
	root       ids.Hash
	c1, c2, c3 ids.Hash // c1 -> c2 and c1 -> c3, a fork
}

func writeCommit(t *testing.T, store *objstore.Store, parents []ids.Hash, when time.Time, subject string) ids.Hash {
	t.Helper()
	sig := object.Signature{Name: "a", Email: "a@example.com", When: when}
	cid, err := object.NewRandomChangeID()
	require.NoError(t, err)
	c := &object.Commit{
		Parents:     parents,
		Tree:        object.EmptyTreeID,
		Author:      sig,
		Committer:   sig,
		ChangeID:    cid,
		Description: subject,
	}
	id, err := store.WriteCommit(c)
	require.NoError(t, err)
	return id
}

// buildFixture builds root -> c1 -> {c2, c3} (a fork), with "main"
// pointing at c2 and the default workspace's working copy also at c2.
func buildFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	idx, err := commitindex.Open(t.TempDir(), store)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := writeCommit(t, store, []ids.Hash{object.RootCommitID}, base, "first")
	c2 := writeCommit(t, store, []ids.Hash{c1}, base.Add(time.Minute), "second")
	c3 := writeCommit(t, store, []ids.Hash{c1}, base.Add(2*time.Minute), "third, forked from first")
	require.NoError(t, idx.Add(c2))
	require.NoError(t, idx.Add(c3))

	view := oplog.NewView()
	view.Heads = []ids.Hash{c2, c3}
	view.Branches["main"] = conflict.Resolved[oplog.OptionalCommit](&c2)
	view.WorkingCopies["default"] = oplog.WorkingCopyPointer{Commit: c2, EndTime: base.Add(time.Minute)}

	return &fixture{idx: idx, store: store, view: view, root: object.RootCommitID, c1: c1, c2: c2, c3: c3}
}

func (f *fixture) eval(t *testing.T, src string) []ids.Hash {
	t.Helper()
	expr, err := Parse(src)
	require.NoError(t, err)
	ev := NewEvaluator(f.idx, f.store, f.view, "default")
	seq, err := ev.Eval(expr)
	require.NoError(t, err)
	out, err := ToSlice(seq)
	require.NoError(t, err)
	return out
}

func TestRootFunction(t *testing.T) {
	f := buildFixture(t)
	require.Equal(t, []ids.Hash{f.root}, f.eval(t, "root()"))
}

func TestAtSymbolResolvesWorkingCopy(t *testing.T) {
	f := buildFixture(t)
	require.Equal(t, []ids.Hash{f.c2}, f.eval(t, "@"))
	require.Equal(t, []ids.Hash{f.c1}, f.eval(t, "@-"))
}

func TestBranchSymbolResolution(t *testing.T) {
	f := buildFixture(t)
	require.Equal(t, []ids.Hash{f.c2}, f.eval(t, "main"))
}

func TestDescendantsInclusiveOrder(t *testing.T) {
	f := buildFixture(t)
	// c3's committer time is later than c2's, so within the tied
	// generation bucket c3 sorts first.
	out := f.eval(t, "root()::")
	require.Equal(t, []ids.Hash{f.c3, f.c2, f.c1, f.root}, out)
}

func TestPostfixDescendants(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, f.c1.String()+"::")
	require.ElementsMatch(t, []ids.Hash{f.c1, f.c2, f.c3}, out)
}

func TestPrefixAncestors(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, "::"+f.c2.String())
	require.Equal(t, []ids.Hash{f.c2, f.c1, f.root}, out)
}

func TestDagRange(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, f.c1.String()+"::"+f.c2.String())
	require.ElementsMatch(t, []ids.Hash{f.c1, f.c2}, out)
}

func TestHeadsFunction(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, "heads("+f.c1.String()+"::)")
	require.ElementsMatch(t, []ids.Hash{f.c2, f.c3}, out)
}

func TestRootsFunction(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, "roots("+f.c1.String()+"::)")
	require.Equal(t, []ids.Hash{f.c1}, out)
}

func TestParentsAndChildrenPostfix(t *testing.T) {
	f := buildFixture(t)
	require.Equal(t, []ids.Hash{f.c1}, f.eval(t, f.c2.String()+"-"))
	out := f.eval(t, f.c1.String()+"+")
	require.ElementsMatch(t, []ids.Hash{f.c2, f.c3}, out)
}

func TestUnionIntersectDifference(t *testing.T) {
	f := buildFixture(t)
	union := f.eval(t, f.c2.String()+" | "+f.c3.String())
	require.ElementsMatch(t, []ids.Hash{f.c2, f.c3}, union)

	inter := f.eval(t, "("+f.c1.String()+":: ) & ("+f.c2.String()+"::)")
	require.Equal(t, []ids.Hash{f.c2}, inter)

	diff := f.eval(t, "("+f.c1.String()+"::) ~ ("+f.c2.String()+"::)")
	require.ElementsMatch(t, []ids.Hash{f.c1, f.c3}, diff)
}

func TestNegation(t *testing.T) {
	f := buildFixture(t)
	// "~x" is all visible commits not in x; visible here is everything
	// reachable from the view's heads (c2, c3), i.e. root, c1, c2, c3.
	out := f.eval(t, "~"+f.c2.String())
	require.ElementsMatch(t, []ids.Hash{f.root, f.c1, f.c3}, out)
}

func TestMutableAndImmutable(t *testing.T) {
	f := buildFixture(t)
	// "main" points at c2, so immutable() = ancestors(c2) + root = {root, c1, c2}.
	immutable := f.eval(t, "immutable()")
	require.ElementsMatch(t, []ids.Hash{f.root, f.c1, f.c2}, immutable)

	mutable := f.eval(t, "mutable()")
	require.Equal(t, []ids.Hash{f.c3}, mutable)
}

func TestMergesFunction(t *testing.T) {
	f := buildFixture(t)
	require.Empty(t, f.eval(t, "merges()"))
}

func TestDescriptionPattern(t *testing.T) {
	f := buildFixture(t)
	out := f.eval(t, `description(substring:"forked")`)
	require.Equal(t, []ids.Hash{f.c3}, out)
}

func TestPresentSwallowsResolutionErrors(t *testing.T) {
	f := buildFixture(t)
	require.Empty(t, f.eval(t, "present(no-such-branch)"))
}

func TestUnknownSymbolIsAnError(t *testing.T) {
	f := buildFixture(t)
	expr, err := Parse("no-such-branch")
	require.NoError(t, err)
	ev := NewEvaluator(f.idx, f.store, f.view, "default")
	_, err = ev.Eval(expr)
	require.Error(t, err)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}
