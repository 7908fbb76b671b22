package workingcopy

import (
	"context"

	"github.com/chronoscope/chrono/modules/chrono/matcher"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// ChangeSparsePatterns moves the working copy from its current sparse
// pattern set to newPatterns, implemented as two successive checkouts
// exactly as spec section 4.7 describes: first an empty-to-patterns
// checkout restricted to the newly included region (which quietly
// leaves any pre-existing un-ignored files in place), then a
// patterns-to-empty checkout restricted to the newly excluded region.
// st.SparsePatterns and st.TreeID are updated on success.
func ChangeSparsePatterns(ctx context.Context, store *objstore.Store, root string, st *TreeState, newPatterns []string) error {
	oldSet := matcher.NewPrefixSet(st.SparsePatterns)
	newSet := matcher.NewPrefixSet(newPatterns)

	treeID := st.TreeID

	included := matcher.Difference(newSet, oldSet)
	if err := checkoutBetween(ctx, store, root, st, object.EmptyTreeID, treeID, included); err != nil {
		return err
	}

	excluded := matcher.Difference(oldSet, newSet)
	if err := checkoutBetween(ctx, store, root, st, treeID, object.EmptyTreeID, excluded); err != nil {
		return err
	}

	st.TreeID = treeID
	st.SparsePatterns = append([]string(nil), newPatterns...)
	return nil
}
