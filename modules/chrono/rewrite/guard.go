package rewrite

import (
	"fmt"

	"github.com/chronoscope/chrono/modules/chrono/commitindex"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// ErrImmutable is returned when a mutation targets a commit in the
// immutable set (spec section 4.6's immutability guard, layered over
// the revset package's immutable() rather than duplicating its ancestry
// walk).
type ErrImmutable struct {
	Commit ids.Hash
}

func (e *ErrImmutable) Error() string {
	return fmt.Sprintf("rewrite: %s is immutable", e.Commit)
}

// CheckMutable returns ErrImmutable if target is in the immutable set,
// as computed by the caller (normally revset.Evaluator.Eval(immutable())
// materialized to a set once per transaction, not recomputed per call).
func CheckMutable(target ids.Hash, immutable map[ids.Hash]bool) error {
	if immutable[target] {
		return &ErrImmutable{Commit: target}
	}
	return nil
}

// BranchMoveKind classifies how a branch pointer update relates to its
// previous target, for the sideways/backwards branch-move guard (spec
// section 4.6: moving a branch to a non-descendant of its current
// target is allowed only when explicitly forced).
type BranchMoveKind int

const (
	// BranchMoveForward: newTarget is a descendant of oldTarget.
	BranchMoveForward BranchMoveKind = iota
	// BranchMoveSideways: neither is an ancestor of the other.
	BranchMoveSideways
	// BranchMoveBackward: newTarget is an ancestor of oldTarget.
	BranchMoveBackward
)

// ClassifyBranchMove compares oldTarget and newTarget using idx's
// ancestry queries.
func ClassifyBranchMove(idx *commitindex.Index, oldTarget, newTarget ids.Hash) (BranchMoveKind, error) {
	if oldTarget == newTarget {
		return BranchMoveForward, nil
	}
	forward, err := idx.IsAncestor(oldTarget, newTarget)
	if err != nil {
		return 0, err
	}
	if forward {
		return BranchMoveForward, nil
	}
	backward, err := idx.IsAncestor(newTarget, oldTarget)
	if err != nil {
		return 0, err
	}
	if backward {
		return BranchMoveBackward, nil
	}
	return BranchMoveSideways, nil
}

// ErrNonForwardBranchMove is returned by RequireForwardMove when the
// move is sideways or backward and force was not requested.
type ErrNonForwardBranchMove struct {
	Branch string
	Kind   BranchMoveKind
}

func (e *ErrNonForwardBranchMove) Error() string {
	verb := "sideways"
	if e.Kind == BranchMoveBackward {
		verb = "backward"
	}
	return fmt.Sprintf("rewrite: refusing %s move of branch %q without force", verb, e.Branch)
}

// RequireForwardMove guards a branch update, erroring on a sideways or
// backward move unless force is set.
func RequireForwardMove(idx *commitindex.Index, branch string, oldTarget, newTarget ids.Hash, force bool) error {
	if force {
		return nil
	}
	kind, err := ClassifyBranchMove(idx, oldTarget, newTarget)
	if err != nil {
		return err
	}
	if kind != BranchMoveForward {
		return &ErrNonForwardBranchMove{Branch: branch, Kind: kind}
	}
	return nil
}
