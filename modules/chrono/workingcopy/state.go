// Package workingcopy implements the per-workspace working-copy engine
// of spec section 4.7 (C8): a persistent tree state mapping every
// tracked path to a FileState, snapshot (filesystem to store) and
// checkout (store to filesystem), sparse patterns, and a per-workspace
// exclusive lock. Grounded on the teacher's worktree.go/worktree_status.go/
// worktree_checkout.go family, adapted from a git-index-backed model to
// this repo's own content-addressed tree state.
package workingcopy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// stateVersion is bumped whenever a field is added in a way a reader
// must understand to interpret correctly; today's version tolerates
// unknown fields (encoding/json's default behavior) without a bump, per
// spec section 6's "versioned, append-only-compatible" requirement.
const stateVersion = 1

// FileKind classifies a tracked path's last-observed on-disk shape.
type FileKind int

const (
	KindRegular FileKind = iota
	KindExecutable
	KindSymlink
	KindConflict
	KindSubmodule
)

// FileState is the last-observed state of one tracked path: enough to
// decide, on the next snapshot, whether the file needs re-hashing
// without touching its content (spec section 4.7).
type FileState struct {
	Kind FileKind `json:"kind"`

	// Size and ModTime are the raw signal for the cheap "did this file
	// change" test; ModTime equal to the state file's own write time is
	// never trusted (see snapshotFile in snapshot.go).
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`

	// ContentID is the file or symlink blob id (KindRegular/Executable/
	// Symlink) or the conflict blob id (KindConflict); unused for
	// KindSubmodule.
	ContentID ids.Hash `json:"content_id"`

	// SubmoduleRef holds the opaque reference for KindSubmodule.
	SubmoduleRef string `json:"submodule_ref,omitempty"`
}

// TreeState is the full persisted working-copy record: the committed
// tree it was last snapshotted/checked-out against, every tracked
// path's FileState, and the active sparse pattern set (spec section
// 4.7 and section 6's filesystem layout).
type TreeState struct {
	Version int `json:"version"`

	TreeID ids.Hash `json:"tree_id"`

	Files map[string]FileState `json:"files"`

	SparsePatterns []string `json:"sparse_patterns,omitempty"`

	// WorkspaceID and OperationID let a multi-workspace repository tell
	// its working copies apart and record which operation last wrote
	// this state (spec section 6).
	WorkspaceID string   `json:"workspace_id"`
	OperationID ids.Hash `json:"operation_id"`

	// WrittenAt is this state file's own write time, used by the
	// same-second race guard (spec section 4.7 step 2).
	WrittenAt time.Time `json:"written_at"`
}

// NewTreeState returns an empty state for a freshly initialized
// workspace.
func NewTreeState(workspaceID string) *TreeState {
	return &TreeState{
		Version:     stateVersion,
		Files:       make(map[string]FileState),
		WorkspaceID: workspaceID,
	}
}

const stateFileName = "tree-state.json"

// Load reads the tree state from dir's hidden state directory. A
// missing file returns a fresh empty state rather than an error, since
// an uninitialized workspace is a normal starting point.
func Load(dir, workspaceID string) (*TreeState, error) {
	payload, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if os.IsNotExist(err) {
		return NewTreeState(workspaceID), nil
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var st TreeState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, trace.Wrap(err)
	}
	if st.Version > stateVersion {
		return nil, trace.Errorf("workingcopy: state file version %d is newer than this reader supports (%d)", st.Version, stateVersion)
	}
	if st.Files == nil {
		st.Files = make(map[string]FileState)
	}
	return &st, nil
}

// Save atomically writes st to dir's hidden state directory (temp file
// plus rename, the same idempotent-write idiom objstore uses).
func (st *TreeState) Save(dir string) error {
	st.Version = stateVersion
	st.WrittenAt = time.Now()
	payload, err := json.Marshal(st)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return trace.Wrap(err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-state-*")
	if err != nil {
		return trace.Wrap(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return trace.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return trace.Wrap(err)
	}
	return os.Rename(tmpName, filepath.Join(dir, stateFileName))
}
