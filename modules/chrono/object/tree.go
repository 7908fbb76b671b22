// Package object defines the five content-addressed kinds stored by the
// object store (spec section 4.1): file blobs, symlink blobs, trees,
// commits and conflict blobs, together with the tree-value sum type that
// distinguishes a file from a symlink, a nested tree, a conflict, or an
// external submodule reference (spec section 3.2).
package object

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// ValueKind tags which alternative a TreeValue holds.
type ValueKind uint8

const (
	KindFile ValueKind = iota
	KindSymlink
	KindTree
	KindConflict
	KindSubmodule
)

func (k ValueKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindTree:
		return "tree"
	case KindConflict:
		return "conflict"
	case KindSubmodule:
		return "submodule"
	default:
		return "unknown"
	}
}

// TreeValue is exactly one of: a file (id + executable bit + optional
// copy-tracking id), a symlink id, a nested tree id, a conflict id, or
// an opaque submodule reference, per spec section 3.2.
type TreeValue struct {
	Kind ValueKind

	FileID     ids.Hash
	Executable bool
	CopyID     string // empty if untracked

	SymlinkID ids.Hash

	TreeID ids.Hash

	ConflictID ids.Hash

	SubmoduleID string
}

func File(id ids.Hash, executable bool, copyID string) TreeValue {
	return TreeValue{Kind: KindFile, FileID: id, Executable: executable, CopyID: copyID}
}

func Symlink(id ids.Hash) TreeValue {
	return TreeValue{Kind: KindSymlink, SymlinkID: id}
}

func SubTree(id ids.Hash) TreeValue {
	return TreeValue{Kind: KindTree, TreeID: id}
}

func Conflict(id ids.Hash) TreeValue {
	return TreeValue{Kind: KindConflict, ConflictID: id}
}

func Submodule(ref string) TreeValue {
	return TreeValue{Kind: KindSubmodule, SubmoduleID: ref}
}

// Equal compares two tree values for identical content, ignoring
// copy-tracking id (use EqualStrict when copy ids must also match).
func (v TreeValue) Equal(other TreeValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindFile:
		return v.FileID == other.FileID && v.Executable == other.Executable
	case KindSymlink:
		return v.SymlinkID == other.SymlinkID
	case KindTree:
		return v.TreeID == other.TreeID
	case KindConflict:
		return v.ConflictID == other.ConflictID
	case KindSubmodule:
		return v.SubmoduleID == other.SubmoduleID
	}
	return false
}

// EqualStrict additionally requires copy-tracking ids to match when
// both sides are files; used under the "require identical" copy policy
// (spec section 4.2).
func (v TreeValue) EqualStrict(other TreeValue) bool {
	if !v.Equal(other) {
		return false
	}
	if v.Kind == KindFile {
		return v.CopyID == other.CopyID
	}
	return true
}

// Entry pairs a path component with its value.
type Entry struct {
	Name  string
	Value TreeValue
}

// Tree maps path components to tree values, sorted by name for
// deterministic, content-addressed encoding.
type Tree struct {
	Entries []Entry
}

// EmptyTreeID is the fixed id representing an empty tree without
// requiring a write (spec section 4.1).
var EmptyTreeID = ids.Of(append(treeMagic(), 0))

func treeMagic() []byte { return []byte("CTRE\x01") }

// NewTree builds a Tree from entries, sorting them by name.
func NewTree(entries []Entry) *Tree {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return &Tree{Entries: out}
}

// Find returns the entry for name, or false if absent.
func (t *Tree) Find(name string) (TreeValue, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Name >= name })
	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i].Value, true
	}
	return TreeValue{}, false
}

// With returns a copy of t with name set to value (replacing any
// existing entry of the same name).
func (t *Tree) With(name string, value TreeValue) *Tree {
	entries := make([]Entry, 0, len(t.Entries)+1)
	inserted := false
	for _, e := range t.Entries {
		if e.Name == name {
			entries = append(entries, Entry{Name: name, Value: value})
			inserted = true
			continue
		}
		entries = append(entries, e)
	}
	if !inserted {
		entries = append(entries, Entry{Name: name, Value: value})
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
	return &Tree{Entries: entries}
}

// Without returns a copy of t with name removed.
func (t *Tree) Without(name string) *Tree {
	entries := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Name != name {
			entries = append(entries, e)
		}
	}
	return &Tree{Entries: entries}
}

// Encode serialises the tree in a canonical form suitable for hashing
// and storage: one line per entry, sorted, kind-tagged.
func (t *Tree) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(treeMagic())
	for _, e := range t.Entries {
		fmt.Fprintf(&buf, "%d %s %s", e.Value.Kind, e.Name, encodeValue(e.Value))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func encodeValue(v TreeValue) string {
	switch v.Kind {
	case KindFile:
		exe := "0"
		if v.Executable {
			exe = "1"
		}
		return v.FileID.String() + " " + exe + " " + v.CopyID
	case KindSymlink:
		return v.SymlinkID.String()
	case KindTree:
		return v.TreeID.String()
	case KindConflict:
		return v.ConflictID.String()
	case KindSubmodule:
		return v.SubmoduleID
	}
	return ""
}

// DecodeTree parses the canonical form written by Tree.Encode.
func DecodeTree(payload []byte) (*Tree, error) {
	magic := treeMagic()
	if !bytes.HasPrefix(payload, magic) {
		return nil, fmt.Errorf("object: not a tree payload")
	}
	body := payload[len(magic):]
	var entries []Entry
	for _, line := range strings.Split(strings.TrimRight(string(body), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			return nil, fmt.Errorf("object: malformed tree entry %q", line)
		}
		var kind ValueKind
		if _, err := fmt.Sscanf(fields[0], "%d", &kind); err != nil {
			return nil, err
		}
		name := fields[1]
		rest := fields[2]
		v, err := decodeValue(kind, rest)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Value: v})
	}
	return &Tree{Entries: entries}, nil
}

func decodeValue(kind ValueKind, rest string) (TreeValue, error) {
	switch kind {
	case KindFile:
		parts := strings.SplitN(rest, " ", 3)
		if len(parts) < 2 {
			return TreeValue{}, fmt.Errorf("object: malformed file entry %q", rest)
		}
		copyID := ""
		if len(parts) == 3 {
			copyID = parts[2]
		}
		return File(ids.New(parts[0]), parts[1] == "1", copyID), nil
	case KindSymlink:
		return Symlink(ids.New(rest)), nil
	case KindTree:
		return SubTree(ids.New(rest)), nil
	case KindConflict:
		return Conflict(ids.New(rest)), nil
	case KindSubmodule:
		return Submodule(rest), nil
	}
	return TreeValue{}, fmt.Errorf("object: unknown value kind %d", kind)
}

// Equal reports whether two trees serialise identically.
func (t *Tree) Equal(other *Tree) bool {
	return bytes.Equal(t.Encode(), other.Encode())
}
