// Package ids defines the content-addressed identifiers used throughout
// the object store, the operation log and the resolution cache.
package ids

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"sort"

	"github.com/zeebo/blake3"
)

const (
	// DigestSize is the length in bytes of every id in this package.
	DigestSize = 32
	// HexSize is the length of the hex-encoded string form of a Hash.
	HexSize = DigestSize * 2
)

// Hash is a BLAKE3 content hash. Commit ids, tree ids, file ids,
// symlink ids, conflict ids, view ids and operation ids are all
// represented as a Hash; the id is a pure function of the payload that
// produced it, except for the synthetic root commit's id, Zero. Change
// ids are a separate type (object.ChangeID).
type Hash [DigestSize]byte

// Zero is the well-known zero id; it never names a written object, but
// is the fixed commit id of the synthetic root commit.
var Zero Hash

func (h Hash) IsZero() bool {
	return h == Zero
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(h[:], decoded)
	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	copy(h[:], decoded)
	return nil
}

// New decodes a hex string into a Hash. Malformed input yields the zero
// Hash; use NewChecked when the input is untrusted.
func New(s string) Hash {
	b, _ := hex.DecodeString(s)
	var h Hash
	copy(h[:], b)
	return h
}

// NewChecked decodes a hex string into a Hash, rejecting malformed or
// mis-sized input.
func NewChecked(s string) (Hash, error) {
	if !Valid(s) {
		return Zero, fmt.Errorf("ids: %q is not a valid object id", s)
	}
	return New(s), nil
}

// Valid reports whether s is a syntactically valid hex id.
func Valid(s string) bool {
	if len(s) != HexSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Sort sorts a slice of Hash in increasing byte order, used wherever the
// spec requires a deterministic tie-break on commit id.
func Sort(hs []Hash) {
	sort.Sort(Slice(hs))
}

// Slice attaches sort.Interface to []Hash.
type Slice []Hash

func (s Slice) Len() int           { return len(s) }
func (s Slice) Less(i, j int) bool { return bytes.Compare(s[i][:], s[j][:]) < 0 }
func (s Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Hasher incrementally computes a Hash.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a fresh incremental BLAKE3 hasher.
func NewHasher() Hasher {
	return Hasher{Hash: blake3.New()}
}

// Sum finalises the hasher into a Hash without mutating further state.
func (h Hasher) Sum() (out Hash) {
	copy(out[:], h.Hash.Sum(nil))
	return
}

// Of hashes a single byte slice in one call; kinded content should
// prefix the payload with its kind tag before calling Of (see objstore).
func Of(b []byte) Hash {
	h := NewHasher()
	_, _ = h.Write(b)
	return h.Sum()
}
