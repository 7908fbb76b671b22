package object

import (
	"crypto/rand"
	"encoding/hex"
)

// ChangeIDSize is 128 bits, per spec section 9: "any cryptographically
// strong 128-bit [value] suffices; uniqueness is not globally guaranteed
// but collisions are astronomically unlikely and are tolerated
// (divergent-change state)."
const ChangeIDSize = 16

// ChangeID identifies "the same logical change" across rewrites. Unlike
// a Hash it is not a function of content: it is assigned once, at
// commit creation, and carried forward by the rewrite engine.
type ChangeID [ChangeIDSize]byte

var ZeroChangeID ChangeID

func (c ChangeID) IsZero() bool { return c == ZeroChangeID }

func (c ChangeID) String() string {
	return hex.EncodeToString(c[:])
}

func NewChangeID(s string) ChangeID {
	var c ChangeID
	b, _ := hex.DecodeString(s)
	copy(c[:], b)
	return c
}

// NewRandomChangeID generates a fresh change id. Used whenever a commit
// is created by a route other than the rewrite engine (which instead
// inherits the predecessor's change id).
func NewRandomChangeID() (ChangeID, error) {
	var c ChangeID
	if _, err := rand.Read(c[:]); err != nil {
		return ZeroChangeID, err
	}
	return c, nil
}
