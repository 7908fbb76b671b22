package object

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

var conflictMagic = []byte("CCNF\x01")

// ConflictBlob is the stored form of an unresolved tree-value conflict
// (spec section 3.2): a Merge over TreeValue, addressed by ConflictID
// from a parent tree entry whose Kind is KindConflict.
type ConflictBlob struct {
	Merge conflict.Merge[TreeValue]
}

func (c *ConflictBlob) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(conflictMagic)
	for _, v := range c.Merge.Values() {
		fmt.Fprintf(&buf, "%d %s\n", v.Kind, encodeValue(v))
	}
	return buf.Bytes()
}

func DecodeConflictBlob(payload []byte) (*ConflictBlob, error) {
	if !bytes.HasPrefix(payload, conflictMagic) {
		return nil, fmt.Errorf("object: not a conflict payload")
	}
	body := string(payload[len(conflictMagic):])
	var values []TreeValue
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp == -1 {
			return nil, fmt.Errorf("object: malformed conflict entry %q", line)
		}
		var kind ValueKind
		if _, err := fmt.Sscanf(line[:sp], "%d", &kind); err != nil {
			return nil, err
		}
		v, err := decodeValue(kind, line[sp+1:])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	m, err := conflict.New(values)
	if err != nil {
		return nil, err
	}
	return &ConflictBlob{Merge: m}, nil
}

// HashOf computes the content id a ConflictBlob would be stored under.
func HashOf(payload []byte) ids.Hash {
	return ids.Of(payload)
}
