// Package rerere implements the resolution cache of spec section 4.8
// (C9): a content-addressed memo from a normalized conflict preimage to
// a previously chosen resolution, letting the same textual conflict
// recurring in a different file (or a later rebase) reuse its answer
// without asking again. Grounded on the teacher's objstore-style
// content-addressed directory layout and atomic temp-then-rename write.
package rerere

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

const (
	sideStart = "SIDE_START\n"
	sideEnd   = "SIDE_END\n"
)

// Key computes the normalized conflict key for an unresolved
// Merge[[]byte]: a header naming the side count, followed by every
// add/remove term sorted lexicographically and wrapped in
// SIDE_START/SIDE_END markers, hashed with BLAKE3 (spec section 4.8's
// exact normalization algorithm). The path a conflict occurs at is
// deliberately not part of the preimage, so the same conflict in two
// different files maps to the same key.
func Key(m conflict.Merge[[]byte]) ids.Hash {
	values := m.Values()
	sorted := make([][]byte, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "CONFLICT:%d\n", len(values))
	for _, v := range sorted {
		buf.WriteString(sideStart)
		buf.Write(v)
		if len(v) == 0 || v[len(v)-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteString(sideEnd)
	}
	return ids.Of(buf.Bytes())
}
