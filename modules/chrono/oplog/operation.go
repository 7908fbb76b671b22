package oplog

import (
	"time"

	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// Operation is one append-only DAG node: a record of a transaction that
// produced ViewID, with Parents naming the op-head(s) it was built on
// top of (spec section 4.4). Multiple parents record a concurrent
// commit that required view-merging.
type Operation struct {
	ID          ids.Hash
	Parents     []ids.Hash
	ViewID      ids.Hash
	Description string
	Start       time.Time
	End         time.Time
}
