package rerere

import (
	"os"
	"path/filepath"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// preimageName and resolutionName are the two files written under each
// key's directory: the normalized conflict the key was computed from
// (kept for inspection/debugging, never read back for lookups) and the
// resolution bytes actually proposed by Apply.
const (
	preimageName   = "preimage"
	resolutionName = "resolution"
)

// Cache is a content-addressed directory of conflict resolutions rooted
// at dir, sharded two hex levels deep the way objstore shards blobs.
type Cache struct {
	root string
}

// Open returns a Cache rooted at dir, creating it if it does not exist.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Cache{root: dir}, nil
}

func (c *Cache) entryDir(key ids.Hash) string {
	hex := key.String()
	return filepath.Join(c.root, hex[:2], hex[2:4], hex)
}

// Has reports whether key already has a recorded resolution.
func (c *Cache) Has(key ids.Hash) bool {
	_, err := os.Stat(filepath.Join(c.entryDir(key), resolutionName))
	return err == nil
}
