package rerere

import (
	"os"
	"path/filepath"
	"time"

	"github.com/chronoscope/chrono/internal/trace"
)

// GC removes every entry whose resolution file has not been touched
// (written or re-confirmed by Record) since before threshold, returning
// the number of entries removed (spec section 4.8's GC).
func (c *Cache) GC(threshold time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(c.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path) != resolutionName {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.ModTime().Before(threshold) {
			entryDir := filepath.Dir(path)
			if err := os.RemoveAll(entryDir); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, trace.Wrap(err)
	}
	return removed, nil
}
