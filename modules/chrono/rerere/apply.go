package rerere

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Apply looks up the cached resolution for the unresolved conflict m.
// When found, it writes the cached bytes to store as a file blob and
// returns the resolved tree value in place of the conflict, reporting
// true. When no entry exists it returns the zero value and false,
// leaving the caller to materialize the conflict as usual (spec section
// 4.8's Apply). executable carries the executable bit the caller wants
// the resolved file to have, since the cache itself only remembers
// content, not tree metadata.
func (c *Cache) Apply(store *objstore.Store, m conflict.Merge[[]byte], executable bool) (object.TreeValue, bool, error) {
	key := Key(m)
	resolution, err := os.ReadFile(filepath.Join(c.entryDir(key), resolutionName))
	if err != nil {
		if os.IsNotExist(err) {
			return object.TreeValue{}, false, nil
		}
		return object.TreeValue{}, false, trace.Wrap(err)
	}

	id, _, err := store.WriteFile(strings.NewReader(string(resolution)))
	if err != nil {
		return object.TreeValue{}, false, trace.Wrap(err)
	}
	return object.File(id, executable, ""), true, nil
}
