package rerere

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/chronoscope/chrono/internal/trace"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

// Record stores resolution as the chosen content for the conflict whose
// normalized key is key, alongside preimage (the normalized bytes Key
// was computed from, kept for later inspection). If no entry exists yet
// it is written atomically via a temp directory plus rename. If an
// entry exists with a different resolution it is overwritten in place
// and its mtime touched; an identical resolution keeps its content and
// only has its mtime touched (spec section 4.8's Record).
func (c *Cache) Record(key ids.Hash, preimage, resolution []byte) error {
	dir := c.entryDir(key)

	existing, err := os.ReadFile(filepath.Join(dir, resolutionName))
	if err == nil {
		if bytes.Equal(existing, resolution) {
			now := time.Now()
			return os.Chtimes(filepath.Join(dir, resolutionName), now, now)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return trace.Wrap(err)
		}
		return writeFileAtomic(dir, resolutionName, resolution)
	}
	if !os.IsNotExist(err) {
		return trace.Wrap(err)
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return trace.Wrap(err)
	}
	tmpDir, err := os.MkdirTemp(parent, ".tmp-*")
	if err != nil {
		return trace.Wrap(err)
	}
	removeTmp := true
	defer func() {
		if removeTmp {
			os.RemoveAll(tmpDir)
		}
	}()

	if err := os.WriteFile(filepath.Join(tmpDir, preimageName), preimage, 0o644); err != nil {
		return trace.Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, resolutionName), resolution, 0o644); err != nil {
		return trace.Wrap(err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		if _, statErr := os.Stat(dir); statErr == nil {
			// another writer recorded this key concurrently; leave its entry in place.
			return nil
		}
		return trace.Wrap(err)
	}
	removeTmp = false
	return nil
}

// writeFileAtomic replaces name under dir via a temp file in the same
// directory followed by a rename, mirroring objstore.writeRaw's idiom.
func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return trace.Wrap(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return trace.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return trace.Wrap(err)
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
