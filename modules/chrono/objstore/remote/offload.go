package remote

import (
	"context"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// OffloadStore wraps a local objstore.Store, moving file blobs above
// threshold bytes to Backend and deleting the local copy once the
// upload is confirmed present. Trees, commits, symlinks, and conflict
// blobs always stay local — they are small and the rewrite/revset/
// rebase engines read them far too often to pay a network round trip.
type OffloadStore struct {
	local     *objstore.Store
	backend   Backend
	threshold int64
}

func NewOffloadStore(local *objstore.Store, backend Backend, threshold int64) *OffloadStore {
	return &OffloadStore{local: local, backend: backend, threshold: threshold}
}

// WriteFile writes r locally first (so the content id is computed and
// deduplicated exactly as objstore.Store already does), then, if the
// result exceeds threshold, copies it to the backend and removes the
// local copy once the backend confirms it has the object.
func (o *OffloadStore) WriteFile(ctx context.Context, r io.Reader) (ids.Hash, int64, error) {
	id, size, err := o.local.WriteFile(r)
	if err != nil {
		return ids.Hash{}, 0, err
	}
	if size < o.threshold {
		return id, size, nil
	}

	rc, err := o.local.OpenFile(id)
	if err != nil {
		return ids.Hash{}, 0, err
	}
	putErr := o.backend.Put(ctx, id.String(), rc, size)
	_ = rc.Close()
	if putErr != nil {
		// Local copy still holds the data; offload failure is not fatal.
		return id, size, nil
	}

	if has, _ := o.backend.Has(ctx, id.String()); has {
		_ = o.local.RemoveFile(id)
	}
	return id, size, nil
}

// OpenFile reads from local storage when present, otherwise fetches
// from the backend by content id.
func (o *OffloadStore) OpenFile(ctx context.Context, id ids.Hash) (io.ReadCloser, error) {
	if o.local.HasFile(id) {
		return o.local.OpenFile(id)
	}
	return o.backend.Open(ctx, id.String(), 0)
}
