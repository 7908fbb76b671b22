package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory Backend stub so these tests don't need real
// AWS/GCS credentials or network access.
type fakeBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[string][]byte)}
}

func (b *fakeBackend) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if b.failPut {
		return errors.New("fake: put failed")
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = buf
	return nil
}

func (b *fakeBackend) Open(ctx context.Context, key string, fromByte int64) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.objects[key]
	if !ok {
		return nil, errors.New("fake: not found")
	}
	return io.NopCloser(bytes.NewReader(buf[fromByte:])), nil
}

func (b *fakeBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBackend) Has(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

var _ Backend = (*fakeBackend)(nil)

func newTestStore(t *testing.T) *objstore.Store {
	t.Helper()
	s, err := objstore.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestWriteFileBelowThresholdStaysLocal(t *testing.T) {
	local := newTestStore(t)
	backend := newFakeBackend()
	store := NewOffloadStore(local, backend, 1024)

	id, size, err := store.WriteFile(context.Background(), bytes.NewReader([]byte("small content")))
	require.NoError(t, err)
	require.Equal(t, int64(len("small content")), size)
	require.True(t, local.HasFile(id))

	has, err := backend.Has(context.Background(), id.String())
	require.NoError(t, err)
	require.False(t, has)
}

func TestWriteFileAboveThresholdOffloadsAndRemovesLocal(t *testing.T) {
	local := newTestStore(t)
	backend := newFakeBackend()
	store := NewOffloadStore(local, backend, 4)

	content := []byte("this content exceeds the threshold")
	id, size, err := store.WriteFile(context.Background(), bytes.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), size)

	require.False(t, local.HasFile(id))
	has, err := backend.Has(context.Background(), id.String())
	require.NoError(t, err)
	require.True(t, has)

	rc, err := store.OpenFile(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestWriteFileOffloadFailureKeepsLocalCopy(t *testing.T) {
	local := newTestStore(t)
	backend := newFakeBackend()
	backend.failPut = true
	store := NewOffloadStore(local, backend, 4)

	content := []byte("this content exceeds the threshold too")
	id, _, err := store.WriteFile(context.Background(), bytes.NewReader(content))
	require.NoError(t, err)

	require.True(t, local.HasFile(id))
	has, err := backend.Has(context.Background(), id.String())
	require.NoError(t, err)
	require.False(t, has)

	rc, err := store.OpenFile(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, content, got)
}
