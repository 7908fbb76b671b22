package remote

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend stores blobs under bucket/prefix/key using
// cloud.google.com/go/storage.
type GCSBackend struct {
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSBackend(client *storage.Client, bucket, prefix string) *GCSBackend {
	return &GCSBackend{bucket: client.Bucket(bucket), prefix: prefix}
}

func (b *GCSBackend) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

func (b *GCSBackend) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	w := b.bucket.Object(b.fullKey(key)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("remote: gcs put %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("remote: gcs put %s: %w", key, err)
	}
	return nil
}

func (b *GCSBackend) Open(ctx context.Context, key string, fromByte int64) (io.ReadCloser, error) {
	rc, err := b.bucket.Object(b.fullKey(key)).NewRangeReader(ctx, fromByte, -1)
	if err != nil {
		return nil, fmt.Errorf("remote: gcs get %s: %w", key, err)
	}
	return rc, nil
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Object(b.fullKey(key)).Delete(ctx); err != nil {
		return fmt.Errorf("remote: gcs delete %s: %w", key, err)
	}
	return nil
}

// Has reports whether key exists, per the same false-negative-is-safe
// reasoning as S3Backend.Has.
func (b *GCSBackend) Has(ctx context.Context, key string) (bool, error) {
	_, err := b.bucket.Object(b.fullKey(key)).Attrs(ctx)
	return err == nil, nil
}
