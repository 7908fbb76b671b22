// Package remote implements the optional large-blob offload for C1's
// object store (spec section 4.1, supplemented per SPEC_FULL.md's
// domain stack): file blobs above a configurable size move to an S3 or
// GCS bucket instead of local disk, mirroring modules/oss's
// Bucket interface (Stat/Open/Put/Delete/ListObjects) but backed by the
// real cloud SDKs (aws-sdk-go-v2, cloud.google.com/go/storage) rather
// than modules/oss's hand-rolled Aliyun OSS v4 signing — the same
// "upload past a size threshold" idiom modules/oss's LinearUpload
// comment describes for its own 5GB limit.
package remote

import (
	"context"
	"io"
)

// Backend is the minimal bucket operation set OffloadStore needs: put,
// range-read, delete, and existence. Implementations are S3Backend and
// GCSBackend.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string, fromByte int64) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}
