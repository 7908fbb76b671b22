package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend stores blobs under bucket/prefix/key using aws-sdk-go-v2.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Backend(client *s3.Client, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

func (b *S3Backend) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

func (b *S3Backend) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	fk := b.fullKey(key)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &b.bucket,
		Key:           &fk,
		Body:          r,
		ContentLength: &size,
	})
	if err != nil {
		return fmt.Errorf("remote: s3 put %s: %w", key, err)
	}
	return nil
}

func (b *S3Backend) Open(ctx context.Context, key string, fromByte int64) (io.ReadCloser, error) {
	fk := b.fullKey(key)
	input := &s3.GetObjectInput{Bucket: &b.bucket, Key: &fk}
	if fromByte > 0 {
		rangeHeader := fmt.Sprintf("bytes=%d-", fromByte)
		input.Range = &rangeHeader
	}
	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("remote: s3 get %s: %w", key, err)
	}
	return out.Body, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	fk := b.fullKey(key)
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.bucket, Key: &fk})
	if err != nil {
		return fmt.Errorf("remote: s3 delete %s: %w", key, err)
	}
	return nil
}

// Has reports whether key exists. Any error from HeadObject (including
// a 404) is treated as "not present" — OffloadStore only uses Has to
// decide whether a local copy can be safely discarded, so a false
// negative here just means a local copy is kept, never data loss.
func (b *S3Backend) Has(ctx context.Context, key string) (bool, error) {
	fk := b.fullKey(key)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.bucket, Key: &fk})
	return err == nil, nil
}
