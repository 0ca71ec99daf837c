// Package storage keeps uploaded document bytes outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrPresignUnsupported = errors.New("presigned urls not supported by this store")
	ErrInvalidKey         = errors.New("invalid object key")
)

// BlobStore is implemented by every document backend.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL, or ErrPresignUnsupported.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Backend selects a store by name: "local" (directory dir) or "s3".
func Backend(ctx context.Context, name, dir string, s3opts S3Options) (BlobStore, error) {
	switch name {
	case "", "local":
		return NewLocalStore(dir)
	case "s3":
		return NewS3Store(ctx, s3opts)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}
