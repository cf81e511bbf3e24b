package blobstore

import (
	"context"
	"io"
)

// Store is the byte-storage abstraction the sync engine writes mirrored
// asset content through. Keys are content-addressed, so a put at an
// existing key always carries identical bytes.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URLFor(key string) string
}
