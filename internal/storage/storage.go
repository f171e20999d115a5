// Package storage implements the object store gateway: physical object
// naming, metadata tagging, time-boxed access-URL issuance, and audit
// listing against an S3-compatible blob backend.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrSizeMismatch is returned when the bytes written to the store differ
// from the declared size.
var ErrSizeMismatch = errors.New("written size does not match declared size")

// ObjectDescriptor describes one stored object as reported by the backend.
type ObjectDescriptor struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// ObjectIterator lazily pulls object descriptors one at a time. After Next
// returns false, Err reports the failure that ended iteration, if any.
// Ordering is not stable under concurrent mutation of the bucket; callers
// needing a stable listing must go through the media catalog instead.
type ObjectIterator interface {
	Next() (ObjectDescriptor, bool)
	Err() error
}

// Storage is the interface for the object store gateway.
type Storage interface {
	// EnsureBucket idempotently creates the backing bucket. Safe to call
	// concurrently from multiple instances.
	EnsureBucket(ctx context.Context) error
	// Upload streams data to the store under the given key, attaching the
	// tag map as object tags. size must be the exact byte count.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) error
	// PresignedURL issues a read URL valid for ttl, scoped to one object.
	// Reissuing never invalidates previously issued URLs.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Remove deletes an object. Removing an absent key is a no-op success.
	Remove(ctx context.Context, key string) error
	// List lazily iterates objects under the prefix. Audit/recovery
	// primitive only.
	List(ctx context.Context, prefix string) ObjectIterator
}
