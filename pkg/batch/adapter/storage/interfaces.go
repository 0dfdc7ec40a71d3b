// Package storage abstracts where dumps and cleaned artifacts live. A reference is
// either a local path or a "gs://bucket/object" URL; the Resolver picks the adapter.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the specified bucket and object name.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the specified object. The caller closes the returned ReadCloser.
	// A missing object yields an error satisfying errors.Is(err, fs.ErrNotExist).
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is an open storage backend.
type StorageConnection interface {
	StorageExecutor

	// Close releases the connection.
	Close() error
	// Type returns the reference scheme served by the connection ("file", "gs").
	Type() string
	// Name returns the name of the connection.
	Name() string
}

// Factory opens a StorageConnection on first use.
type Factory func(ctx context.Context) (StorageConnection, error)
