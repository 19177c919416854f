// Package storage archives classified uploads to an object store so the
// images behind history records can be reviewed later. Archiving is
// best-effort: a failed write never fails the prediction request.
package storage

import (
	"bytes"
	"context"
	"io"
)

const uploadKeyPrefix = "uploads/"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Archive wraps an ObjectStorage backend with upload-specific helpers.
type Archive struct {
	backend ObjectStorage
}

// NewArchive constructs an Archive for the provided backend.
func NewArchive(backend ObjectStorage) *Archive {
	return &Archive{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	return a.backend.EnsureBucket(ctx)
}

// SaveUpload stores the raw bytes of a classified upload under the given
// file name.
func (a *Archive) SaveUpload(ctx context.Context, name string, data []byte, contentType string) error {
	return a.backend.Put(ctx, uploadKeyPrefix+name, bytes.NewReader(data), int64(len(data)), contentType)
}

// OpenUpload opens a reader for a previously archived upload.
func (a *Archive) OpenUpload(ctx context.Context, name string) (io.ReadCloser, error) {
	return a.backend.Get(ctx, uploadKeyPrefix+name)
}

// DeleteUpload removes an archived upload.
func (a *Archive) DeleteUpload(ctx context.Context, name string) error {
	return a.backend.Delete(ctx, uploadKeyPrefix+name)
}

// Bucket returns the configured bucket name.
func (a *Archive) Bucket() string {
	return a.backend.Bucket()
}
