package reader

import (
	"context"
	"io"
	"io/fs"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
)

// ResourceOpener opens a named input resource.
type ResourceOpener interface {
	OpenResource(ctx context.Context, name string) (io.ReadCloser, error)
}

// StorageResource opens resources through a storage connection.
type StorageResource struct {
	Executor storage.StorageExecutor
	// Bucket is passed to Download; empty selects the connection's configured bucket.
	Bucket string
}

// OpenResource implements ResourceOpener.
func (r StorageResource) OpenResource(ctx context.Context, name string) (io.ReadCloser, error) {
	return r.Executor.Download(ctx, r.Bucket, name)
}

// FSResource opens resources from a file system, such as an embedded one.
type FSResource struct {
	FS fs.FS
}

// OpenResource implements ResourceOpener.
func (r FSResource) OpenResource(_ context.Context, name string) (io.ReadCloser, error) {
	return r.FS.Open(name)
}
