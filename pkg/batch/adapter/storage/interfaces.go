// Package storage defines the common interfaces for the storage adapters.
// Flat file readers download their resource and file writers upload their output
// through a StorageConnection, so the same step runs against the local file system or GCS.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/chunkflow/pkg/batch/core/adapter"
)

// ProviderGroup is the fx value group that collects StorageProviders.
const ProviderGroup = "storage_providers"

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// An empty bucket selects the bucket configured for the connection.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket. A missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection // Inherits Close(), Type(), Name()
	StorageExecutor                // Inherits Upload(), Download(), ListObjects(), DeleteObject()
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves a StorageConnection connection with the specified name.
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs").
	Type() string
}

// StorageConnectionResolver resolves storage connections by name.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver // Inherits ResolveConnection()

	// ResolveStorageConnection resolves a StorageConnection connection instance by name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}
