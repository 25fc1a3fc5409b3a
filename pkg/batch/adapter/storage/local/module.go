// Package local provides the Fx module for the local storage adapter.
package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
)

// Module contributes the local StorageProvider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(storageAdapter.AsProvider(NewProvider)),
)
