package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
)

// Module contributes the GCS StorageProvider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(storageAdapter.AsProvider(NewProvider)),
)
