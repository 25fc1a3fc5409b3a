// Package config holds the storage settings shared by the storage adapters.
package config

import (
	"fmt"

	coreconfig "github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs").
	BucketName      string `yaml:"bucket"`           // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to credentials file (e.g., service account key for GCS).
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
}

// Lookup decodes the storage connection name from chunkflow.storage.
func Lookup(cfg *coreconfig.Config, name string) (StorageConfig, error) {
	var storageCfg StorageConfig
	raw, ok := cfg.Chunkflow.Storage[name]
	if !ok {
		return storageCfg, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return storageCfg, fmt.Errorf("storage '%s' has invalid format: expected a map but got %T", name, raw)
	}
	if err := configbinder.BindProperties(props, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	if storageCfg.Type == "" {
		return storageCfg, fmt.Errorf("storage '%s' has no type", name)
	}
	return storageCfg, nil
}
