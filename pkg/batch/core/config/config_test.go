package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

const testYAML = `
chunkflow:
  batch:
    job_name: importUserJob
    chunk_size: 5
  repository:
    type: sql
    datasource: metadata
  datasources:
    people:
      type: postgres
      host: localhost
      password: ${TEST_PEOPLE_PASSWORD}
  application:
    import:
      resource: sample-data.csv
`

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "importUserJob", cfg.Chunkflow.Batch.JobName)
	assert.Equal(t, 5, cfg.Chunkflow.Batch.ChunkSize)
	assert.Equal(t, "sql", cfg.Chunkflow.Repository.Type)
	// Absent keys keep their defaults.
	assert.Equal(t, "run.id", cfg.Chunkflow.Batch.Incrementer)
	assert.Equal(t, "INFO", cfg.Chunkflow.System.Logging.Level)
}

func TestLoadConfig_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_PEOPLE_PASSWORD", "s3cret")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	people := cfg.Chunkflow.Datasources["people"].(map[string]interface{})
	assert.Equal(t, "s3cret", people["password"])
}

func TestLoadConfig_EnvironmentOverridesYAML(t *testing.T) {
	t.Setenv("CHUNKFLOW_BATCH_CHUNK_SIZE", "7")
	t.Setenv("CHUNKFLOW_DATASOURCES_PEOPLE_HOST", "db.internal")
	t.Setenv("CHUNKFLOW_APPLICATION_IMPORT_RESOURCE", "other.csv")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Chunkflow.Batch.ChunkSize)
	people := cfg.Chunkflow.Datasources["people"].(map[string]interface{})
	assert.Equal(t, "db.internal", people["host"])
	assert.Equal(t, "postgres", people["type"])
	imp := cfg.Chunkflow.Application["import"].(map[string]interface{})
	assert.Equal(t, "other.csv", imp["resource"])
}

func TestLoadConfig_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CHUNKFLOW_BATCH_JOB_NAME=fromEnvFile\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CHUNKFLOW_BATCH_JOB_NAME") })

	cfg, err := config.LoadConfig(envFile, config.EmbeddedConfig(testYAML))
	require.NoError(t, err)
	assert.Equal(t, "fromEnvFile", cfg.Chunkflow.Batch.JobName)
}

func TestLoadConfig_RejectsInvalidChunkSize(t *testing.T) {
	t.Setenv("CHUNKFLOW_BATCH_CHUNK_SIZE", "0")

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig("chunkflow: [unclosed"))
	assert.Error(t, err)
}
