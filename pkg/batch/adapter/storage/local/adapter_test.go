package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
)

func newAdapter(t *testing.T) (*local.Adapter, string) {
	t.Helper()
	baseDir := filepath.Join(t.TempDir(), "storage")
	a, err := local.NewAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BucketName: "exports", BaseDir: baseDir}, "local")
	require.NoError(t, err)
	return a, baseDir
}

func TestAdapter_UploadDownloadDelete(t *testing.T) {
	a, baseDir := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Upload(ctx, "", "people/dt=2024-01-31/data.parquet", strings.NewReader("PAR1"), "application/octet-stream"))
	_, err := os.Stat(filepath.Join(baseDir, "exports", "people", "dt=2024-01-31", "data.parquet"))
	require.NoError(t, err)

	rc, err := a.Download(ctx, "exports", "people/dt=2024-01-31/data.parquet")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "PAR1", string(data))

	require.NoError(t, a.DeleteObject(ctx, "", "people/dt=2024-01-31/data.parquet"))
	require.NoError(t, a.DeleteObject(ctx, "", "people/dt=2024-01-31/data.parquet"))
	_, err = a.Download(ctx, "", "people/dt=2024-01-31/data.parquet")
	assert.Error(t, err)
}

func TestAdapter_ListObjects(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	for _, name := range []string{"people/a.csv", "people/b.csv", "other/c.csv"} {
		require.NoError(t, a.Upload(ctx, "", name, strings.NewReader(name), "text/csv"))
	}

	var listed []string
	require.NoError(t, a.ListObjects(ctx, "", "people/", func(objectName string) error {
		listed = append(listed, objectName)
		return nil
	}))
	assert.ElementsMatch(t, []string{"people/a.csv", "people/b.csv"}, listed)
}

func TestAdapter_RejectsPathOutsideBaseDir(t *testing.T) {
	a, _ := newAdapter(t)
	err := a.Upload(context.Background(), "", "../../escape.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of BaseDir")
}

func TestNewAdapter_RequiresBaseDir(t *testing.T) {
	_, err := local.NewAdapter(storageConfig.StorageConfig{Type: local.ProviderType}, "local")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = local.NewAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: file}, "local")
	assert.ErrorContains(t, err, "not a directory")
}

func TestConnectionResolver_ResolvesLocalProvider(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Chunkflow.Storage["exports"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir(), "bucket": "b"}
	cfg.Chunkflow.Storage["remote"] = map[string]interface{}{"type": "gcs", "bucket": "b"}
	resolver := storage.NewConnectionResolverFor(cfg, local.NewProvider(cfg))
	ctx := context.Background()

	conn, err := resolver.ResolveStorageConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())
	assert.Equal(t, "exports", conn.Name())

	again, err := resolver.ResolveStorageConnection(ctx, "exports")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = resolver.ResolveStorageConnection(ctx, "remote")
	assert.ErrorContains(t, err, "no storage provider")
	_, err = resolver.ResolveStorageConnection(ctx, "missing")
	assert.Error(t, err)

	assert.NoError(t, resolver.CloseAll())
}
