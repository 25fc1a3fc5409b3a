package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkflow/pkg/batch/test"
)

func TestNewJobRepository(t *testing.T) {
	t.Run("in-memory by default", func(t *testing.T) {
		cfg := config.NewConfig()
		repo, err := repository.NewJobRepository(repository.Params{Lifecycle: fxtest.NewLifecycle(t), Cfg: cfg})
		require.NoError(t, err)
		assert.IsType(t, &inmemory.InMemoryJobRepository{}, repo)
	})

	t.Run("sql migrates on start", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Chunkflow.Repository.Type = repository.TypeSQL
		conn := testutil.OpenSQLite(t, "metadata")
		lc := fxtest.NewLifecycle(t)

		repo, err := repository.NewJobRepository(repository.Params{
			Lifecycle:  lc,
			Cfg:        cfg,
			DBResolver: testutil.NewTestSingleConnectionResolver(conn),
		})
		require.NoError(t, err)
		assert.IsType(t, &sqlrepo.SQLJobRepository{}, repo)
		lc.RequireStart().RequireStop()

		db, err := conn.GetSQLDB()
		require.NoError(t, err)
		var tables int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'batch_job_execution'").Scan(&tables))
		assert.Equal(t, 1, tables)
	})

	t.Run("sql without database module", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Chunkflow.Repository.Type = repository.TypeSQL
		_, err := repository.NewJobRepository(repository.Params{Lifecycle: fxtest.NewLifecycle(t), Cfg: cfg})
		assert.ErrorIs(t, err, exception.ErrConfiguration)
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Chunkflow.Repository.Type = "redis"
		_, err := repository.NewJobRepository(repository.Params{Lifecycle: fxtest.NewLifecycle(t), Cfg: cfg})
		assert.ErrorIs(t, err, exception.ErrConfiguration)
	})
}
