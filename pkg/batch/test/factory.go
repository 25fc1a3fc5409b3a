package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm/sqlite"
	coreadapter "github.com/tigerroll/chunkflow/pkg/batch/core/adapter"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// OpenSQLite opens a file-backed SQLite database in t.TempDir() through the GORM adapter.
// The connection is closed when the test ends.
func OpenSQLite(t *testing.T, name string) *gormadapter.GormDBAdapter {
	t.Helper()
	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), name+".db"),
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	}
	db, err := gormadapter.Open(cfg, "SILENT")
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SingleConnectionResolver always resolves to the same connection.
type SingleConnectionResolver struct {
	Conn database.DBConnection
}

// NewTestSingleConnectionResolver creates a resolver returning conn for every name.
func NewTestSingleConnectionResolver(conn database.DBConnection) *SingleConnectionResolver {
	return &SingleConnectionResolver{Conn: conn}
}

func (r *SingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.Conn, nil
}

func (r *SingleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	return r.Conn, nil
}

var _ database.DBConnectionResolver = (*SingleConnectionResolver)(nil)

// NewTestJobParameters creates JobParameters holding params.
func NewTestJobParameters(params map[string]interface{}) model.JobParameters {
	jp := model.NewJobParameters()
	for k, v := range params {
		jp.Put(k, v)
	}
	return jp
}

// NewTestStepExecution creates a JobExecution and a StepExecution attached to it.
func NewTestStepExecution(jobName, stepName string) (*model.JobExecution, *model.StepExecution) {
	je := model.NewJobExecution(jobName, model.NewJobParameters())
	se := model.NewStepExecution(model.NewID(), je, stepName)
	return je, se
}
