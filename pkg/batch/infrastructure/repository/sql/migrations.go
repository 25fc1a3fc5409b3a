package sql

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	"github.com/tigerroll/chunkflow/pkg/batch/component/migration"
)

// MigrationsTable tracks the applied framework migrations.
const MigrationsTable = "batch_framework_migrations"

//go:embed migrations
var migrationFS embed.FS

// MigrationsFS returns the embedded framework migrations.
// Each supported database type has its own directory, see MigrationsPath.
func MigrationsFS() fs.FS {
	return migrationFS
}

// MigrationsPath returns the directory in MigrationsFS holding the migrations for dbType.
func MigrationsPath(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql", "postgres":
		return "migrations/" + dbType, nil
	default:
		return "", fmt.Errorf("no job repository migrations for database type: %s", dbType)
	}
}

// Migrate applies the framework migrations to the datasource dbName.
func Migrate(ctx context.Context, resolver database.DBConnectionResolver, dbName string) error {
	conn, err := resolver.ResolveDBConnection(ctx, dbName)
	if err != nil {
		return err
	}
	path, err := MigrationsPath(conn.Type())
	if err != nil {
		return err
	}
	return migration.NewMigrator(conn).Up(ctx, MigrationsFS(), path, MigrationsTable)
}
