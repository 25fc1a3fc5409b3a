package person

import (
	"embed"
	"fmt"
	"io/fs"
)

// SampleResource is the name of the bundled input file.
const SampleResource = "sample-data.csv"

// MigrationsTable tracks the applied application migrations.
const MigrationsTable = "importpeople_migrations"

//go:embed resources/sample-data.csv
var resourceFS embed.FS

//go:embed migrations
var migrationFS embed.FS

// Resources returns the bundled input files.
func Resources() fs.FS {
	sub, err := fs.Sub(resourceFS, "resources")
	if err != nil {
		// The directory is embedded; Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}

// MigrationsFS returns the embedded people table migrations.
func MigrationsFS() fs.FS {
	return migrationFS
}

// MigrationsPath returns the directory in MigrationsFS holding the migrations for dbType.
func MigrationsPath(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql", "postgres":
		return "migrations/" + dbType, nil
	default:
		return "", fmt.Errorf("no people migrations for database type: %s", dbType)
	}
}
