// Package migration applies embedded golang-migrate migrations to a datasource.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Migrator runs migrations against one datasource.
type Migrator struct {
	dbConn database.DBConnection
	dbType string
}

// NewMigrator creates a Migrator for dbConn.
func NewMigrator(dbConn database.DBConnection) *Migrator {
	return &Migrator{
		dbConn: dbConn,
		dbType: dbConn.Type(),
	}
}

// session is a migrate instance plus the pool it owns, if any.
type session struct {
	m     *migrate.Migrate
	src   source.Driver
	owned bool
}

func (s *session) close() {
	if s.owned {
		// Closes the source, the driver and the dedicated pool.
		s.m.Close()
		return
	}
	// The shared pool must stay open; only the source is released.
	_ = s.src.Close()
}

// open prepares a migrate instance.
// SQLite runs on the shared pool so that in-memory databases see the schema.
// Server databases get a dedicated pool, which golang-migrate closes with the instance.
func (mg *Migrator) open(ctx context.Context, migrationFS fs.FS, path string, tableName string) (*session, error) {
	src, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	var (
		sqlDB *sql.DB
		owned bool
	)
	switch mg.dbType {
	case "sqlite":
		sqlDB, err = mg.dbConn.GetSQLDB()
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
	case "postgres", "mysql":
		conn, err := sqldb.Open(ctx, mg.dbConn.Name()+"-migration", mg.dbConn.Config())
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		sqlDB, owned = conn.DB(), true
	default:
		_ = src.Close()
		return nil, fmt.Errorf("unsupported database type for migration: %s", mg.dbType)
	}

	driver, err := mg.databaseDriver(sqlDB, tableName)
	if err != nil {
		_ = src.Close()
		if owned {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, mg.dbType, driver)
	if err != nil {
		_ = src.Close()
		if owned {
			_ = driver.Close()
		}
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &session{m: m, src: src, owned: owned}, nil
}

func (mg *Migrator) databaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch mg.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", mg.dbType)
	}
}

func (mg *Migrator) run(ctx context.Context, migrationFS fs.FS, path string, tableName string, command string) error {
	logger.Infof("Executing migration '%s' on '%s' (Path: %s, Table: %s)", command, mg.dbConn.Name(), path, tableName)

	s, err := mg.open(ctx, migrationFS, path, tableName)
	if err != nil {
		return err
	}
	defer s.close()

	var migrateErr error
	switch command {
	case "up":
		migrateErr = s.m.Up()
	case "down":
		migrateErr = s.m.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, mg.dbType, path, migrateErr)
	}
	if errors.Is(migrateErr, migrate.ErrNoChange) {
		logger.Debugf("Migration '%s' on '%s': no change.", command, mg.dbConn.Name())
		return nil
	}
	logger.Infof("Migration '%s' on '%s' completed successfully.", command, mg.dbConn.Name())
	return nil
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (mg *Migrator) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return mg.run(ctx, migrationFS, path, tableName, "up")
}

// Down reverts all applied migrations.
func (mg *Migrator) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return mg.run(ctx, migrationFS, path, tableName, "down")
}

// Version returns the applied version and whether it is dirty.
// A schema without migrations reports version 0.
func (mg *Migrator) Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error) {
	s, err := mg.open(ctx, migrationFS, path, tableName)
	if err != nil {
		return 0, false, err
	}
	defer s.close()

	version, dirty, err := s.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
