// Package database defines the connection abstractions implemented by the database adapters.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/chunkflow/pkg/batch/core/adapter"
)

// DBConnection represents an open, named database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()

	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a database connection instance by name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection resolves a database connection instance by name.
	// The returned connection is valid; it is re-established if necessary.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and re-establishes the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres").
	Type() string
}

// DBProviderGroup is the Fx value group all DBProvider implementations join.
const DBProviderGroup = "db_providers"
