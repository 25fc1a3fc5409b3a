// Package sqldb implements the database adapter directly on database/sql.
// It serves sqlite3, mysql, postgres and sqlserver datasources whose driver is "sql".
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// BindStyle is the placeholder syntax of a driver.
type BindStyle int

const (
	// BindQuestion renders "?" (sqlite3, mysql).
	BindQuestion BindStyle = iota
	// BindDollar renders "$1", "$2", ... (postgres).
	BindDollar
	// BindAtP renders "@p1", "@p2", ... (sqlserver).
	BindAtP
)

// Placeholder returns the placeholder of the 1-based position-th argument.
func (s BindStyle) Placeholder(position int) string {
	switch s {
	case BindDollar:
		return "$" + strconv.Itoa(position)
	case BindAtP:
		return "@p" + strconv.Itoa(position)
	default:
		return "?"
	}
}

type driverSpec struct {
	name  string
	dsn   func(dbconfig.DatabaseConfig) string
	style BindStyle
}

var drivers = map[string]driverSpec{
	"sqlite":    {name: "sqlite3", dsn: dbconfig.SQLiteDSN, style: BindQuestion},
	"mysql":     {name: "mysql", dsn: dbconfig.MySQLDSN, style: BindQuestion},
	"postgres":  {name: "postgres", dsn: dbconfig.PostgresDSN, style: BindDollar},
	"sqlserver": {name: "sqlserver", dsn: dbconfig.SQLServerDSN, style: BindAtP},
}

// BindStyleFor returns the placeholder syntax of the database type.
func BindStyleFor(dbType string) (BindStyle, error) {
	spec, ok := drivers[dbType]
	if !ok {
		return BindQuestion, fmt.Errorf("unsupported database type for database/sql: %s", dbType)
	}
	return spec.style, nil
}

// Connection implements database.DBConnection over a *sql.DB.
type Connection struct {
	db    *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
	style BindStyle
}

var _ database.DBConnection = (*Connection)(nil)

// Open opens and pings the datasource described by cfg.
func Open(ctx context.Context, name string, cfg dbconfig.DatabaseConfig) (*Connection, error) {
	spec, ok := drivers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type for database/sql: %s", cfg.Type)
	}

	db, err := sql.Open(spec.name, spec.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("error opening %s database '%s': %w", cfg.Type, name, err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to %s database '%s' (ping failed): %w", cfg.Type, name, err)
	}

	logger.Infof("Established new database/sql connection: %s (%s)", name, spec.name)
	return NewConnection(db, cfg, name, spec.style), nil
}

// NewConnection wraps an already opened *sql.DB.
func NewConnection(db *sql.DB, cfg dbconfig.DatabaseConfig, name string, style BindStyle) *Connection {
	return &Connection{db: db, cfg: cfg, name: name, style: style}
}

// DB returns the underlying *sql.DB.
func (c *Connection) DB() *sql.DB { return c.db }

// BindStyle returns the placeholder syntax of the connection.
func (c *Connection) BindStyle() BindStyle { return c.style }

// Close closes the connection pool.
func (c *Connection) Close() error { return c.db.Close() }

// Type returns the database type.
func (c *Connection) Type() string { return c.cfg.Type }

// Name returns the datasource name.
func (c *Connection) Name() string { return c.name }

// Config returns the datasource configuration.
func (c *Connection) Config() dbconfig.DatabaseConfig { return c.cfg }

// GetSQLDB returns the underlying *sql.DB.
func (c *Connection) GetSQLDB() (*sql.DB, error) { return c.db, nil }
