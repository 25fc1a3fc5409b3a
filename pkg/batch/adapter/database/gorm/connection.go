package gorm

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
)

// GormDBAdapter implements database.DBConnection over a *gorm.DB.
type GormDBAdapter struct {
	db    *gorm.DB
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

var _ database.DBConnection = (*GormDBAdapter)(nil)

// NewGormDBAdapter creates a new GormDBAdapter.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return &GormDBAdapter{
		db:    db,
		sqlDB: sqlDB,
		cfg:   cfg,
		name:  name,
	}, nil
}

// GormDB returns the underlying *gorm.DB instance.
func (a *GormDBAdapter) GormDB() *gorm.DB {
	return a.db
}

// Close closes the underlying connection pool.
func (a *GormDBAdapter) Close() error {
	return a.sqlDB.Close()
}

// Type returns the database type.
func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

// Name returns the datasource name.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// Config returns the datasource configuration.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB returns the underlying *sql.DB.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.sqlDB, nil
}

// GormDBFrom extracts the *gorm.DB of a connection opened by this package.
func GormDBFrom(conn database.DBConnection) (*gorm.DB, error) {
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("connection '%s' is not a GORM connection (%T)", conn.Name(), conn)
	}
	return adapter.db, nil
}
