// Package config holds the datasource settings shared by the database adapters.
package config

import (
	"fmt"

	coreconfig "github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/configbinder"
)

// Driver names select the client library a datasource is opened with.
const (
	// DriverGorm opens the datasource through GORM (default).
	DriverGorm = "gorm"
	// DriverSQL opens the datasource through database/sql.
	DriverSQL = "sql"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`     // Database type ("sqlite", "mysql", "postgres", "sqlserver", "mongodb").
	Driver   string     `yaml:"driver"`   // Client library ("gorm" or "sql"). Ignored for mongodb.
	Host     string     `yaml:"host"`     // Database host address.
	Port     int        `yaml:"port"`     // Database port number.
	Database string     `yaml:"database"` // Database name, or the file path for sqlite.
	User     string     `yaml:"user"`     // Database user.
	Password string     `yaml:"password"` // Database password.
	Sslmode  string     `yaml:"sslmode"`  // SSL mode for the connection.
	URI      string     `yaml:"uri"`      // Full connection URI; takes precedence over host/port for mongodb.
	Pool     PoolConfig `yaml:"pool"`     // Connection pool settings.
}

// DriverOrDefault returns Driver, or DriverGorm when unset.
func (c DatabaseConfig) DriverOrDefault() string {
	if c.Driver == "" {
		return DriverGorm
	}
	return c.Driver
}

// Lookup decodes the datasource name from chunkflow.datasources.
func Lookup(cfg *coreconfig.Config, name string) (DatabaseConfig, error) {
	var dbConfig DatabaseConfig
	raw, ok := cfg.Chunkflow.Datasources[name]
	if !ok {
		return dbConfig, fmt.Errorf("datasource '%s' not found in chunkflow.datasources", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return dbConfig, fmt.Errorf("datasource '%s' has invalid format: expected a map but got %T", name, raw)
	}
	if err := configbinder.BindProperties(props, &dbConfig); err != nil {
		return dbConfig, fmt.Errorf("failed to decode datasource '%s': %w", name, err)
	}
	if dbConfig.Type == "" {
		return dbConfig, fmt.Errorf("datasource '%s' has no type", name)
	}
	return dbConfig, nil
}
