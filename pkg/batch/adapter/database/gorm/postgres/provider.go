// Package postgres registers the PostgreSQL dialect with the GORM adapter and provides its DBProvider.
package postgres

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
)

// DBType is the datasource type served by this package.
const DBType = "postgres"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" {
			return nil, errors.New("PostgreSQL host cannot be empty")
		}
		return postgres.Open(dbconfig.PostgresDSN(cfg)), nil
	})
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) *gormadapter.BaseProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
