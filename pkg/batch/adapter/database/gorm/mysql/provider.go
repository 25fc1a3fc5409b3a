// Package mysql registers the MySQL dialect with the GORM adapter and provides its DBProvider.
package mysql

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
)

// DBType is the datasource type served by this package.
const DBType = "mysql"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" {
			return nil, errors.New("MySQL host cannot be empty")
		}
		return mysql.Open(dbconfig.MySQLDSN(cfg)), nil
	})
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) *gormadapter.BaseProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
