// Package repository selects the JobRepository implementation named by chunkflow.repository.type.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	jobRepo "github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Repository types accepted by chunkflow.repository.type.
const (
	TypeInMemory = "inmemory"
	TypeSQL      = "sql"
)

// Params defines the dependencies of NewJobRepository.
type Params struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Cfg        *config.Config
	DBResolver database.DBConnectionResolver `optional:"true"`
}

// NewJobRepository creates the configured JobRepository.
// For the sql type with auto_migrate set, the schema is migrated when the application starts.
func NewJobRepository(p Params) (jobRepo.JobRepository, error) {
	repoCfg := p.Cfg.Chunkflow.Repository
	switch repoCfg.Type {
	case "", TypeInMemory:
		logger.Infof("Using in-memory job repository.")
		return inmemory.NewInMemoryJobRepository(), nil
	case TypeSQL:
		if p.DBResolver == nil {
			return nil, exception.NewConfigurationError("repository", "the sql job repository needs a database adapter module")
		}
		if repoCfg.AutoMigrate {
			p.Lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					logger.Infof("Migrating job repository schema on datasource '%s'.", repoCfg.Datasource)
					return sqlrepo.Migrate(ctx, p.DBResolver, repoCfg.Datasource)
				},
			})
		}
		logger.Infof("Using SQL job repository on datasource '%s'.", repoCfg.Datasource)
		return sqlrepo.NewSQLJobRepository(p.DBResolver, repoCfg.Datasource), nil
	default:
		return nil, exception.NewConfigurationError("repository", fmt.Sprintf("unknown repository type '%s'", repoCfg.Type))
	}
}

// Module provides the configured JobRepository and closes it on stop.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
	fx.Invoke(func(lc fx.Lifecycle, repo jobRepo.JobRepository) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return repo.Close()
			},
		})
	}),
)
