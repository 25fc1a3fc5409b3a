// Package app assembles the importpeople application with go.uber.org/fx.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/usecase"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/support/expression"
	"github.com/tigerroll/chunkflow/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository"
	batchlistener "github.com/tigerroll/chunkflow/pkg/batch/listener"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"

	"github.com/tigerroll/chunkflow/internal/person"
)

// Options returns every module of the application.
//
// embeddedConfig: The raw application.yaml.
// envFilePath: The .env file to load; empty loads ".env" if present.
func Options(embeddedConfig config.EmbeddedConfig, envFilePath string) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,

		// Database providers by type; the resolver picks one per datasource.
		gormadapter.Module,
		sqlite.Module,
		mysql.Module,
		postgres.Module,

		storageAdapter.Module,
		local.Module,
		gcs.Module,

		metrics.Module,
		repository.Module,
		expression.Module,
		incrementer.Module,
		batchlistener.Module,
		usecase.Module,

		person.Module,
	)
}

// Runtime is what the commands work with once the application has started.
type Runtime struct {
	fx.In
	Cfg        *config.Config
	Operator   usecase.JobOperator
	Explorer   usecase.JobExplorer
	DBResolver database.DBConnectionResolver
}

// Run starts the application, calls fn and stops the application again.
// Start and stop hooks are bounded by fx's default timeouts.
func Run(ctx context.Context, embeddedConfig config.EmbeddedConfig, envFilePath string, fn func(ctx context.Context, rt Runtime) error) (err error) {
	var rt Runtime
	application := fx.New(
		Options(embeddedConfig, envFilePath),
		fx.Invoke(func(p Runtime) { rt = p }),
	)
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(ctx, application.StartTimeout())
	defer cancelStart()
	if err := application.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), application.StopTimeout())
		defer cancelStop()
		if stopErr := application.Stop(stopCtx); stopErr != nil {
			logger.Errorf("Failed to stop application: %v", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()

	return fn(ctx, rt)
}
