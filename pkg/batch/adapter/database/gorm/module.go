package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/chunkflow/pkg/batch/core/adapter"
)

// AsDBProvider annotates a DBProvider constructor so that it joins the db_providers group.
func AsDBProvider(constructor interface{}) interface{} {
	return fx.Annotate(
		constructor,
		fx.As(new(database.DBProvider)),
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)
}

// Module exports the resolver and the transaction manager factory.
// Dialect modules (sqlite, mysql, postgres) contribute the providers.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Provide(func(r *GormDBConnectionResolver) coreAdapter.ResourceConnectionResolver { return r }),
	fx.Provide(NewTransactionManagerFactory),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
