package storage

import (
	"context"

	"go.uber.org/fx"
)

// AsProvider annotates a StorageProvider constructor so that it joins the storage_providers group.
func AsProvider(constructor interface{}) interface{} {
	return fx.Annotate(
		constructor,
		fx.As(new(StorageProvider)),
		fx.ResultTags(`group:"`+ProviderGroup+`"`),
	)
}

// Module provides the StorageConnectionResolver. Adapter modules (local, gcs) contribute the providers.
var Module = fx.Options(
	fx.Provide(NewConnectionResolver),
	fx.Provide(func(r *ConnectionResolver) StorageConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
