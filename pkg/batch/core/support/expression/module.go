package expression

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
)

// Module provides DefaultExpressionResolver as port.ExpressionResolver.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewDefaultExpressionResolver,
		fx.As(new(port.ExpressionResolver)),
	)),
)
