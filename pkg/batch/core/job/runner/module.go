package runner

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
)

// AsJob annotates a job constructor so that its result joins the "jobs" group
// consumed by the job operator.
func AsJob(constructor interface{}) interface{} {
	return fx.Annotate(
		constructor,
		fx.As(new(port.Job)),
		fx.ResultTags(`group:"jobs"`),
	)
}
