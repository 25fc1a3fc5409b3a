package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
)

// Module contributes the logging listeners to the job_listeners, step_listeners and chunk_listeners groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"job_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"step_listeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewChunkListener,
		fx.As(new(port.ChunkListener)),
		fx.ResultTags(`group:"chunk_listeners"`),
	)),
)
