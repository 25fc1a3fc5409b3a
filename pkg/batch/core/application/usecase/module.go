package usecase

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
)

// OperatorParams collects the jobs contributed to the "jobs" group.
type OperatorParams struct {
	fx.In
	Launcher *SimpleJobLauncher
	Jobs     []port.Job `group:"jobs"`
}

func newOperator(p OperatorParams) (*DefaultJobOperator, error) {
	return NewDefaultJobOperator(p.Launcher, p.Jobs)
}

// Module is the Fx module for JobLauncher, JobOperator, and JobExplorer.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
	fx.Provide(NewSimpleJobLauncherFromConfig),
	fx.Provide(func(launcher *SimpleJobLauncher) JobLauncher { return launcher }),
	fx.Provide(fx.Annotate(
		newOperator,
		fx.As(new(JobOperator)),
	)),
)
