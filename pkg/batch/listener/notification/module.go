package notification

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
)

// Module provides the LogNotifier and contributes the Listener to the job_listeners group.
// Applications replace the notifier with fx.Decorate.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLogNotifier,
		fx.As(new(Notifier)),
	)),
	fx.Provide(fx.Annotate(
		NewListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"job_listeners"`),
	)),
)
