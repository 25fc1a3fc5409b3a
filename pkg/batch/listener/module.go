// Package listener aggregates the lifecycle listeners shipped with the engine.
package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/listener/logging"
	"github.com/tigerroll/chunkflow/pkg/batch/listener/notification"
)

// Value groups that collect listeners for the jobs and steps an application builds.
const (
	JobListenerGroup   = "job_listeners"
	StepListenerGroup  = "step_listeners"
	ChunkListenerGroup = "chunk_listeners"
)

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	logging.Module,
	notification.Module,
)
