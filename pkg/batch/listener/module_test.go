package listener_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/listener"
	"github.com/tigerroll/chunkflow/pkg/batch/listener/logging"
	"github.com/tigerroll/chunkflow/pkg/batch/listener/notification"
)

type listenerGroups struct {
	fx.In
	Jobs   []port.JobExecutionListener  `group:"job_listeners"`
	Steps  []port.StepExecutionListener `group:"step_listeners"`
	Chunks []port.ChunkListener         `group:"chunk_listeners"`
}

func TestModule_ContributesListenerGroups(t *testing.T) {
	var groups listenerGroups
	app := fxtest.New(t,
		listener.Module,
		fx.Invoke(func(g listenerGroups) { groups = g }),
	)
	app.RequireStart().RequireStop()

	assert.Len(t, groups.Jobs, 2)
	assert.Len(t, groups.Steps, 1)
	assert.Len(t, groups.Chunks, 1)

	var kinds []string
	for _, l := range groups.Jobs {
		switch l.(type) {
		case *logging.JobListener:
			kinds = append(kinds, "logging")
		case *notification.Listener:
			kinds = append(kinds, "notification")
		}
	}
	assert.ElementsMatch(t, []string{"logging", "notification"}, kinds)
}
