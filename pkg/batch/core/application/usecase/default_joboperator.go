package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// DefaultJobOperator implements JobOperator over a set of registered jobs.
type DefaultJobOperator struct {
	launcher *SimpleJobLauncher
	jobs     map[string]port.Job
}

var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator creates a DefaultJobOperator.
// Job names must be unique.
func NewDefaultJobOperator(launcher *SimpleJobLauncher, jobs []port.Job) (*DefaultJobOperator, error) {
	registry := make(map[string]port.Job, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if _, dup := registry[job.JobName()]; dup {
			return nil, exception.NewConfigurationError("DefaultJobOperator", fmt.Sprintf("job '%s' is registered twice", job.JobName()))
		}
		registry[job.JobName()] = job
		logger.Debugf("Registered Job '%s'.", job.JobName())
	}
	return &DefaultJobOperator{launcher: launcher, jobs: registry}, nil
}

// Start launches the registered job jobName.
func (o *DefaultJobOperator) Start(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	job, ok := o.jobs[jobName]
	if !ok {
		return nil, exception.NewConfigurationError("DefaultJobOperator", fmt.Sprintf("no job named '%s' is registered", jobName))
	}
	return o.launcher.Launch(ctx, job, params)
}

// Stop cancels the context of a running execution. The step stops at the next chunk boundary
// and the execution ends as STOPPED.
func (o *DefaultJobOperator) Stop(ctx context.Context, executionID string) error {
	cancel, ok := o.launcher.GetCancelFunc(executionID)
	if !ok {
		return exception.NewBatchErrorf("DefaultJobOperator", "JobExecution (ID: %s) is not running", executionID)
	}
	logger.Infof("Stop requested for JobExecution (ID: %s).", executionID)
	cancel()
	return nil
}

// JobNames returns the registered job names, sorted.
func (o *DefaultJobOperator) JobNames() []string {
	names := make([]string, 0, len(o.jobs))
	for name := range o.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
