// Package usecase provides the application services around jobs:
// launching, operating running executions and exploring past ones.
package usecase

import (
	"context"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// JobLauncher launches a job with parameters.
type JobLauncher interface {
	// Launch runs job synchronously and returns its finished JobExecution.
	// A failed step is reported through the execution status, not the error.
	// The error reports a launch failure (duplicate parameters, repository errors).
	Launch(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error)
}

// JobOperator operates registered jobs by name.
type JobOperator interface {
	// Start launches the registered job jobName.
	Start(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
	// Stop requests a running execution to stop at the next chunk boundary.
	Stop(ctx context.Context, executionID string) error
	// JobNames returns the registered job names, sorted.
	JobNames() []string
}

// JobExplorer queries execution metadata.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution by its ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)
	// GetJobExecutions retrieves up to limit executions of jobName, newest first.
	GetJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error)
	// GetLastJobExecution retrieves the newest execution of jobName, or nil if there is none.
	GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error)
}
