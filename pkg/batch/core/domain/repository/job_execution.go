package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// ErrJobExecutionNotFound is returned when no JobExecution matches a lookup.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// JobExecution defines persistence operations for JobExecution.
type JobExecution interface {
	// SaveJobExecution stores a new JobExecution.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// UpdateJobExecution stores the current state of a JobExecution.
	// Implementations increment Version and fail with exception.ErrOptimisticLockingFailure
	// when the stored version no longer matches.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindJobExecutionByID returns the JobExecution with its StepExecutions,
	// or ErrJobExecutionNotFound.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)

	// FindLatestJobExecution returns the most recently created JobExecution of jobName whose
	// parameters equal params, or ErrJobExecutionNotFound.
	FindLatestJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)

	// FindJobExecutionsByJobName returns up to limit executions of jobName, newest first.
	// A limit of 0 or less returns all of them.
	FindJobExecutionsByJobName(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error)
}
