package usecase

import (
	"context"
	"errors"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// SimpleJobExplorer implements JobExplorer on top of a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new SimpleJobExplorer.
func NewSimpleJobExplorer(repo repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{jobRepository: repo}
}

// GetJobExecution retrieves a JobExecution by its ID.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	je, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchErrorf("SimpleJobExplorer", "failed to get JobExecution (ID: %s)", executionID, err)
	}
	return je, nil
}

// GetJobExecutions retrieves up to limit executions of jobName, newest first.
func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	executions, err := e.jobRepository.FindJobExecutionsByJobName(ctx, jobName, limit)
	if err != nil {
		if errors.Is(err, repository.ErrJobExecutionNotFound) {
			return []*model.JobExecution{}, nil
		}
		return nil, exception.NewBatchErrorf("SimpleJobExplorer", "failed to list executions of Job '%s'", jobName, err)
	}
	return executions, nil
}

// GetLastJobExecution retrieves the newest execution of jobName, or nil if there is none.
func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	executions, err := e.GetJobExecutions(ctx, jobName, 1)
	if err != nil {
		return nil, err
	}
	if len(executions) == 0 {
		return nil, nil
	}
	return executions[0], nil
}
