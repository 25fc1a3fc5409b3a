package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// ErrStepExecutionNotFound is returned when no StepExecution matches a lookup.
var ErrStepExecutionNotFound = errors.New("step execution not found")

// StepExecution defines persistence operations for StepExecution.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// UpdateStepExecution follows the same optimistic locking rules as UpdateJobExecution.
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
}
