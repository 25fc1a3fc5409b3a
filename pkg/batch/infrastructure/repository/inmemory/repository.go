// Package inmemory provides an in-memory implementation of the JobRepository interface.
// It stores all job-related data in maps within memory, suitable for testing and
// scenarios where persistence is not required.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// InMemoryJobRepository is an in-memory implementation of the JobRepository interface.
// Executions are stored and returned as copies, so callers never share state with the store.
type InMemoryJobRepository struct {
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	mu             sync.RWMutex
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)

// NewInMemoryJobRepository creates and initializes a new instance of InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

// SaveJobExecution stores a new JobExecution.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return exception.NewBatchErrorf("InMemoryJobRepository", "JobExecution (ID: %s) already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = cloneJobExecution(jobExecution)
	return nil
}

// UpdateJobExecution replaces a stored JobExecution if its Version matches, then increments Version.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobExecutions[jobExecution.ID]
	if !ok {
		return repository.ErrJobExecutionNotFound
	}
	if stored.Version != jobExecution.Version {
		return exception.NewOptimisticLockingFailureException(
			"InMemoryJobRepository",
			fmt.Sprintf("JobExecution (ID: %s) version %d does not match stored version %d", jobExecution.ID, jobExecution.Version, stored.Version),
			nil,
		)
	}
	jobExecution.Version++
	jobExecution.LastUpdated = time.Now()
	r.jobExecutions[jobExecution.ID] = cloneJobExecution(jobExecution)
	return nil
}

// FindJobExecutionByID returns a copy of the JobExecution with its StepExecutions.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.hydrate(stored), nil
}

// FindLatestJobExecution returns the newest execution of jobName whose parameters equal params.
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName != jobName || je.ParametersHash != hash {
			continue
		}
		if latest == nil || je.CreateTime.After(latest.CreateTime) {
			latest = je
		}
	}
	if latest == nil {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.hydrate(latest), nil
}

// FindJobExecutionsByJobName returns up to limit executions of jobName, newest first.
// A limit of 0 or less returns all executions.
func (r *InMemoryJobRepository) FindJobExecutionsByJobName(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*model.JobExecution, 0)
	for _, je := range r.jobExecutions {
		if je.JobName == jobName {
			matched = append(matched, je)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreateTime.After(matched[j].CreateTime)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]*model.JobExecution, len(matched))
	for i, je := range matched {
		result[i] = r.hydrate(je)
	}
	return result, nil
}

// SaveStepExecution stores a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return exception.NewBatchErrorf("InMemoryJobRepository", "StepExecution (ID: %s) already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = cloneStepExecution(stepExecution)
	return nil
}

// UpdateStepExecution replaces a stored StepExecution if its Version matches, then increments Version.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.stepExecutions[stepExecution.ID]
	if !ok {
		return repository.ErrStepExecutionNotFound
	}
	if stored.Version != stepExecution.Version {
		return exception.NewOptimisticLockingFailureException(
			"InMemoryJobRepository",
			fmt.Sprintf("StepExecution (ID: %s) version %d does not match stored version %d", stepExecution.ID, stepExecution.Version, stored.Version),
			nil,
		)
	}
	stepExecution.Version++
	stepExecution.LastUpdated = time.Now()
	r.stepExecutions[stepExecution.ID] = cloneStepExecution(stepExecution)
	return nil
}

// FindStepExecutionByID returns a copy of the StepExecution.
func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.stepExecutions[executionID]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	return cloneStepExecution(stored), nil
}

// Close releases resources used by the repository.
// As an in-memory repository, it holds no external resources, so this method always returns nil.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

// hydrate copies je and attaches copies of its StepExecutions ordered by start time.
// The caller holds the read lock.
func (r *InMemoryJobRepository) hydrate(je *model.JobExecution) *model.JobExecution {
	out := cloneJobExecution(je)
	steps := make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == je.ID {
			steps = append(steps, se)
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StartTime.Before(steps[j].StartTime)
	})
	for _, se := range steps {
		cp := cloneStepExecution(se)
		cp.JobExecution = out
		out.StepExecutions = append(out.StepExecutions, cp)
	}
	return out
}

func cloneJobExecution(je *model.JobExecution) *model.JobExecution {
	cp := *je
	cp.Parameters = je.Parameters.Copy()
	cp.Failures = append(model.FailureList(nil), je.Failures...)
	if je.EndTime != nil {
		end := *je.EndTime
		cp.EndTime = &end
	}
	cp.StepExecutions = make([]*model.StepExecution, 0)
	return &cp
}

func cloneStepExecution(se *model.StepExecution) *model.StepExecution {
	cp := *se
	cp.JobExecution = nil
	cp.Failures = append(model.FailureList(nil), se.Failures...)
	if se.EndTime != nil {
		end := *se.EndTime
		cp.EndTime = &end
	}
	return &cp
}
