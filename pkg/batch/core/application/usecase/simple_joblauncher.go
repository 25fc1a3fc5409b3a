package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/serialization"
)

// SimpleJobLauncher implements JobLauncher for synchronous, in-process execution.
type SimpleJobLauncher struct {
	jobRepository           repository.JobRepository
	enforceUniqueParameters bool
	// activeJobCancellations holds the cancel functions for running jobs.
	activeJobCancellations map[string]context.CancelFunc
	mu                     sync.Mutex
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
//
// repo: The repository executions are saved to.
// enforceUniqueParameters: When true, a launch whose parameters match a COMPLETED execution is refused.
func NewSimpleJobLauncher(repo repository.JobRepository, enforceUniqueParameters bool) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository:           repo,
		enforceUniqueParameters: enforceUniqueParameters,
		activeJobCancellations:  make(map[string]context.CancelFunc),
	}
}

// NewSimpleJobLauncherFromConfig creates a SimpleJobLauncher configured by the batch section.
func NewSimpleJobLauncherFromConfig(repo repository.JobRepository, cfg *config.BatchConfig) *SimpleJobLauncher {
	return NewSimpleJobLauncher(repo, cfg.EnforceUniqueParameters)
}

// RegisterCancelFunc registers the cancel function for a running job execution.
func (l *SimpleJobLauncher) RegisterCancelFunc(executionID string, cancelFunc context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancelFunc
	logger.Debugf("Registered CancelFunc for JobExecution (ID: %s).", executionID)
}

// UnregisterCancelFunc unregisters the cancel function for a running job execution.
func (l *SimpleJobLauncher) UnregisterCancelFunc(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.activeJobCancellations[executionID]; ok {
		delete(l.activeJobCancellations, executionID)
		logger.Debugf("Unregistered CancelFunc for JobExecution (ID: %s).", executionID)
	}
}

// GetCancelFunc retrieves the cancel function for the specified JobExecution ID.
func (l *SimpleJobLauncher) GetCancelFunc(executionID string) (context.CancelFunc, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cancelFunc, ok := l.activeJobCancellations[executionID]
	return cancelFunc, ok
}

// Launch prepares the parameters of job, creates its JobExecution and runs it.
//
// The job's incrementer, if any, is applied to the parameters of the latest execution
// of the job and the caller's parameters are laid over the result, so caller-supplied
// keys win. With unique parameters enforced, a match with a COMPLETED execution
// returns an exception.ErrDuplicateExecution error before anything is created.
//
// A failed job is returned with a nil error and its failures on the execution.
// When execution state could not be persisted, the execution is returned together
// with an exception.ErrJobRepository error.
func (l *SimpleJobLauncher) Launch(ctx context.Context, job port.Job, jobParameters model.JobParameters) (*model.JobExecution, error) {
	const op = "SimpleJobLauncher.Launch"
	if job == nil {
		return nil, exception.NewConfigurationError(op, "job must not be nil")
	}
	jobName := job.JobName()

	params, err := l.nextParameters(ctx, job, jobParameters)
	if err != nil {
		return nil, err
	}
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, params.String())

	if l.enforceUniqueParameters {
		latest, err := l.jobRepository.FindLatestJobExecution(ctx, jobName, params)
		if err != nil && !errors.Is(err, repository.ErrJobExecutionNotFound) {
			return nil, exception.NewBatchError(op, "failed to look up previous executions", err)
		}
		if latest != nil && latest.Status == model.BatchStatusCompleted {
			return nil, exception.NewDuplicateExecutionError(jobName, params.String())
		}
	}

	jobExecution := model.NewJobExecution(jobName, params)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError(op, "failed to save job execution", err)
	}
	logger.Debugf("Created JobExecution (ID: %s) for Job '%s'.", jobExecution.ID, jobName)

	runCtx, cancel := context.WithCancel(ctx)
	l.RegisterCancelFunc(jobExecution.ID, cancel)
	defer func() {
		l.UnregisterCancelFunc(jobExecution.ID)
		cancel()
	}()

	if err := job.Run(runCtx, jobExecution, params); err != nil {
		logger.Errorf("Job '%s' (Execution ID: %s) ended with an error: %v", jobName, jobExecution.ID, err)
		// Step failures are recorded on the execution; lost execution state is not.
		if errors.Is(err, exception.ErrJobRepository) {
			return jobExecution, err
		}
	}
	return jobExecution, nil
}

// nextParameters applies the job's incrementer and then the caller's parameters.
func (l *SimpleJobLauncher) nextParameters(ctx context.Context, job port.Job, jobParameters model.JobParameters) (model.JobParameters, error) {
	incrementer := job.Incrementer()
	if incrementer == nil {
		return jobParameters.Copy(), nil
	}

	previous := model.NewJobParameters()
	last, err := l.jobRepository.FindJobExecutionsByJobName(ctx, job.JobName(), 1)
	if err != nil && !errors.Is(err, repository.ErrJobExecutionNotFound) {
		return model.JobParameters{}, exception.NewBatchError("SimpleJobLauncher.Launch", "failed to look up the latest execution", err)
	}
	if len(last) > 0 {
		previous = withoutMaskedValues(last[0].Parameters)
	}

	next := incrementer.GetNext(previous)
	for k, v := range jobParameters.Params {
		next.Put(k, v)
	}
	return next, nil
}

// withoutMaskedValues drops sensitive keys so that a masked placeholder never becomes a real value.
func withoutMaskedValues(params model.JobParameters) model.JobParameters {
	clean := params.Copy()
	for _, key := range config.GetMaskedParameterKeys() {
		delete(clean.Params, key)
	}
	for key, value := range clean.Params {
		if value == serialization.MaskedValue {
			delete(clean.Params, key)
		}
	}
	return clean
}
