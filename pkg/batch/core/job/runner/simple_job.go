// Package runner provides SimpleJob, a job made of an ordered list of steps.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// SimpleJob runs its steps in order and stops at the first failing step.
//
// The JobExecution becomes COMPLETED only if every step completes. A failing step makes it
// FAILED, or STOPPED when the failure is a context cancellation, and the remaining steps
// are not run. Listeners are called synchronously; AfterJob sees the final status.
type SimpleJob struct {
	name           string
	steps          []port.Step
	listeners      []port.JobExecutionListener
	incrementer    port.JobParametersIncrementer
	jobRepository  repository.JobRepository
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

var _ port.Job = (*SimpleJob)(nil)

// JobOption configures a SimpleJob.
type JobOption func(*SimpleJob)

// WithJobListeners registers job execution listeners, called in registration order.
func WithJobListeners(listeners ...port.JobExecutionListener) JobOption {
	return func(j *SimpleJob) {
		for _, l := range listeners {
			if l != nil {
				j.listeners = append(j.listeners, l)
			}
		}
	}
}

// WithIncrementer sets the incrementer the launcher applies before each launch.
func WithIncrementer(incrementer port.JobParametersIncrementer) JobOption {
	return func(j *SimpleJob) {
		j.incrementer = incrementer
	}
}

// WithJobMetricRecorder sets the metric recorder. nil keeps the no-op recorder.
func WithJobMetricRecorder(recorder metrics.MetricRecorder) JobOption {
	return func(j *SimpleJob) {
		if recorder != nil {
			j.metricRecorder = recorder
		}
	}
}

// WithJobTracer sets the tracer. nil keeps the no-op tracer.
func WithJobTracer(tracer metrics.Tracer) JobOption {
	return func(j *SimpleJob) {
		if tracer != nil {
			j.tracer = tracer
		}
	}
}

// NewSimpleJob creates a SimpleJob.
//
// name: The job name.
// jobRepository: The repository execution state is persisted to.
// steps: The steps, in execution order. Step names must be unique.
// Returns: The job, or an exception.ErrConfiguration error.
func NewSimpleJob(name string, jobRepository repository.JobRepository, steps []port.Step, opts ...JobOption) (*SimpleJob, error) {
	if name == "" {
		return nil, exception.NewConfigurationError("SimpleJob", "job name must not be empty")
	}
	if jobRepository == nil {
		return nil, exception.NewConfigurationError(name, "job repository is required")
	}
	if len(steps) == 0 {
		return nil, exception.NewConfigurationError(name, "a job needs at least one step")
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s == nil {
			return nil, exception.NewConfigurationError(name, "step must not be nil")
		}
		if _, dup := seen[s.StepName()]; dup {
			return nil, exception.NewConfigurationError(name, fmt.Sprintf("duplicate step name '%s'", s.StepName()))
		}
		seen[s.StepName()] = struct{}{}
	}

	j := &SimpleJob{
		name:           name,
		steps:          steps,
		jobRepository:  jobRepository,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Incrementer returns the configured incrementer, or nil.
func (j *SimpleJob) Incrementer() port.JobParametersIncrementer {
	return j.incrementer
}

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step {
	return j.steps
}

// Run executes the steps in order.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error {
	ctx, endSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer endSpan()

	jobExecution.MarkAsStarted()
	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	logger.Infof("Job '%s' started (Execution ID: %s). Parameters: %s", j.name, jobExecution.ID, jobParameters.String())

	var runErr error
	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		runErr = exception.NewJobRepositoryError(j.name, "failed to persist started job execution", err)
	} else {
		for _, l := range j.listeners {
			l.BeforeJob(ctx, jobExecution)
		}
		runErr = j.runSteps(ctx, jobExecution)
	}

	switch {
	case runErr == nil:
		jobExecution.MarkAsCompleted()
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		jobExecution.MarkAsStopped(runErr)
	default:
		jobExecution.MarkAsFailed(runErr)
	}
	if runErr != nil {
		j.tracer.RecordError(ctx, j.name, runErr)
	}

	for _, l := range j.listeners {
		l.AfterJob(ctx, jobExecution)
	}
	j.metricRecorder.RecordJobEnd(ctx, jobExecution)

	if err := j.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); err != nil {
		logger.Errorf("Job '%s': failed to persist final job execution (ID: %s): %v", j.name, jobExecution.ID, err)
		persistErr := exception.NewJobRepositoryError(j.name, "failed to persist final job execution", err)
		if runErr == nil {
			runErr = persistErr
		} else {
			runErr = multierror.Append(runErr, persistErr)
		}
	}

	logger.Infof("Job '%s' finished with status %s in %s.", j.name, jobExecution.Status, jobExecution.Duration())
	return runErr
}

func (j *SimpleJob) runSteps(ctx context.Context, jobExecution *model.JobExecution) error {
	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			return exception.NewBatchError(j.name, fmt.Sprintf("job interrupted before step '%s'", step.StepName()), err)
		}

		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, step.StepName())
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			return exception.NewJobRepositoryError(j.name, fmt.Sprintf("failed to save step execution for '%s'", step.StepName()), err)
		}

		logger.Debugf("Job '%s': executing step '%s' (StepExecution ID: %s).", j.name, step.StepName(), stepExecution.ID)
		if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
			logger.Errorf("Job '%s': step '%s' failed, remaining steps are skipped.", j.name, step.StepName())
			return err
		}
	}
	return nil
}
