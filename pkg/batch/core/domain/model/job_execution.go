package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// JobExecution is one run of a job.
type JobExecution struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	Version        int
	CreateTime     time.Time
	LastUpdated    time.Time
	StepExecutions []*StepExecution
}

// NewJobExecution creates a JobExecution in STARTING status.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	hash, err := params.Hash()
	if err != nil {
		logger.Errorf("Failed to calculate JobParameters hash: %v", err)
	}
	return &JobExecution{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: hash,
		StartTime:      now,
		Status:         BatchStatusStarting,
		ExitStatus:     ExitStatusUnknown,
		CreateTime:     now,
		LastUpdated:    now,
		Failures:       make(FailureList, 0),
		StepExecutions: make([]*StepExecution, 0),
	}
}

// isValidJobTransition checks STARTING -> STARTED -> {COMPLETED|FAILED|STOPPED}.
// A launch may also fail or be stopped before it starts.
func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped
	default:
		return false
	}
}

// TransitionTo changes the status if the transition is valid.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	je.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update status to STARTED: %v", err)
		return
	}
	je.StartTime = je.LastUpdated
	je.ExitStatus = ExitStatusExecuting
}

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.finish(BatchStatusCompleted, nil)
}

// MarkAsFailed updates the JobExecution status to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.finish(BatchStatusFailed, err)
}

// MarkAsStopped updates the JobExecution status to STOPPED and records err.
func (je *JobExecution) MarkAsStopped(err error) {
	je.finish(BatchStatusStopped, err)
}

func (je *JobExecution) finish(status JobStatus, err error) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("Could not update status to %s: %v", status, err)
		return
	}
	je.ExitStatus = status.ToExitStatus()
	end := je.LastUpdated
	je.EndTime = &end
	je.AddFailureException(err)
}

// AddFailureException records the message of err. Duplicate messages are recorded once.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	if je.Failures.add(exception.ExtractErrorMessage(err)) {
		je.LastUpdated = time.Now()
	}
}

// AddStepExecution appends a StepExecution to the JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// Duration returns the elapsed time of a finished execution, or the time since start otherwise.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime != nil {
		return je.EndTime.Sub(je.StartTime)
	}
	return time.Since(je.StartTime)
}
