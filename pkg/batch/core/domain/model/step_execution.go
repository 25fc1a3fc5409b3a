package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// StepExecution tracks one execution of a step inside a JobExecution.
type StepExecution struct {
	ID             string
	StepName       string
	JobExecution   *JobExecution `json:"-"`
	JobExecutionID string
	StartTime      time.Time
	EndTime        *time.Time
	Status         StepStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	ReadCount      int
	WriteCount     int
	SkipCount      int
	CommitCount    int
	RollbackCount  int
	LastUpdated    time.Time
	Version        int
}

// NewStepExecution creates a StepExecution in READY status and attaches it to jobExecution.
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:          id,
		StepName:    stepName,
		StartTime:   now,
		Status:      StepStatusReady,
		ExitStatus:  ExitStatusUnknown,
		Failures:    make(FailureList, 0),
		LastUpdated: now,
	}
	if jobExecution != nil {
		se.JobExecution = jobExecution
		se.JobExecutionID = jobExecution.ID
		jobExecution.AddStepExecution(se)
	}
	return se
}

func isValidStepTransition(current, next StepStatus) bool {
	switch current {
	case StepStatusReady:
		return next == StepStatusRunning || next == StepStatusFailed
	case StepStatusRunning:
		return next == StepStatusCompleted || next == StepStatusFailed
	default:
		return false
	}
}

// TransitionTo changes the status if the transition is valid.
func (se *StepExecution) TransitionTo(newStatus StepStatus) error {
	if !isValidStepTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	se.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning updates the StepExecution status to RUNNING.
func (se *StepExecution) MarkAsRunning() {
	if err := se.TransitionTo(StepStatusRunning); err != nil {
		logger.Warnf("Could not update status to RUNNING: %v", err)
		return
	}
	se.StartTime = se.LastUpdated
	se.ExitStatus = ExitStatusExecuting
}

// MarkAsCompleted updates the StepExecution status to COMPLETED.
func (se *StepExecution) MarkAsCompleted() {
	if err := se.TransitionTo(StepStatusCompleted); err != nil {
		logger.Warnf("Could not update status to COMPLETED: %v", err)
		return
	}
	se.ExitStatus = ExitStatusCompleted
	end := se.LastUpdated
	se.EndTime = &end
}

// MarkAsFailed updates the StepExecution status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	if err := se.TransitionTo(StepStatusFailed); err != nil {
		logger.Warnf("Could not update status to FAILED: %v", err)
		return
	}
	se.ExitStatus = ExitStatusFailed
	end := se.LastUpdated
	se.EndTime = &end
	se.AddFailureException(err)
}

// AddFailureException records the message of err. Duplicate messages are recorded once.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	if se.Failures.add(exception.ExtractErrorMessage(err)) {
		se.LastUpdated = time.Now()
	}
}

// DebugString returns a one-line summary of the counters.
func (se *StepExecution) DebugString() string {
	return fmt.Sprintf("StepExecution{name=%s, status=%s, read=%d, write=%d, skip=%d, commit=%d, rollback=%d}",
		se.StepName, se.Status, se.ReadCount, se.WriteCount, se.SkipCount, se.CommitCount, se.RollbackCount)
}
