// Package trigger launches jobs on a cron schedule or when an input file changes.
package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/usecase"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Scheduler starts a job on every tick of a standard 5-field cron spec.
// A tick that fires while the previous launch is still running is skipped.
type Scheduler struct {
	operator usecase.JobOperator
	jobName  string
	spec     string

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler creates a Scheduler. The spec is validated here.
func NewScheduler(operator usecase.JobOperator, jobName string, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Scheduler{operator: operator, jobName: jobName, spec: spec}, nil
}

// Start schedules the job. Launches run with ctx and stop once ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler for job '%s' is already started", s.jobName)
	}

	cl := cronLogger{}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(s.spec, func() { s.launch(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule job '%s': %w", s.jobName, err)
	}
	c.Start()
	s.cron = c
	logger.Infof("Scheduler: job '%s' scheduled with '%s'.", s.jobName, s.spec)
	return nil
}

// Stop removes the schedule and waits for a running launch to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		logger.Infof("Scheduler: job '%s' unscheduled.", s.jobName)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) launch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	logger.Infof("Scheduler: launching job '%s'.", s.jobName)
	execution, err := s.operator.Start(ctx, s.jobName, model.NewJobParameters())
	if err != nil {
		logger.Errorf("Scheduler: failed to launch job '%s': %v", s.jobName, err)
		return
	}
	logger.Infof("Scheduler: job '%s' (Execution ID: %s) finished with status %s.", s.jobName, execution.ID, execution.Status)
}

// cronLogger routes robfig/cron messages through the logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
