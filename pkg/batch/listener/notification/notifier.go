// Package notification reports finished job executions through a Notifier.
package notification

import (
	"context"
	"fmt"

	port "github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Notifier delivers job completion notices.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution)
}

// LogNotifier writes the notice to the log.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyJobCompletion logs a one-line summary; unsuccessful runs are logged as warnings.
func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	message := Summary(execution)
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("%s", message)
	} else {
		logger.Warnf("%s", message)
	}
}

var _ Notifier = (*LogNotifier)(nil)

// Summary formats the notice for execution.
func Summary(execution *model.JobExecution) string {
	var read, written, skipped int
	for _, se := range execution.StepExecutions {
		read += se.ReadCount
		written += se.WriteCount
		skipped += se.SkipCount
	}
	return fmt.Sprintf(
		"Job Notification: Job '%s' (ID: %s) finished with Status: %s, ExitStatus: %s. Duration: %s, Read: %d, Written: %d, Skipped: %d, Failures: %d",
		execution.JobName,
		execution.ID,
		execution.Status,
		execution.ExitStatus,
		execution.Duration(),
		read, written, skipped,
		len(execution.Failures),
	)
}

// Listener calls a Notifier after every job.
type Listener struct {
	notifier Notifier
}

var (
	_ port.JobExecutionListener = (*Listener)(nil)
	_ port.NotificationListener = (*Listener)(nil)
)

// NewListener creates a Listener.
func NewListener(notifier Notifier) *Listener {
	return &Listener{notifier: notifier}
}

// BeforeJob does nothing.
func (l *Listener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob notifies the completion.
func (l *Listener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.OnJobCompletion(ctx, jobExecution)
}

// OnJobCompletion implements port.NotificationListener.
func (l *Listener) OnJobCompletion(ctx context.Context, jobExecution *model.JobExecution) {
	l.notifier.NotifyJobCompletion(ctx, jobExecution)
}
