package person

import (
	"context"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// CompletionListener logs the content of the sink after a successful run.
type CompletionListener struct {
	finder Finder
}

var _ port.JobExecutionListener = (*CompletionListener)(nil)

// NewCompletionListener creates a CompletionListener reading through finder.
func NewCompletionListener(finder Finder) *CompletionListener {
	return &CompletionListener{finder: finder}
}

// BeforeJob does nothing.
func (l *CompletionListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob lists every stored person once the job has COMPLETED.
func (l *CompletionListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status != model.BatchStatusCompleted {
		return
	}
	logger.Infof("!!! JOB FINISHED! Time to verify the results")

	people, err := l.finder.FindAll(ctx)
	if err != nil {
		logger.Errorf("Failed to read back imported people: %v", err)
		return
	}
	for _, p := range people {
		logger.Infof("Found <%s> in the database.", p)
	}
}
