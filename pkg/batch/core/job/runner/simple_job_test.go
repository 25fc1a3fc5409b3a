package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/job/runner"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// fakeStep marks its StepExecution running and completes or fails with err.
type fakeStep struct {
	name  string
	err   error
	calls int
}

func (s *fakeStep) StepName() string { return s.name }

func (s *fakeStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	s.calls++
	se.MarkAsRunning()
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	se.MarkAsCompleted()
	return nil
}

func launch(t *testing.T, job *runner.SimpleJob, repo *inmemory.InMemoryJobRepository) (*model.JobExecution, error) {
	t.Helper()
	je := model.NewJobExecution(job.JobName(), model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	return je, job.Run(context.Background(), je, je.Parameters)
}

func TestSimpleJob_RunsStepsInOrder(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	s1, s2 := &fakeStep{name: "step1"}, &fakeStep{name: "step2"}
	var order []string
	listener := port.JobExecutionListenerFunc{
		Before: func(ctx context.Context, je *model.JobExecution) { order = append(order, "before:"+je.Status.String()) },
		After:  func(ctx context.Context, je *model.JobExecution) { order = append(order, "after:"+je.Status.String()) },
	}

	job, err := runner.NewSimpleJob("importJob", repo, []port.Step{s1, s2}, runner.WithJobListeners(listener))
	require.NoError(t, err)

	je, err := launch(t, job, repo)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	assert.NotNil(t, je.EndTime)
	assert.Equal(t, 1, s1.calls)
	assert.Equal(t, 1, s2.calls)
	assert.Equal(t, []string{"before:STARTED", "after:COMPLETED"}, order)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	require.Len(t, stored.StepExecutions, 2)
	assert.Equal(t, "step1", stored.StepExecutions[0].StepName)
}

func TestSimpleJob_StopsAtFirstFailingStep(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	boom := errors.New("boom")
	s1, s2 := &fakeStep{name: "step1", err: boom}, &fakeStep{name: "step2"}

	job, err := runner.NewSimpleJob("importJob", repo, []port.Step{s1, s2})
	require.NoError(t, err)

	je, err := launch(t, job, repo)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, 0, s2.calls)
	assert.Contains(t, je.Failures, "boom")
}

func TestSimpleJob_CancellationEndsStopped(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	s1 := &fakeStep{name: "step1", err: exception.NewBatchError("step1", "step interrupted between chunks", context.Canceled)}

	job, err := runner.NewSimpleJob("importJob", repo, []port.Step{s1})
	require.NoError(t, err)

	je, err := launch(t, job, repo)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchStatusStopped, je.Status)
}

func TestNewSimpleJob_RejectsInvalidDefinitions(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()

	_, err := runner.NewSimpleJob("", repo, []port.Step{&fakeStep{name: "a"}})
	assert.ErrorIs(t, err, exception.ErrConfiguration)

	_, err = runner.NewSimpleJob("job", repo, nil)
	assert.ErrorIs(t, err, exception.ErrConfiguration)

	_, err = runner.NewSimpleJob("job", repo, []port.Step{&fakeStep{name: "a"}, &fakeStep{name: "a"}})
	assert.ErrorIs(t, err, exception.ErrConfiguration)

	_, err = runner.NewSimpleJob("job", nil, []port.Step{&fakeStep{name: "a"}})
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}
