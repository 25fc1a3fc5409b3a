package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/usecase"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/core/job/runner"
	"github.com/tigerroll/chunkflow/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkflow/pkg/batch/test"
)

// stubJob completes, fails with err, or blocks until canceled when block is set.
type stubJob struct {
	name        string
	err         error
	incrementer port.JobParametersIncrementer
	started     chan string
	block       bool
	runs        int
	// repo, when set, receives the final state like a real job would persist it.
	repo        repository.JobRepository
}

func (j *stubJob) JobName() string { return j.name }

func (j *stubJob) Incrementer() port.JobParametersIncrementer { return j.incrementer }

func (j *stubJob) Run(ctx context.Context, je *model.JobExecution, params model.JobParameters) error {
	j.runs++
	if j.repo != nil {
		defer func() { _ = j.repo.UpdateJobExecution(context.WithoutCancel(ctx), je) }()
	}
	je.MarkAsStarted()
	if j.started != nil {
		j.started <- je.ID
	}
	if j.block {
		<-ctx.Done()
		je.MarkAsStopped(ctx.Err())
		return ctx.Err()
	}
	if j.err != nil {
		je.MarkAsFailed(j.err)
		return j.err
	}
	je.MarkAsCompleted()
	return nil
}

func params(kv map[string]interface{}) model.JobParameters {
	return testutil.NewTestJobParameters(kv)
}

func TestLaunch_RefusesParametersOfCompletedExecution(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := usecase.NewSimpleJobLauncher(repo, true)
	job := &stubJob{name: "importJob", repo: repo}
	ctx := context.Background()

	first, err := launcher.Launch(ctx, job, params(map[string]interface{}{"date": "2026-01-01"}))
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, first.Status)

	_, err = launcher.Launch(ctx, job, params(map[string]interface{}{"date": "2026-01-01"}))
	assert.ErrorIs(t, err, exception.ErrDuplicateExecution)
	assert.Equal(t, 1, job.runs)

	_, err = launcher.Launch(ctx, job, params(map[string]interface{}{"date": "2026-01-02"}))
	assert.NoError(t, err)
}

func TestLaunch_AllowsRerunOfFailedExecution(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := usecase.NewSimpleJobLauncher(repo, true)
	job := &stubJob{name: "importJob", err: errors.New("sink down"), repo: repo}
	p := params(map[string]interface{}{"date": "2026-01-01"})

	failed, err := launcher.Launch(context.Background(), job, p)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, failed.Status)

	job.err = nil
	rerun, err := launcher.Launch(context.Background(), job, p)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, rerun.Status)
	assert.NotEqual(t, failed.ID, rerun.ID)
}

func TestLaunch_WithoutUniquenessRunsDuplicates(t *testing.T) {
	launcher := usecase.NewSimpleJobLauncher(inmemory.NewInMemoryJobRepository(), false)
	job := &stubJob{name: "importJob"}

	for i := 0; i < 2; i++ {
		_, err := launcher.Launch(context.Background(), job, model.NewJobParameters())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, job.runs)
}

func TestLaunch_IncrementerMakesEachRunUnique(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := usecase.NewSimpleJobLauncher(repo, true)
	job := &stubJob{name: "importJob", incrementer: incrementer.NewRunIDIncrementer(""), repo: repo}

	first, err := launcher.Launch(context.Background(), job, model.NewJobParameters())
	require.NoError(t, err)
	second, err := launcher.Launch(context.Background(), job, model.NewJobParameters())
	require.NoError(t, err)

	id1, _ := first.Parameters.GetInt64(incrementer.DefaultRunIDKey)
	id2, _ := second.Parameters.GetInt64(incrementer.DefaultRunIDKey)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestLaunch_CallerParametersOverrideIncrementer(t *testing.T) {
	launcher := usecase.NewSimpleJobLauncher(inmemory.NewInMemoryJobRepository(), true)
	job := &stubJob{name: "importJob", incrementer: incrementer.NewRunIDIncrementer("")}

	je, err := launcher.Launch(context.Background(), job, params(map[string]interface{}{"run.id": int64(42)}))
	require.NoError(t, err)
	id, _ := je.Parameters.GetInt64("run.id")
	assert.Equal(t, int64(42), id)
}

func TestLaunch_SaveFailureCreatesNothing(t *testing.T) {
	repo := &testutil.MockJobRepository{}
	repo.On("FindLatestJobExecution", mock.Anything, "importJob", mock.Anything).Return(nil, repository.ErrJobExecutionNotFound)
	repo.On("SaveJobExecution", mock.Anything, mock.Anything).Return(errors.New("db down"))
	job := &stubJob{name: "importJob"}

	_, err := usecase.NewSimpleJobLauncher(repo, true).Launch(context.Background(), job, model.NewJobParameters())
	assert.Error(t, err)
	assert.Equal(t, 0, job.runs)
	repo.AssertExpectations(t)
}

// completingStep completes without touching the repository.
type completingStep struct{}

func (completingStep) StepName() string { return "step1" }

func (completingStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	se.MarkAsRunning()
	se.MarkAsCompleted()
	return nil
}

// failOnCompletedRepository cannot store a COMPLETED job execution.
type failOnCompletedRepository struct {
	*inmemory.InMemoryJobRepository
}

func (r failOnCompletedRepository) UpdateJobExecution(ctx context.Context, je *model.JobExecution) error {
	if je.Status == model.BatchStatusCompleted {
		return errors.New("disk full")
	}
	return r.InMemoryJobRepository.UpdateJobExecution(ctx, je)
}

func TestLaunch_ReturnsErrorWhenFinalStateIsNotPersisted(t *testing.T) {
	repo := failOnCompletedRepository{inmemory.NewInMemoryJobRepository()}
	job, err := runner.NewSimpleJob("importJob", repo, []port.Step{completingStep{}})
	require.NoError(t, err)

	je, err := usecase.NewSimpleJobLauncher(repo, true).Launch(context.Background(), job, model.NewJobParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrJobRepository)
	require.NotNil(t, je)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.BatchStatusCompleted, stored.Status)
}

func TestLaunch_StepFailureIsReportedOnExecution(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	job := &stubJob{name: "importJob", err: exception.NewSinkError("step1", 1, errors.New("sink down")), repo: repo}

	je, err := usecase.NewSimpleJobLauncher(repo, true).Launch(context.Background(), job, model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestJobOperator_StartAndStop(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := usecase.NewSimpleJobLauncher(repo, false)
	blocking := &stubJob{name: "longJob", block: true, started: make(chan string, 1)}
	operator, err := usecase.NewDefaultJobOperator(launcher, []port.Job{blocking, &stubJob{name: "importJob"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"importJob", "longJob"}, operator.JobNames())

	done := make(chan *model.JobExecution, 1)
	go func() {
		je, _ := operator.Start(context.Background(), "longJob", model.NewJobParameters())
		done <- je
	}()
	executionID := <-blocking.started
	require.NoError(t, operator.Stop(context.Background(), executionID))

	je := <-done
	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.Error(t, operator.Stop(context.Background(), executionID))
}

func TestJobOperator_UnknownJob(t *testing.T) {
	operator, err := usecase.NewDefaultJobOperator(usecase.NewSimpleJobLauncher(inmemory.NewInMemoryJobRepository(), false), nil)
	require.NoError(t, err)

	_, err = operator.Start(context.Background(), "missing", model.NewJobParameters())
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestJobOperator_DuplicateRegistration(t *testing.T) {
	_, err := usecase.NewDefaultJobOperator(usecase.NewSimpleJobLauncher(inmemory.NewInMemoryJobRepository(), false),
		[]port.Job{&stubJob{name: "a"}, &stubJob{name: "a"}})
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestJobExplorer_ListsNewestFirst(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := usecase.NewSimpleJobLauncher(repo, false)
	job := &stubJob{name: "importJob", incrementer: incrementer.NewRunIDIncrementer("")}
	for i := 0; i < 3; i++ {
		_, err := launcher.Launch(context.Background(), job, model.NewJobParameters())
		require.NoError(t, err)
	}

	explorer := usecase.NewSimpleJobExplorer(repo)
	all, err := explorer.GetJobExecutions(context.Background(), "importJob", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := explorer.GetLastJobExecution(context.Background(), "importJob")
	require.NoError(t, err)
	id, _ := last.Parameters.GetInt64(incrementer.DefaultRunIDKey)
	assert.Equal(t, int64(3), id)

	got, err := explorer.GetJobExecution(context.Background(), last.ID)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)

	none, err := explorer.GetLastJobExecution(context.Background(), "otherJob")
	require.NoError(t, err)
	assert.Nil(t, none)
}
