package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// RunJobRepositoryContract checks the behavior every JobRepository implementation shares.
// newRepo must return an empty repository.
func RunJobRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.JobRepository) {
	t.Run("save and find with steps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		je := model.NewJobExecution("importUserJob", NewTestJobParameters(map[string]interface{}{"run.id": 1, "input": "people.csv"}))
		je.MarkAsStarted()
		require.NoError(t, repo.SaveJobExecution(ctx, je))

		se := model.NewStepExecution(model.NewID(), je, "step1")
		se.MarkAsRunning()
		require.NoError(t, repo.SaveStepExecution(ctx, se))

		se.ReadCount, se.WriteCount, se.CommitCount = 5, 5, 1
		require.NoError(t, repo.UpdateStepExecution(ctx, se))
		assert.Equal(t, 1, se.Version)

		found, err := repo.FindJobExecutionByID(ctx, je.ID)
		require.NoError(t, err)
		assert.Equal(t, "importUserJob", found.JobName)
		assert.Equal(t, model.BatchStatusStarted, found.Status)
		assert.Equal(t, je.ParametersHash, found.ParametersHash)
		runID, ok := found.Parameters.GetInt64("run.id")
		assert.True(t, ok)
		assert.Equal(t, int64(1), runID)
		require.Len(t, found.StepExecutions, 1)
		assert.Equal(t, "step1", found.StepExecutions[0].StepName)
		assert.Equal(t, 5, found.StepExecutions[0].WriteCount)
		assert.Equal(t, 1, found.StepExecutions[0].CommitCount)

		step, err := repo.FindStepExecutionByID(ctx, se.ID)
		require.NoError(t, err)
		assert.Equal(t, je.ID, step.JobExecutionID)
		assert.Equal(t, model.StepStatusRunning, step.Status)
	})

	t.Run("update persists final state and failures", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		je := model.NewJobExecution("importUserJob", model.NewJobParameters())
		require.NoError(t, repo.SaveJobExecution(ctx, je))
		je.MarkAsStarted()
		require.NoError(t, repo.UpdateJobExecution(ctx, je))
		je.MarkAsFailed(errors.New("sink unavailable"))
		require.NoError(t, repo.UpdateJobExecution(ctx, je))
		assert.Equal(t, 2, je.Version)

		found, err := repo.FindJobExecutionByID(ctx, je.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusFailed, found.Status)
		assert.Equal(t, model.ExitStatusFailed, found.ExitStatus)
		assert.Equal(t, model.FailureList{"sink unavailable"}, found.Failures)
		require.NotNil(t, found.EndTime)
		assert.Equal(t, 2, found.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		je := model.NewJobExecution("importUserJob", model.NewJobParameters())
		require.NoError(t, repo.SaveJobExecution(ctx, je))

		stale, err := repo.FindJobExecutionByID(ctx, je.ID)
		require.NoError(t, err)

		je.MarkAsStarted()
		require.NoError(t, repo.UpdateJobExecution(ctx, je))

		stale.MarkAsStarted()
		err = repo.UpdateJobExecution(ctx, stale)
		assert.ErrorIs(t, err, exception.ErrOptimisticLockingFailure)
		assert.Equal(t, 0, stale.Version)

		se := model.NewStepExecution(model.NewID(), je, "step1")
		require.NoError(t, repo.SaveStepExecution(ctx, se))
		se.Version = 7
		assert.ErrorIs(t, repo.UpdateStepExecution(ctx, se), exception.ErrOptimisticLockingFailure)
	})

	t.Run("latest execution by parameters", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		params := NewTestJobParameters(map[string]interface{}{"input": "people.csv"})
		base := time.Now().Add(-time.Hour)

		first := model.NewJobExecution("importUserJob", params)
		first.CreateTime = base
		require.NoError(t, repo.SaveJobExecution(ctx, first))
		second := model.NewJobExecution("importUserJob", params)
		second.CreateTime = base.Add(time.Minute)
		require.NoError(t, repo.SaveJobExecution(ctx, second))
		other := model.NewJobExecution("importUserJob", NewTestJobParameters(map[string]interface{}{"input": "other.csv"}))
		other.CreateTime = base.Add(2 * time.Minute)
		require.NoError(t, repo.SaveJobExecution(ctx, other))

		latest, err := repo.FindLatestJobExecution(ctx, "importUserJob", NewTestJobParameters(map[string]interface{}{"input": "people.csv"}))
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)

		_, err = repo.FindLatestJobExecution(ctx, "otherJob", params)
		assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
	})

	t.Run("executions by job name newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		var ids []string
		for i := 0; i < 3; i++ {
			je := model.NewJobExecution("importUserJob", NewTestJobParameters(map[string]interface{}{"run.id": i + 1}))
			je.CreateTime = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.SaveJobExecution(ctx, je))
			ids = append(ids, je.ID)
		}

		all, err := repo.FindJobExecutionsByJobName(ctx, "importUserJob", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

		limited, err := repo.FindJobExecutionsByJobName(ctx, "importUserJob", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		none, err := repo.FindJobExecutionsByJobName(ctx, "unknownJob", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("missing executions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.FindJobExecutionByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
		_, err = repo.FindStepExecutionByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
	})
}
