package trigger_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/internal/app/trigger"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// recordingOperator records every Start call and completes it immediately.
type recordingOperator struct {
	mu     sync.Mutex
	starts []model.JobParameters
}

func (o *recordingOperator) Start(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	o.mu.Lock()
	o.starts = append(o.starts, params)
	o.mu.Unlock()
	je := model.NewJobExecution(jobName, params)
	je.MarkAsStarted()
	je.MarkAsCompleted()
	return je, nil
}

func (o *recordingOperator) Stop(ctx context.Context, executionID string) error { return nil }

func (o *recordingOperator) JobNames() []string { return []string{"importUserJob"} }

func (o *recordingOperator) launches() []model.JobParameters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.JobParameters(nil), o.starts...)
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := trigger.NewScheduler(&recordingOperator{}, "importUserJob", "every minute")
	assert.Error(t, err)
}

func TestScheduler_LaunchesOnSchedule(t *testing.T) {
	op := &recordingOperator{}
	s, err := trigger.NewScheduler(op, "importUserJob", "@every 1s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))

	require.Eventually(t, func() bool { return len(op.launches()) > 0 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

func TestWatcher_LaunchesWithInputFile(t *testing.T) {
	dir := t.TempDir()
	op := &recordingOperator{}
	w, err := trigger.NewWatcher(op, "importUserJob", dir, "*.csv")
	require.NoError(t, err)
	w.WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously, so keep touching the files until a launch shows up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600)
		_ = os.WriteFile(filepath.Join(dir, ".people.csv.swp"), []byte("ignored"), 0o600)
		_ = os.WriteFile(filepath.Join(dir, "people.csv"), []byte("Jill,Doe\n"), 0o600)
		return len(op.launches()) > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	for _, params := range op.launches() {
		file, ok := params.GetString(trigger.InputFileParameter)
		require.True(t, ok)
		assert.Equal(t, "people.csv", file)
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := trigger.NewWatcher(&recordingOperator{}, "importUserJob", t.TempDir(), "[")
	assert.Error(t, err)
}
