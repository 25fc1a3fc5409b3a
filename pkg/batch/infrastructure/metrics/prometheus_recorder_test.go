package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/metrics"
)

func finishedExecution() (*model.JobExecution, *model.StepExecution) {
	je := model.NewJobExecution("importUserJob", model.NewJobParameters())
	je.MarkAsStarted()
	se := model.NewStepExecution(model.NewID(), je, "step1")
	se.MarkAsRunning()
	se.MarkAsCompleted()
	je.MarkAsCompleted()
	return je, se
}

func TestPrometheusRecorder_RecordsStepCounters(t *testing.T) {
	r := metrics.NewPrometheusRecorder()
	je, se := finishedExecution()
	ctx := port.GetContextWithStepExecution(context.Background(), se)

	r.RecordJobStart(ctx, je)
	r.RecordStepStart(ctx, se)
	for i := 0; i < 3; i++ {
		r.RecordItemRead(ctx, "step1")
		r.RecordItemProcess(ctx, "step1")
	}
	r.RecordItemSkip(ctx, "step1", "filtered")
	r.RecordItemWrite(ctx, "step1", 2)
	r.RecordChunkCommit(ctx, "step1", 2)
	r.RecordChunkRollback(ctx, "step1")
	r.RecordStepEnd(ctx, se)
	r.RecordJobEnd(ctx, je)
	r.RecordDuration(ctx, "launch", 25*time.Millisecond, nil)

	expected := `
# HELP batch_step_read_total Total items read by step.
# TYPE batch_step_read_total counter
batch_step_read_total{job_name="importUserJob",step_name="step1"} 3
# HELP batch_step_write_total Total items written by step.
# TYPE batch_step_write_total counter
batch_step_write_total{job_name="importUserJob",step_name="step1"} 2
# HELP batch_item_skip_total Total items skipped by step and reason.
# TYPE batch_item_skip_total counter
batch_item_skip_total{job_name="importUserJob",reason="filtered",step_name="step1"} 1
# HELP batch_step_commit_total Total chunk commits by step.
# TYPE batch_step_commit_total counter
batch_step_commit_total{job_name="importUserJob",step_name="step1"} 1
# HELP batch_step_rollback_total Total chunk rollbacks by step.
# TYPE batch_step_rollback_total counter
batch_step_rollback_total{job_name="importUserJob",step_name="step1"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.GetRegistry(), strings.NewReader(expected),
		"batch_step_read_total", "batch_step_write_total", "batch_item_skip_total",
		"batch_step_commit_total", "batch_step_rollback_total"))

	count, err := testutil.GatherAndCount(r.GetRegistry(), "batch_job_duration_seconds", "batch_step_duration_seconds", "batch_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	r := metrics.NewPrometheusRecorder()
	je, _ := finishedExecution()
	r.RecordJobEnd(context.Background(), je)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `batch_job_status_total{job_name="importUserJob",status="COMPLETED"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
