package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/metrics"
)

func TestOpenTelemetryTracer_NestsStepSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := metrics.NewOpenTelemetryTracer(tp)

	je, se := finishedExecution()
	se.ReadCount, se.WriteCount = 5, 4

	jobCtx, endJob := tracer.StartJobSpan(context.Background(), je)
	stepCtx, endStep := tracer.StartStepSpan(jobCtx, se)
	tracer.RecordEvent(stepCtx, "chunk.committed", map[string]interface{}{"items": 4, "step": "step1"})
	tracer.RecordError(stepCtx, "writer", errors.New("constraint violation"))
	tracer.RecordError(stepCtx, "writer", nil)
	endStep()
	endJob()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	step, job := spans[0], spans[1]

	assert.Equal(t, "step step1", step.Name())
	assert.Equal(t, "job importUserJob", job.Name())
	assert.Equal(t, job.SpanContext().SpanID(), step.Parent().SpanID())
	assert.Equal(t, codes.Error, step.Status().Code)
	assert.Contains(t, step.Attributes(), attribute.Int("batch.step.write_count", 4))
	assert.Contains(t, job.Attributes(), attribute.String("batch.job.status", "COMPLETED"))

	var names []string
	for _, ev := range step.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "chunk.committed")
	assert.Contains(t, names, "exception")
}

func TestOpenTelemetryRecorder_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	r, err := metrics.NewOpenTelemetryRecorder(mp)
	require.NoError(t, err)

	je, se := finishedExecution()
	ctx := port.GetContextWithStepExecution(context.Background(), se)
	r.RecordItemWrite(ctx, "step1", 10)
	r.RecordItemWrite(ctx, "step1", 5)
	r.RecordChunkCommit(ctx, "step1", 10)
	r.RecordJobEnd(ctx, je)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	var histograms []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				histograms = append(histograms, m.Name)
			}
		}
	}
	assert.Equal(t, int64(15), sums["batch.item.written"])
	assert.Equal(t, int64(1), sums["batch.chunk.commits"])
	assert.Equal(t, int64(1), sums["batch.job.executions"])
	assert.Contains(t, histograms, "batch.job.duration")
}
