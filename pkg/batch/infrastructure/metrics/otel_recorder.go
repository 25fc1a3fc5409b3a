package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
)

// OpenTelemetryRecorder records the engine measurements as OpenTelemetry instruments.
type OpenTelemetryRecorder struct {
	jobs          metric.Int64Counter
	jobDuration   metric.Float64Histogram
	steps         metric.Int64Counter
	stepDuration  metric.Float64Histogram
	itemsRead     metric.Int64Counter
	itemsProcess  metric.Int64Counter
	itemsWritten  metric.Int64Counter
	itemsSkipped  metric.Int64Counter
	chunkCommits  metric.Int64Counter
	chunkRollback metric.Int64Counter
	durations     metric.Float64Histogram
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)

// NewOpenTelemetryRecorder creates the instruments on provider.
func NewOpenTelemetryRecorder(provider metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&r.jobs, "batch.job.executions", "Job executions by status."},
		{&r.steps, "batch.step.executions", "Step executions by status."},
		{&r.itemsRead, "batch.item.read", "Items read."},
		{&r.itemsProcess, "batch.item.processed", "Items accepted by processors."},
		{&r.itemsWritten, "batch.item.written", "Items written."},
		{&r.itemsSkipped, "batch.item.skipped", "Items skipped."},
		{&r.chunkCommits, "batch.chunk.commits", "Committed chunks."},
		{&r.chunkRollback, "batch.chunk.rollbacks", "Rolled back chunks."},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&r.jobDuration, "batch.job.duration", "Job execution duration."},
		{&r.stepDuration, "batch.step.duration", "Step execution duration."},
		{&r.durations, "batch.operation.duration", "Duration of named operations."},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s")); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func stepAttrs(ctx context.Context, stepName string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("job_name", jobNameFromContext(ctx)),
		attribute.String("step_name", stepName),
	)
}

func (r *OpenTelemetryRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OpenTelemetryRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobs.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OpenTelemetryRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OpenTelemetryRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.steps.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OpenTelemetryRecorder) RecordItemRead(ctx context.Context, stepName string) {
	r.itemsRead.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OpenTelemetryRecorder) RecordItemProcess(ctx context.Context, stepName string) {
	r.itemsProcess.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OpenTelemetryRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemsWritten.Add(ctx, int64(count), stepAttrs(ctx, stepName))
}

func (r *OpenTelemetryRecorder) RecordItemSkip(ctx context.Context, stepName string, reason string) {
	r.itemsSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", jobNameFromContext(ctx)),
		attribute.String("step_name", stepName),
		attribute.String("reason", reason),
	))
}

func (r *OpenTelemetryRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.chunkCommits.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OpenTelemetryRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.chunkRollback.Add(ctx, 1, stepAttrs(ctx, stepName))
}

func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
