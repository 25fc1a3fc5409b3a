// Package metrics defines the observability hooks the engine reports through.
// Backends (Prometheus, OpenTelemetry) live in infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step and item level measurements.
type MetricRecorder interface {
	// RecordJobStart records the start of a job execution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a job execution, including its final status and duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a step execution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a step execution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordItemRead records one item read from a source.
	RecordItemRead(ctx context.Context, stepName string)
	// RecordItemProcess records one item accepted by a processor.
	RecordItemProcess(ctx context.Context, stepName string)
	// RecordItemWrite records count items written in a chunk.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordItemSkip records an item skipped by a processor.
	RecordItemSkip(ctx context.Context, stepName string, reason string)
	// RecordChunkCommit records a committed chunk of count items.
	RecordChunkCommit(ctx context.Context, stepName string, count int)
	// RecordChunkRollback records a rolled back chunk.
	RecordChunkRollback(ctx context.Context, stepName string)
	// RecordDuration records an arbitrary named duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// CompositeRecorder fans every call out to several recorders.
type CompositeRecorder []MetricRecorder

// NewCompositeRecorder creates a CompositeRecorder, dropping nil entries.
func NewCompositeRecorder(recorders ...MetricRecorder) CompositeRecorder {
	c := make(CompositeRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			c = append(c, r)
		}
	}
	return c
}

func (c CompositeRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	for _, r := range c {
		r.RecordJobStart(ctx, execution)
	}
}

func (c CompositeRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	for _, r := range c {
		r.RecordJobEnd(ctx, execution)
	}
}

func (c CompositeRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	for _, r := range c {
		r.RecordStepStart(ctx, execution)
	}
}

func (c CompositeRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	for _, r := range c {
		r.RecordStepEnd(ctx, execution)
	}
}

func (c CompositeRecorder) RecordItemRead(ctx context.Context, stepName string) {
	for _, r := range c {
		r.RecordItemRead(ctx, stepName)
	}
}

func (c CompositeRecorder) RecordItemProcess(ctx context.Context, stepName string) {
	for _, r := range c {
		r.RecordItemProcess(ctx, stepName)
	}
}

func (c CompositeRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	for _, r := range c {
		r.RecordItemWrite(ctx, stepName, count)
	}
}

func (c CompositeRecorder) RecordItemSkip(ctx context.Context, stepName string, reason string) {
	for _, r := range c {
		r.RecordItemSkip(ctx, stepName, reason)
	}
}

func (c CompositeRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	for _, r := range c {
		r.RecordChunkCommit(ctx, stepName, count)
	}
}

func (c CompositeRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	for _, r := range c {
		r.RecordChunkRollback(ctx, stepName)
	}
}

func (c CompositeRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c {
		r.RecordDuration(ctx, name, duration, tags)
	}
}
