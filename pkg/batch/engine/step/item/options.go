package item

import (
	"database/sql"
	"strings"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
)

type stepOptions struct {
	stepExecutionListeners []port.StepExecutionListener
	chunkListeners         []port.ChunkListener
	isolationLevel         sql.IsolationLevel
	metricRecorder         metrics.MetricRecorder
	tracer                 metrics.Tracer
}

func defaultStepOptions() stepOptions {
	return stepOptions{
		isolationLevel: sql.LevelDefault,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
}

// Option configures a ChunkStep.
type Option func(*stepOptions)

// WithStepExecutionListeners registers listeners notified before and after the step.
func WithStepExecutionListeners(listeners ...port.StepExecutionListener) Option {
	return func(o *stepOptions) {
		o.stepExecutionListeners = append(o.stepExecutionListeners, listeners...)
	}
}

// WithChunkListeners registers listeners notified around each chunk.
func WithChunkListeners(listeners ...port.ChunkListener) Option {
	return func(o *stepOptions) {
		o.chunkListeners = append(o.chunkListeners, listeners...)
	}
}

// WithListeners registers every value that implements a step-level listener interface.
// Values implementing both interfaces are registered for both.
func WithListeners(listeners ...interface{}) Option {
	return func(o *stepOptions) {
		for _, l := range listeners {
			if sl, ok := l.(port.StepExecutionListener); ok {
				o.stepExecutionListeners = append(o.stepExecutionListeners, sl)
			}
			if cl, ok := l.(port.ChunkListener); ok {
				o.chunkListeners = append(o.chunkListeners, cl)
			}
		}
	}
}

// WithMetricRecorder sets the recorder. nil keeps the no-op recorder.
func WithMetricRecorder(recorder metrics.MetricRecorder) Option {
	return func(o *stepOptions) {
		if recorder != nil {
			o.metricRecorder = recorder
		}
	}
}

// WithTracer sets the tracer. nil keeps the no-op tracer.
func WithTracer(tracer metrics.Tracer) Option {
	return func(o *stepOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithIsolationLevel sets the isolation level of chunk transactions
// ("READ_UNCOMMITTED", "READ_COMMITTED", "REPEATABLE_READ", "SERIALIZABLE"; anything else uses the database default).
func WithIsolationLevel(level string) Option {
	return func(o *stepOptions) {
		o.isolationLevel = parseIsolationLevel(level)
	}
}

func parseIsolationLevel(level string) sql.IsolationLevel {
	switch strings.ToUpper(level) {
	case "READ_UNCOMMITTED":
		return sql.LevelReadUncommitted
	case "READ_COMMITTED":
		return sql.LevelReadCommitted
	case "REPEATABLE_READ":
		return sql.LevelRepeatableRead
	case "SERIALIZABLE":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}
