// Package port defines the contracts between the batch engine and the components it drives:
// jobs, steps, item readers, processors and writers, and lifecycle listeners.
package port

import (
	"context"
	"errors"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// ErrNoMoreItems is returned by ItemReader.Read when the source is exhausted.
// io.EOF is accepted as an equivalent signal.
var ErrNoMoreItems = errors.New("no more items")

// ErrSkipItem is returned by ItemProcessor.Process to discard an item.
// Skipped items are counted but never reach the writer.
var ErrSkipItem = errors.New("skip item")

// Job is a named, executable unit composed of steps.
type Job interface {
	// Run executes the job with the given parameters, updating jobExecution in place.
	// A step failure is reported through jobExecution's status and returned as an error.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error

	// JobName returns the logical name of the job.
	JobName() string

	// Incrementer returns the incrementer applied by the launcher, or nil.
	Incrementer() JobParametersIncrementer
}

// Step is one stage of a job.
type Step interface {
	// Execute runs the step, updating stepExecution in place.
	//
	// ctx: The context for the operation. Cancellation is observed between chunks.
	// jobExecution: The owning job execution.
	// stepExecution: The execution record of this run of the step, in READY status.
	// Returns: An error when the step fails; stepExecution is FAILED in that case.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error

	// StepName returns the name of the step.
	StepName() string
}

// ItemReader produces a lazy, finite sequence of items.
type ItemReader[O any] interface {
	// Open acquires the underlying resource. Close is always called after a successful Open.
	Open(ctx context.Context) error

	// Read returns the next item, or ErrNoMoreItems at the end of data.
	// A malformed record is reported as an exception.ErrParse error.
	Read(ctx context.Context) (O, error)

	// Close releases the underlying resource.
	Close(ctx context.Context) error
}

// ItemProcessor transforms one item. It must not mutate shared state.
type ItemProcessor[I, O any] interface {
	// Process returns the transformed item, ErrSkipItem to discard it, or an error to abort the chunk.
	Process(ctx context.Context, item I) (O, error)
}

// ItemWriter persists a chunk of items.
type ItemWriter[I any] interface {
	// Open prepares the writer before the first chunk.
	Open(ctx context.Context) error

	// Write persists all items inside tx as one atomic operation.
	Write(ctx context.Context, tx tx.Tx, items []I) error

	// Close releases the writer after the last chunk, whether or not the step succeeded.
	Close(ctx context.Context) error
}

// ItemProcessorFunc adapts a plain function to ItemProcessor.
type ItemProcessorFunc[I, O any] func(ctx context.Context, item I) (O, error)

// Process implements ItemProcessor.
func (f ItemProcessorFunc[I, O]) Process(ctx context.Context, item I) (O, error) {
	return f(ctx, item)
}

// PassThroughItemProcessor returns every item unchanged.
type PassThroughItemProcessor[T any] struct{}

// Process implements ItemProcessor.
func (PassThroughItemProcessor[T]) Process(ctx context.Context, item T) (T, error) {
	return item, nil
}

// JobExecutionListener is notified synchronously before and after a job runs.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// JobExecutionListenerFunc adapts a pair of plain functions to JobExecutionListener.
// Either function may be nil.
type JobExecutionListenerFunc struct {
	Before func(ctx context.Context, jobExecution *model.JobExecution)
	After  func(ctx context.Context, jobExecution *model.JobExecution)
}

// BeforeJob implements JobExecutionListener.
func (f JobExecutionListenerFunc) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	if f.Before != nil {
		f.Before(ctx, jobExecution)
	}
}

// AfterJob implements JobExecutionListener.
func (f JobExecutionListenerFunc) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if f.After != nil {
		f.After(ctx, jobExecution)
	}
}

// StepExecutionListener is notified before and after a step runs.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// ChunkListener is notified around each chunk. AfterChunk is called only for committed chunks.
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution)
}

// NotificationListener is notified once a job execution has finished.
type NotificationListener interface {
	OnJobCompletion(ctx context.Context, jobExecution *model.JobExecution)
}

// JobParametersIncrementer derives the parameters of the next launch.
type JobParametersIncrementer interface {
	// GetNext returns a new JobParameters based on params. params is not modified.
	GetNext(params model.JobParameters) model.JobParameters
}

type contextKey string

// StepExecutionKey is the context key under which the running StepExecution is stored.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}

// ExpressionResolver resolves #{...} expressions against the running execution.
type ExpressionResolver interface {
	// Resolve replaces every expression in expression. Unknown expressions are left as is.
	Resolve(ctx context.Context, expression string, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (string, error)
}
