// Package item provides the chunk-oriented step: items are read and processed one by one,
// then written and committed in chunks of a fixed size.
package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// ChunkStep is a port.Step that drives the read-process-write loop in commit chunks.
//
// Each chunk runs in its own transaction: up to chunkSize accepted items are read and
// processed, written through the writer and committed. The StepExecution is persisted
// right after every commit. Any read, process or write failure rolls back the current
// chunk and fails the step; previously committed chunks stay committed.
type ChunkStep[I, O any] struct {
	name          string
	reader        port.ItemReader[I]
	processor     port.ItemProcessor[I, O]
	writer        port.ItemWriter[O]
	chunkSize     int
	txManager     tx.TransactionManager
	jobRepository repository.JobRepository
	stepOptions
}

var _ port.Step = (*ChunkStep[any, any])(nil)

// NewChunkStep creates a ChunkStep.
//
// name: The step name recorded on its StepExecution.
// reader, processor, writer: The item components. None may be nil.
// chunkSize: The commit interval. Must be at least 1.
// txManager: The transaction manager each chunk is committed through.
// jobRepository: The repository the StepExecution is persisted to.
// opts: Listeners, metrics, tracing and transaction options.
// Returns: The step, or an exception.ErrConfiguration error.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	chunkSize int,
	txManager tx.TransactionManager,
	jobRepository repository.JobRepository,
	opts ...Option,
) (*ChunkStep[I, O], error) {
	switch {
	case name == "":
		return nil, exception.NewConfigurationError("ChunkStep", "step name must not be empty")
	case chunkSize < 1:
		return nil, exception.NewConfigurationError(name, fmt.Sprintf("chunk size must be at least 1, got %d", chunkSize))
	case reader == nil:
		return nil, exception.NewConfigurationError(name, "item reader is required")
	case processor == nil:
		return nil, exception.NewConfigurationError(name, "item processor is required")
	case writer == nil:
		return nil, exception.NewConfigurationError(name, "item writer is required")
	case txManager == nil:
		return nil, exception.NewConfigurationError(name, "transaction manager is required")
	case jobRepository == nil:
		return nil, exception.NewConfigurationError(name, "job repository is required")
	}

	s := &ChunkStep[I, O]{
		name:          name,
		reader:        reader,
		processor:     processor,
		writer:        writer,
		chunkSize:     chunkSize,
		txManager:     txManager,
		jobRepository: jobRepository,
		stepOptions:   defaultStepOptions(),
	}
	for _, opt := range opts {
		opt(&s.stepOptions)
	}
	return s, nil
}

// StepName returns the step name.
func (s *ChunkStep[I, O]) StepName() string {
	return s.name
}

// ChunkSize returns the commit interval.
func (s *ChunkStep[I, O]) ChunkSize() int {
	return s.chunkSize
}

// Execute runs the step to completion or failure. See port.Step.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	logger.Infof("ChunkStep '%s' executing (chunk size %d).", s.name, s.chunkSize)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	ctx = port.GetContextWithStepExecution(ctx, stepExecution)

	stepExecution.MarkAsRunning()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		runErr := exception.NewJobRepositoryError(s.name, "failed to persist running step execution", err)
		stepExecution.MarkAsFailed(runErr)
		return runErr
	}

	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}

	runErr := s.run(ctx, stepExecution)

	if runErr != nil {
		stepExecution.MarkAsFailed(runErr)
		s.tracer.RecordError(ctx, s.name, runErr)
		logger.Errorf("ChunkStep '%s' failed: %v", s.name, runErr)
	} else {
		stepExecution.MarkAsCompleted()
		logger.Infof("ChunkStep '%s' completed: read=%d, write=%d, skip=%d, commit=%d.",
			s.name, stepExecution.ReadCount, stepExecution.WriteCount, stepExecution.SkipCount, stepExecution.CommitCount)
	}

	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
	s.metricRecorder.RecordStepEnd(ctx, stepExecution)

	// The final state is persisted even when the run was canceled.
	if err := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); err != nil {
		logger.Errorf("ChunkStep '%s': failed to persist final step execution: %v", s.name, err)
		if runErr == nil {
			runErr = exception.NewJobRepositoryError(s.name, "failed to persist final step execution", err)
		}
	}
	return runErr
}

// run opens the components, processes every chunk and closes the components.
func (s *ChunkStep[I, O]) run(ctx context.Context, se *model.StepExecution) (err error) {
	closeCtx := context.WithoutCancel(ctx)

	if err := s.reader.Open(ctx); err != nil {
		return exception.NewBatchError(s.name, "failed to open item reader", err)
	}
	defer func() {
		if cerr := s.reader.Close(closeCtx); cerr != nil {
			err = appendCloseError(err, exception.NewBatchError(s.name, "failed to close item reader", cerr))
		}
	}()

	if err := s.writer.Open(ctx); err != nil {
		return exception.NewBatchError(s.name, "failed to open item writer", err)
	}
	defer func() {
		if cerr := s.writer.Close(closeCtx); cerr != nil {
			err = appendCloseError(err, exception.NewBatchError(s.name, "failed to close item writer", cerr))
		}
	}()

	var offset int64
	for {
		// Cancellation is honored between chunks only.
		if cerr := ctx.Err(); cerr != nil {
			logger.Warnf("ChunkStep '%s' interrupted after %d records: %v", s.name, offset, cerr)
			return exception.NewBatchError(s.name, "step interrupted between chunks", cerr)
		}
		eof, err := s.processChunk(ctx, se, &offset)
		if err != nil {
			return err
		}
		if eof {
			return nil
		}
	}
}

// processChunk reads, processes, writes and commits one chunk.
// offset is the number of records read so far and is advanced by this call.
// It reports eof once the reader is exhausted.
// A started chunk runs to commit or rollback; cancellation of ctx is observed by run only.
func (s *ChunkStep[I, O]) processChunk(ctx context.Context, se *model.StepExecution, offset *int64) (eof bool, err error) {
	ctx = context.WithoutCancel(ctx)
	chunkStart := *offset + 1

	txAdapter, err := s.txManager.Begin(ctx, s.txOptions())
	if err != nil {
		return false, exception.NewSinkError(s.name, chunkStart, fmt.Errorf("failed to begin transaction: %w", err))
	}

	for _, l := range s.chunkListeners {
		l.BeforeChunk(ctx, se)
	}

	chunk := make([]O, 0, s.chunkSize)
	for len(chunk) < s.chunkSize {
		item, rerr := s.reader.Read(ctx)
		if rerr != nil {
			if errors.Is(rerr, port.ErrNoMoreItems) || errors.Is(rerr, io.EOF) {
				eof = true
				break
			}
			s.rollback(ctx, txAdapter, se)
			readErr := exception.NewBatchErrorf(s.name, "failed to read record %d", *offset+1, rerr)
			readErr.Offset = *offset + 1
			return false, readErr
		}
		*offset++
		se.ReadCount++
		s.metricRecorder.RecordItemRead(ctx, s.name)

		out, perr := s.processor.Process(ctx, item)
		if perr != nil {
			if errors.Is(perr, port.ErrSkipItem) {
				se.SkipCount++
				s.metricRecorder.RecordItemSkip(ctx, s.name, "processor")
				logger.Debugf("ChunkStep '%s': record %d skipped by processor.", s.name, *offset)
				continue
			}
			s.rollback(ctx, txAdapter, se)
			return false, exception.NewTransformError(s.name, *offset, perr)
		}
		s.metricRecorder.RecordItemProcess(ctx, s.name)
		chunk = append(chunk, out)
	}

	if len(chunk) == 0 {
		// Nothing accepted at the end of data; release the transaction without touching the sink.
		if rbErr := s.txManager.Rollback(txAdapter); rbErr != nil {
			logger.Warnf("ChunkStep '%s': failed to release empty chunk transaction: %v", s.name, rbErr)
		}
		return eof, nil
	}

	if werr := s.writer.Write(ctx, txAdapter, chunk); werr != nil {
		s.rollback(ctx, txAdapter, se)
		return false, exception.NewSinkError(s.name, chunkStart, werr)
	}
	if cerr := s.txManager.Commit(txAdapter); cerr != nil {
		s.rollback(ctx, txAdapter, se)
		return false, exception.NewSinkError(s.name, chunkStart, fmt.Errorf("failed to commit transaction: %w", cerr))
	}

	se.WriteCount += len(chunk)
	se.CommitCount++
	s.metricRecorder.RecordItemWrite(ctx, s.name, len(chunk))
	s.metricRecorder.RecordChunkCommit(ctx, s.name, len(chunk))

	if uerr := s.jobRepository.UpdateStepExecution(ctx, se); uerr != nil {
		return false, exception.NewJobRepositoryError(s.name, "failed to persist step execution after commit", uerr)
	}

	for _, l := range s.chunkListeners {
		l.AfterChunk(ctx, se)
	}
	logger.Debugf("ChunkStep '%s': committed %d items (records %d-%d).", s.name, len(chunk), chunkStart, *offset)
	return eof, nil
}

func (s *ChunkStep[I, O]) rollback(ctx context.Context, txAdapter tx.Tx, se *model.StepExecution) {
	se.RollbackCount++
	s.metricRecorder.RecordChunkRollback(ctx, s.name)
	if err := s.txManager.Rollback(txAdapter); err != nil {
		logger.Errorf("ChunkStep '%s': rollback failed: %v", s.name, err)
	}
}

func (s *ChunkStep[I, O]) txOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: s.isolationLevel}
}

// appendCloseError keeps err as the primary failure and attaches close failures to it.
func appendCloseError(err, closeErr error) error {
	if err == nil {
		return closeErr
	}
	return multierror.Append(err, closeErr)
}
