// Package exception provides the error types shared by the chunkflow batch engine.
// Every engine failure is surfaced as a *BatchError wrapping one of the sentinel
// errors below, so callers can classify failures with errors.Is.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors of the engine's error taxonomy.
var (
	// ErrParse marks a malformed source record.
	ErrParse = errors.New("ParseError")
	// ErrTransform marks a record rejected by a transformer.
	ErrTransform = errors.New("TransformError")
	// ErrSink marks a write or transaction failure.
	ErrSink = errors.New("SinkError")
	// ErrConfiguration marks an invalid step or job definition.
	ErrConfiguration = errors.New("ConfigurationError")
	// ErrDuplicateExecution marks a launch with parameters of an already completed execution.
	ErrDuplicateExecution = errors.New("DuplicateExecutionError")
	// ErrOptimisticLockingFailure marks a stale update of a persisted execution.
	ErrOptimisticLockingFailure = errors.New("OptimisticLockingFailureException")
	// ErrJobRepository marks execution state that could not be persisted.
	ErrJobRepository = errors.New("JobRepositoryError")
)

// NoOffset is the Offset of a BatchError that is not tied to a record.
const NoOffset int64 = -1

// BatchError is the error type produced by the batch engine.
// It holds the module (usually a step or component name) where the error occurred,
// a message, the wrapped original error and, when known, the offset of the record involved.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "step1", "reader", "launcher").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped error chain, including the taxonomy sentinel.
	OriginalErr error
	// Offset is the 1-based position of the record in the source, or NoOffset.
	Offset int64
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance not tied to any record.
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// Returns: A new BatchError instance.
func NewBatchError(module, message string, originalErr error) *BatchError {
	return newBatchError(module, message, originalErr, NoOffset)
}

// NewBatchErrorf creates a new BatchError instance using a format string.
// If the last argument is an error, it is wrapped as the original error and
// the remaining arguments are used for fmt.Sprintf.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return newBatchError(module, fmt.Sprintf(format, args...), originalErr, NoOffset)
}

func newBatchError(module, message string, originalErr error, offset int64) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Offset:      offset,
		StackTrace:  string(buf[:n]),
	}
}

// join attaches the taxonomy sentinel to the original error.
func join(sentinel, originalErr error) error {
	if originalErr == nil {
		return sentinel
	}
	if errors.Is(originalErr, sentinel) {
		return originalErr
	}
	return errors.Join(sentinel, originalErr)
}

// ParseError describes a source record that could not be decoded.
type ParseError struct {
	// Resource is the name of the input resource.
	Resource string
	// Line is the 1-based line number of the malformed record.
	Line int64
	// Err is the decoding failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing error at line %d in resource '%s': %v", e.Line, e.Resource, e.Err)
}

// Unwrap returns the taxonomy sentinel and the decoding failure.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// NewParseError creates a BatchError wrapping a ParseError.
// module: The component reporting the error (usually the reader name).
// resource: The input resource name.
// line: The 1-based line number of the malformed record.
// err: The decoding failure.
// Returns: A new BatchError instance.
func NewParseError(module, resource string, line int64, err error) *BatchError {
	pe := &ParseError{Resource: resource, Line: line, Err: err}
	return newBatchError(module, pe.Error(), pe, line)
}

// NewTransformError creates a BatchError for a record rejected by a transformer.
// offset is the 1-based position of the record in the source.
func NewTransformError(module string, offset int64, err error) *BatchError {
	return newBatchError(module, fmt.Sprintf("failed to transform record %d", offset), join(ErrTransform, err), offset)
}

// NewSinkError creates a BatchError for a failed chunk write or commit.
// offset is the source position of the first record of the failed chunk.
func NewSinkError(module string, offset int64, err error) *BatchError {
	return newBatchError(module, fmt.Sprintf("failed to write chunk starting at record %d", offset), join(ErrSink, err), offset)
}

// NewConfigurationError creates a BatchError for an invalid definition.
func NewConfigurationError(module, message string) *BatchError {
	return newBatchError(module, message, ErrConfiguration, NoOffset)
}

// NewDuplicateExecutionError creates a BatchError for a launch that reuses the
// parameters of an already completed execution.
// params is the masked string form of the parameters.
func NewDuplicateExecutionError(jobName, params string) *BatchError {
	return newBatchError(
		jobName,
		fmt.Sprintf("a completed execution of job '%s' already exists for parameters %s", jobName, params),
		ErrDuplicateExecution,
		NoOffset,
	)
}

// NewJobRepositoryError creates a BatchError for a failed save or update of execution state.
func NewJobRepositoryError(module, message string, err error) *BatchError {
	return newBatchError(module, message, join(ErrJobRepository, err), NoOffset)
}

// NewOptimisticLockingFailureException creates a BatchError indicating an optimistic locking failure.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *BatchError {
	return newBatchError(module, message, join(ErrOptimisticLockingFailure, originalErr), NoOffset)
}

// Error implements the error interface.
// It returns the error's module, message, and the string representation of the original error.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil && !strings.Contains(e.Message, e.OriginalErr.Error()) {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError determines if the given error chain contains a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	return err != nil && errors.Is(err, ErrOptimisticLockingFailure)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field prefixed with the module.
// Otherwise, it returns the standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return fmt.Sprintf("[%s] %s", be.Module, be.Message)
	}
	return err.Error()
}
