package exception_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

func TestTaxonomy(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name     string
		err      error
		sentinel error
		offset   int64
	}{
		{name: "parse", err: exception.NewParseError("reader", "people.csv", 4, cause), sentinel: exception.ErrParse, offset: 4},
		{name: "transform", err: exception.NewTransformError("step1", 3, cause), sentinel: exception.ErrTransform, offset: 3},
		{name: "sink", err: exception.NewSinkError("step1", 11, cause), sentinel: exception.ErrSink, offset: 11},
		{name: "configuration", err: exception.NewConfigurationError("step1", "chunk size"), sentinel: exception.ErrConfiguration, offset: exception.NoOffset},
		{name: "duplicate", err: exception.NewDuplicateExecutionError("job", "{}"), sentinel: exception.ErrDuplicateExecution, offset: exception.NoOffset},
		{name: "locking", err: exception.NewOptimisticLockingFailureException("repo", "stale", nil), sentinel: exception.ErrOptimisticLockingFailure, offset: exception.NoOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.True(t, exception.IsBatchError(tt.err))
			var be *exception.BatchError
			require.ErrorAs(t, tt.err, &be)
			assert.Equal(t, tt.offset, be.Offset)
		})
	}
}

func TestCauseIsPreserved(t *testing.T) {
	err := exception.NewSinkError("step1", 1, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "record 1")

	var pe *exception.ParseError
	parseErr := exception.NewParseError("reader", "people.csv", 2, io.ErrUnexpectedEOF)
	require.ErrorAs(t, parseErr, &pe)
	assert.Equal(t, int64(2), pe.Line)
	assert.ErrorIs(t, parseErr, io.ErrUnexpectedEOF)
}

func TestNewBatchErrorf_WrapsTrailingError(t *testing.T) {
	cause := errors.New("cause")
	err := exception.NewBatchErrorf("module", "failed on %s", "x", cause)

	assert.Equal(t, "failed on x", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[module] failed on x: cause", err.Error())
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "[step1] chunk size", exception.ExtractErrorMessage(exception.NewConfigurationError("step1", "chunk size")))
	assert.True(t, exception.IsOptimisticLockingFailure(exception.NewOptimisticLockingFailureException("repo", "stale", nil)))
	assert.False(t, exception.IsOptimisticLockingFailure(errors.New("other")))
}
