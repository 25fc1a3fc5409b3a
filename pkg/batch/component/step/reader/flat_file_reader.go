// Package reader provides item readers for flat files and SQL cursors.
package reader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// FlatFileReader reads a delimited resource line by line and maps each line to T.
// Columns are assigned positionally to the configured field names.
type FlatFileReader[T any] struct {
	name       string
	resource   string
	opener     ResourceOpener
	fieldNames []string
	mapper     FieldSetMapper[T]
	flatFileOptions

	// resolved is the resource name after expression resolution.
	resolved string
	source   io.ReadCloser
	csv      *csv.Reader
}

var _ port.ItemReader[any] = (*FlatFileReader[any])(nil)

type flatFileOptions struct {
	delimiter   rune
	linesToSkip int
	lazyQuotes  bool
	comment     rune
	resolver    port.ExpressionResolver
}

// FlatFileOption configures a FlatFileReader.
type FlatFileOption func(*flatFileOptions)

// WithDelimiter sets the column delimiter. The default is ','.
func WithDelimiter(delimiter rune) FlatFileOption {
	return func(o *flatFileOptions) { o.delimiter = delimiter }
}

// WithLinesToSkip skips n leading records, e.g. a header line.
func WithLinesToSkip(n int) FlatFileOption {
	return func(o *flatFileOptions) { o.linesToSkip = n }
}

// WithLazyQuotes accepts quotes inside unquoted fields and unescaped quotes inside quoted fields.
func WithLazyQuotes(lazy bool) FlatFileOption {
	return func(o *flatFileOptions) { o.lazyQuotes = lazy }
}

// WithComment ignores lines starting with the comment character.
func WithComment(comment rune) FlatFileOption {
	return func(o *flatFileOptions) { o.comment = comment }
}

// WithResourceResolver resolves #{...} expressions in the resource name on Open,
// against the StepExecution found in the context.
func WithResourceResolver(resolver port.ExpressionResolver) FlatFileOption {
	return func(o *flatFileOptions) { o.resolver = resolver }
}

// NewFlatFileReader creates a FlatFileReader.
//
// name: The component name used in errors and logs.
// resource: The resource name handed to opener; it may contain #{...} expressions.
// fieldNames: The column names, in column order. Every line must have exactly this many columns.
// mapper: Maps each FieldSet to an item.
func NewFlatFileReader[T any](
	name string,
	resource string,
	opener ResourceOpener,
	fieldNames []string,
	mapper FieldSetMapper[T],
	opts ...FlatFileOption,
) (*FlatFileReader[T], error) {
	switch {
	case resource == "":
		return nil, exception.NewConfigurationError(name, "flat file reader requires a resource")
	case opener == nil:
		return nil, exception.NewConfigurationError(name, "flat file reader requires a resource opener")
	case len(fieldNames) == 0:
		return nil, exception.NewConfigurationError(name, "flat file reader requires field names")
	case mapper == nil:
		return nil, exception.NewConfigurationError(name, "flat file reader requires a field set mapper")
	}

	r := &FlatFileReader[T]{
		name:            name,
		resource:        resource,
		opener:          opener,
		fieldNames:      append([]string(nil), fieldNames...),
		mapper:          mapper,
		flatFileOptions: flatFileOptions{delimiter: ','},
	}
	for _, opt := range opts {
		opt(&r.flatFileOptions)
	}
	return r, nil
}

// Open resolves and opens the resource and skips the configured leading lines.
func (r *FlatFileReader[T]) Open(ctx context.Context) error {
	resource := r.resource
	if r.resolver != nil {
		se := port.GetStepExecutionFromContext(ctx)
		resolved, err := r.resolver.Resolve(ctx, resource, nil, se)
		if err != nil {
			return exception.NewBatchError(r.name, fmt.Sprintf("failed to resolve resource '%s'", resource), err)
		}
		resource = resolved
	}
	r.resolved = resource

	source, err := r.opener.OpenResource(ctx, resource)
	if err != nil {
		return exception.NewBatchError(r.name, fmt.Sprintf("failed to open resource '%s'", resource), err)
	}
	r.source = source

	cr := csv.NewReader(source)
	cr.Comma = r.delimiter
	cr.Comment = r.comment
	cr.LazyQuotes = r.lazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	r.csv = cr

	for i := 0; i < r.linesToSkip; i++ {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			parseErr := r.parseError(err)
			_ = r.Close(ctx)
			return parseErr
		}
	}
	logger.Debugf("FlatFileReader '%s' opened resource '%s'.", r.name, resource)
	return nil
}

// Read returns the next mapped line, or port.ErrNoMoreItems at the end of the resource.
func (r *FlatFileReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.csv == nil {
		return zero, exception.NewBatchError(r.name, "reader not opened or already closed", nil)
	}

	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return zero, port.ErrNoMoreItems
		}
		return zero, r.parseError(err)
	}
	line, _ := r.csv.FieldPos(0)

	if len(record) != len(r.fieldNames) {
		return zero, exception.NewParseError(r.name, r.resolved, int64(line),
			fmt.Errorf("expected %d columns but found %d", len(r.fieldNames), len(record)))
	}

	item, err := r.mapper.MapFieldSet(FieldSet{Names: r.fieldNames, Values: record, Line: int64(line)})
	if err != nil {
		return zero, exception.NewParseError(r.name, r.resolved, int64(line), err)
	}
	return item, nil
}

// Close closes the resource.
func (r *FlatFileReader[T]) Close(ctx context.Context) error {
	r.csv = nil
	if r.source == nil {
		return nil
	}
	err := r.source.Close()
	r.source = nil
	if err != nil {
		return exception.NewBatchError(r.name, fmt.Sprintf("failed to close resource '%s'", r.resolved), err)
	}
	return nil
}

// Resource returns the resolved resource name of the last Open.
func (r *FlatFileReader[T]) Resource() string {
	return r.resolved
}

func (r *FlatFileReader[T]) parseError(err error) error {
	var line int64
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		line = int64(csvErr.StartLine)
	}
	return exception.NewParseError(r.name, r.resolved, line, err)
}
