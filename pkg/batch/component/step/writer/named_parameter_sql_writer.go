// Package writer provides item writers for SQL databases, MongoDB and Parquet files.
package writer

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// NamedParameterSqlWriter executes a statement with named parameters once per item,
// inside the chunk transaction.
//
//	INSERT INTO people (first_name, last_name) VALUES (:firstName, :lastName)
//
// Items are converted to parameter maps through their `name` struct tags;
// a map[string]interface{} item is used as is.
type NamedParameterSqlWriter[T any] struct {
	name      string
	statement string
}

var _ port.ItemWriter[any] = (*NamedParameterSqlWriter[any])(nil)

// NewNamedParameterSqlWriter creates a writer for statement. A statement without parameters is rejected.
func NewNamedParameterSqlWriter[T any](name, statement string) (*NamedParameterSqlWriter[T], error) {
	if statement == "" {
		return nil, exception.NewConfigurationError(name, "sql writer requires a statement")
	}
	if !hasNamedParameters(statement) {
		return nil, exception.NewConfigurationError(name, fmt.Sprintf("statement has no named parameters: %s", statement))
	}
	return &NamedParameterSqlWriter[T]{name: name, statement: statement}, nil
}

// Open implements port.ItemWriter.
func (w *NamedParameterSqlWriter[T]) Open(ctx context.Context) error {
	return nil
}

// Write executes the statement for every item in t.
func (w *NamedParameterSqlWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	bindType, err := BindTypeOf(t)
	if err != nil {
		return err
	}

	for i, item := range items {
		params, err := toParameterMap(item)
		if err != nil {
			return exception.NewBatchError(w.name, fmt.Sprintf("failed to convert item %d of chunk to parameters", i+1), err)
		}
		query, args, err := compileNamed(w.statement, bindType, params)
		if err != nil {
			return exception.NewConfigurationError(w.name, fmt.Sprintf("cannot bind item %d of chunk: %v", i+1, err))
		}
		if _, err := t.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to execute statement for item %d of chunk: %w", i+1, err)
		}
	}
	logger.Debugf("NamedParameterSqlWriter '%s': wrote %d items.", w.name, len(items))
	return nil
}

// Close implements port.ItemWriter.
func (w *NamedParameterSqlWriter[T]) Close(ctx context.Context) error {
	return nil
}

func toParameterMap(item interface{}) (map[string]interface{}, error) {
	if m, ok := item.(map[string]interface{}); ok {
		return m, nil
	}
	params := make(map[string]interface{})
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &params,
		TagName: "name",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(item); err != nil {
		return nil, err
	}
	return params, nil
}
