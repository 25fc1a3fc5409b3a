package reader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// RowMapper maps the current row of rows to an item.
type RowMapper[T any] func(rows *sql.Rows) (T, error)

// SqlCursorReader streams the rows of a query, one item per row.
type SqlCursorReader[T any] struct {
	db        *sql.DB
	name      string
	query     string
	args      []any
	mapper    RowMapper[T]
	rows      *sql.Rows
	readCount int64
}

var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)

// NewSqlCursorReader creates a new instance of SqlCursorReader.
func NewSqlCursorReader[T any](db *sql.DB, name string, query string, args []any, mapper RowMapper[T]) (*SqlCursorReader[T], error) {
	switch {
	case db == nil:
		return nil, exception.NewConfigurationError(name, "sql cursor reader requires a database")
	case query == "":
		return nil, exception.NewConfigurationError(name, "sql cursor reader requires a query")
	case mapper == nil:
		return nil, exception.NewConfigurationError(name, "sql cursor reader requires a row mapper")
	}
	return &SqlCursorReader[T]{
		db:     db,
		name:   name,
		query:  query,
		args:   args,
		mapper: mapper,
	}, nil
}

// Open executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	logger.Infof("SqlCursorReader '%s': Starting read. Query: %s", r.name, r.query)
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return exception.NewBatchError(r.name, "failed to execute query", err)
	}
	r.rows = rows
	r.readCount = 0
	return nil
}

// Read returns the next row, or port.ErrNoMoreItems after the last one.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, exception.NewBatchError(r.name, "reader not opened or already closed", nil)
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.NewBatchError(r.name, "error during row iteration", err)
		}
		return item, port.ErrNoMoreItems
	}
	r.readCount++

	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewParseError(r.name, r.query, r.readCount, fmt.Errorf("failed to map row: %w", err))
	}
	return mapped, nil
}

// Close releases the cursor.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	if err != nil {
		return exception.NewBatchError(r.name, "failed to close rows", err)
	}
	logger.Debugf("SqlCursorReader '%s': %d rows read, cursor closed.", r.name, r.readCount)
	return nil
}
