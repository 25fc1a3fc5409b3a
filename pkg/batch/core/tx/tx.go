// Package tx defines the transaction abstraction the chunk engine commits through.
// Concrete managers live in the database adapters (GORM, database/sql, MongoDB).
package tx

import (
	"context"
	"database/sql"
	"errors"
)

// ErrUnsupportedOperation is returned by a Tx that cannot serve an operation,
// e.g. raw SQL on a document store transaction.
var ErrUnsupportedOperation = errors.New("operation not supported by this transaction")

// TxExecutor defines the write operations executable within a transaction.
type TxExecutor interface {
	// ExecContext executes a parameterized statement inside the transaction.
	//
	// ctx: The context for the operation.
	// query: The statement, using the placeholders returned by BindVar.
	// args: The positional arguments.
	// Returns: The number of affected rows, or an error.
	ExecContext(ctx context.Context, query string, args ...interface{}) (rowsAffected int64, err error)
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor

	// BindVar returns the placeholder for the 1-based position-th argument
	// in the dialect of the underlying store ("?", "$1", "@p1").
	BindVar(position int) string
}

// TransactionManager begins, commits and rolls back transactions.
type TransactionManager interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits tx.
	Commit(tx Tx) error
	// Rollback rolls back tx. Rolling back a finished transaction is not an error.
	Rollback(tx Tx) error
}
