package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// Tx implements tx.Tx over a *sql.Tx.
type Tx struct {
	tx    *sql.Tx
	style BindStyle
}

var _ tx.Tx = (*Tx)(nil)

// ExecContext executes a statement inside the transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// BindVar returns the placeholder of the 1-based position-th argument.
func (t *Tx) BindVar(position int) string {
	return t.style.Placeholder(position)
}

// SQLTx returns the underlying *sql.Tx.
func (t *Tx) SQLTx() *sql.Tx {
	return t.tx
}

// TransactionManager implements tx.TransactionManager over a *sql.DB.
type TransactionManager struct {
	db    *sql.DB
	style BindStyle
}

var _ tx.TransactionManager = (*TransactionManager)(nil)

// NewTransactionManager creates a manager for db whose transactions render placeholders in style.
func NewTransactionManager(db *sql.DB, style BindStyle) *TransactionManager {
	return &TransactionManager{db: db, style: style}
}

// NewTransactionManagerFor creates a manager for an opened Connection.
func NewTransactionManagerFor(conn *Connection) *TransactionManager {
	return NewTransactionManager(conn.DB(), conn.BindStyle())
}

// Begin starts a transaction.
func (m *TransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 {
		txOpts = opts[0]
	}
	sqlTx, err := m.db.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: sqlTx, style: m.style}, nil
}

// Commit commits t.
func (m *TransactionManager) Commit(t tx.Tx) error {
	sqlTx, ok := t.(*Tx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *sqldb.Tx, got %T", t)
	}
	return sqlTx.tx.Commit()
}

// Rollback rolls back t. A transaction that is already finished is ignored.
func (m *TransactionManager) Rollback(t tx.Tx) error {
	sqlTx, ok := t.(*Tx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *sqldb.Tx, got %T", t)
	}
	if err := sqlTx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
