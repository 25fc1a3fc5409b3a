package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// GormTx implements tx.Tx over a GORM transaction.
type GormTx struct {
	db *gorm.DB
}

var _ tx.Tx = (*GormTx)(nil)

// ExecContext executes a statement with "?" placeholders inside the transaction.
// GORM rewrites the placeholders for the dialect in use.
func (t *GormTx) ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result := t.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// BindVar returns "?" for every position.
func (t *GormTx) BindVar(position int) string {
	return "?"
}

// DB returns the transaction-scoped *gorm.DB.
func (t *GormTx) DB() *gorm.DB {
	return t.db
}

// GormTransactionManager implements tx.TransactionManager with GORM transactions.
type GormTransactionManager struct {
	source func(ctx context.Context) (*gorm.DB, error)
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

// NewGormTransactionManager creates a manager whose transactions run on the datasource dbName.
// The connection is resolved on every Begin, so a reconnected pool is picked up.
func NewGormTransactionManager(resolver database.DBConnectionResolver, dbName string) *GormTransactionManager {
	return &GormTransactionManager{
		source: func(ctx context.Context) (*gorm.DB, error) {
			conn, err := resolver.ResolveDBConnection(ctx, dbName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", dbName, err)
			}
			return GormDBFrom(conn)
		},
	}
}

// NewGormTransactionManagerFromDB creates a manager whose transactions run on db.
func NewGormTransactionManagerFromDB(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{
		source: func(context.Context) (*gorm.DB, error) { return db, nil },
	}
}

// Begin starts a GORM transaction.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	gormDB, err := m.source(ctx)
	if err != nil {
		return nil, err
	}

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := gormDB.WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTx{db: gormTx}, nil
}

// Commit commits t.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTx, ok := t.(*GormTx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTx, got %T", t)
	}
	return gormTx.db.Commit().Error
}

// Rollback rolls back t. A transaction that is already finished is ignored.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTx, ok := t.(*GormTx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTx, got %T", t)
	}
	if err := gormTx.db.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// TransactionManagerFactory creates transaction managers per datasource name.
type TransactionManagerFactory struct {
	resolver database.DBConnectionResolver
}

// NewTransactionManagerFactory creates a new TransactionManagerFactory.
func NewTransactionManagerFactory(resolver database.DBConnectionResolver) *TransactionManagerFactory {
	return &TransactionManagerFactory{resolver: resolver}
}

// NewTransactionManager returns a manager for the datasource dbName.
func (f *TransactionManagerFactory) NewTransactionManager(dbName string) tx.TransactionManager {
	return NewGormTransactionManager(f.resolver, dbName)
}
