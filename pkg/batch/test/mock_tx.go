// Package test provides mocks and fixtures shared by the engine's tests.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
type MockTx struct {
	mock.Mock
}

// ExecContext mocks tx.TxExecutor.ExecContext.
func (m *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error) {
	called := m.Called(ctx, query, args)
	return called.Get(0).(int64), called.Error(1)
}

// BindVar returns "?" for every position.
func (m *MockTx) BindVar(position int) string {
	return "?"
}

// MockTxManager is a mock implementation of the tx.TransactionManager interface.
type MockTxManager struct {
	mock.Mock
}

// Begin mocks the Begin method of tx.TransactionManager.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Commit mocks the Commit method of tx.TransactionManager.
func (m *MockTxManager) Commit(t tx.Tx) error {
	return m.Called(t).Error(0)
}

// Rollback mocks the Rollback method of tx.TransactionManager.
func (m *MockTxManager) Rollback(t tx.Tx) error {
	return m.Called(t).Error(0)
}

// RecordingTxManager is a tx.TransactionManager without a database.
// It counts begins, commits and rollbacks and can be told to fail commits.
type RecordingTxManager struct {
	Begins    int
	Commits   int
	Rollbacks int
	// CommitErr, when set, is returned by every Commit.
	CommitErr error
}

// Begin returns a fresh MockTx.
func (m *RecordingTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	m.Begins++
	return &MockTx{}, nil
}

// Commit counts the commit or returns CommitErr.
func (m *RecordingTxManager) Commit(t tx.Tx) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Commits++
	return nil
}

// Rollback counts the rollback.
func (m *RecordingTxManager) Rollback(t tx.Tx) error {
	m.Rollbacks++
	return nil
}

var (
	_ tx.Tx                 = (*MockTx)(nil)
	_ tx.TransactionManager = (*MockTxManager)(nil)
	_ tx.TransactionManager = (*RecordingTxManager)(nil)
)
