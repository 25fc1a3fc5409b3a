package writer_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mongoadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/mongo"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	testutil "github.com/tigerroll/chunkflow/pkg/batch/test"
)

func sqldbTx(t *testing.T, style sqldb.BindStyle) tx.Tx {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlTx, err := sqldb.NewTransactionManager(db, style).Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.NewTransactionManager(db, style).Rollback(sqlTx) })
	return sqlTx
}

func TestBindTypeOf(t *testing.T) {
	tests := []struct {
		name  string
		style sqldb.BindStyle
		want  int
	}{
		{name: "question", style: sqldb.BindQuestion, want: sqlx.QUESTION},
		{name: "dollar", style: sqldb.BindDollar, want: sqlx.DOLLAR},
		{name: "sqlserver", style: sqldb.BindAtP, want: sqlx.AT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := writer.BindTypeOf(sqldbTx(t, tt.style))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindTypeOf_StoreWithoutPlaceholders(t *testing.T) {
	_, err := writer.BindTypeOf(&mongoadapter.Tx{})
	assert.Error(t, err)
}

func TestNamedParameterSqlWriter_RepeatedParameterIsBoundTwice(t *testing.T) {
	mockTx := &testutil.MockTx{}
	mockTx.On("ExecContext", mock.Anything,
		"UPDATE people SET last_name = ? WHERE first_name = ?",
		[]interface{}{"DOE", "DOE"}).Return(int64(1), nil)

	w, err := writer.NewNamedParameterSqlWriter[map[string]interface{}]("w",
		"UPDATE people SET last_name = :name WHERE first_name = :name")
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), mockTx, []map[string]interface{}{{"name": "DOE"}}))

	mockTx.AssertExpectations(t)
}

func TestNamedParameterSqlWriter_DoubleColonIsAnEscapedColon(t *testing.T) {
	mockTx := &testutil.MockTx{}
	mockTx.On("ExecContext", mock.Anything,
		"INSERT INTO notes (body, created) VALUES (?, 'T10:30')",
		[]interface{}{"hello"}).Return(int64(1), nil)

	w, err := writer.NewNamedParameterSqlWriter[map[string]interface{}]("w",
		"INSERT INTO notes (body, created) VALUES (:body, 'T10::30')")
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), mockTx, []map[string]interface{}{{"body": "hello"}}))

	mockTx.AssertExpectations(t)
}

func TestNamedParameterSqlWriter_StoreWithoutPlaceholdersFails(t *testing.T) {
	w, err := writer.NewNamedParameterSqlWriter[person]("w", insertPeople)
	require.NoError(t, err)

	err = w.Write(context.Background(), &mongoadapter.Tx{}, []person{{"JILL", "DOE"}})
	assert.Error(t, err)
}
