package writer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

type person struct {
	FirstName string `name:"firstName" bson:"first_name" parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `name:"lastName" bson:"last_name" parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

const insertPeople = "INSERT INTO people (first_name, last_name) VALUES (:firstName, :lastName)"

func TestNamedParameterSqlWriter_WritesChunkInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO people (first_name, last_name) VALUES ($1, $2)").
		WithArgs("JILL", "DOE").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO people (first_name, last_name) VALUES ($1, $2)").
		WithArgs("JOE", "DOE").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	w, err := writer.NewNamedParameterSqlWriter[person]("personItemWriter", insertPeople)
	require.NoError(t, err)

	ctx := context.Background()
	txm := sqldb.NewTransactionManager(db, sqldb.BindDollar)
	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, []person{{"JILL", "DOE"}, {"JOE", "DOE"}}))
	require.NoError(t, txm.Commit(tx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNamedParameterSqlWriter_ExecFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO people (first_name, last_name) VALUES (?, ?)").
		WithArgs("JILL", "DOE").WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	w, err := writer.NewNamedParameterSqlWriter[person]("personItemWriter", insertPeople)
	require.NoError(t, err)

	ctx := context.Background()
	txm := sqldb.NewTransactionManager(db, sqldb.BindQuestion)
	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	err = w.Write(ctx, tx, []person{{"JILL", "DOE"}, {"JOE", "DOE"}})
	assert.ErrorContains(t, err, "value too long")
	require.NoError(t, txm.Rollback(tx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNamedParameterSqlWriter_MapItems(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t (a) VALUES (?)").WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))

	w, err := writer.NewNamedParameterSqlWriter[map[string]interface{}]("mapWriter", "INSERT INTO t (a) VALUES (:a)")
	require.NoError(t, err)

	txm := sqldb.NewTransactionManager(db, sqldb.BindQuestion)
	tx, err := txm.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), tx, []map[string]interface{}{{"a": 1}}))

	err = w.Write(context.Background(), tx, []map[string]interface{}{{"b": 1}})
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestNamedParameterSqlWriter_SQLServerPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO people (first_name, last_name) VALUES (@p1, @p2)").
		WithArgs("JANE", "DOE").WillReturnResult(sqlmock.NewResult(1, 1))

	w, err := writer.NewNamedParameterSqlWriter[person]("personItemWriter", insertPeople)
	require.NoError(t, err)

	txm := sqldb.NewTransactionManager(db, sqldb.BindAtP)
	tx, err := txm.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), tx, []person{{"JANE", "DOE"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewNamedParameterSqlWriter_Validation(t *testing.T) {
	_, err := writer.NewNamedParameterSqlWriter[person]("w", "")
	assert.ErrorIs(t, err, exception.ErrConfiguration)
	_, err = writer.NewNamedParameterSqlWriter[person]("w", "DELETE FROM people")
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}
