package item_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/engine/step/item"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkflow/pkg/batch/test"
)

func numbers(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

var double = port.ItemProcessorFunc[int, int](func(ctx context.Context, v int) (int, error) {
	return v * 2, nil
})

type fixture struct {
	repo   *inmemory.InMemoryJobRepository
	txm    *testutil.RecordingTxManager
	reader *testutil.SliceReader[int]
	writer *testutil.RecordingWriter[int]
	je     *model.JobExecution
	se     *model.StepExecution
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		repo:   inmemory.NewInMemoryJobRepository(),
		txm:    &testutil.RecordingTxManager{},
		reader: testutil.NewSliceReader(numbers(n)...),
		writer: &testutil.RecordingWriter[int]{},
	}
	f.je, f.se = testutil.NewTestStepExecution("testJob", "step1")
	ctx := context.Background()
	require.NoError(t, f.repo.SaveJobExecution(ctx, f.je))
	require.NoError(t, f.repo.SaveStepExecution(ctx, f.se))
	return f
}

func (f *fixture) step(t *testing.T, processor port.ItemProcessor[int, int], chunkSize int, opts ...item.Option) *item.ChunkStep[int, int] {
	t.Helper()
	s, err := item.NewChunkStep[int, int]("step1", f.reader, processor, f.writer, chunkSize, f.txm, f.repo, opts...)
	require.NoError(t, err)
	return s
}

func TestChunkStep_CommitsInChunks(t *testing.T) {
	f := newFixture(t, 25)

	err := f.step(t, double, 10).Execute(context.Background(), f.je, f.se)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, f.writer.ChunkSizes())
	assert.Equal(t, 2, f.writer.Written()[0])
	assert.Equal(t, 50, f.writer.Written()[24])
	assert.Equal(t, model.StepStatusCompleted, f.se.Status)
	assert.Equal(t, 25, f.se.ReadCount)
	assert.Equal(t, 25, f.se.WriteCount)
	assert.Equal(t, 3, f.se.CommitCount)
	assert.Equal(t, 0, f.se.RollbackCount)
	assert.Equal(t, 3, f.txm.Commits)
	assert.True(t, f.reader.Closed)
	assert.True(t, f.writer.Closed)

	stored, err := f.repo.FindStepExecutionByID(context.Background(), f.se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.CommitCount)
}

func TestChunkStep_CommitCountIsCeilOfItemsOverChunkSize(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 25, 100} {
		for _, size := range []int{1, 3, 10} {
			t.Run(fmt.Sprintf("items=%d/size=%d", n, size), func(t *testing.T) {
				f := newFixture(t, n)
				require.NoError(t, f.step(t, double, size).Execute(context.Background(), f.je, f.se))

				want := (n + size - 1) / size
				assert.Equal(t, want, f.se.CommitCount)
				assert.Equal(t, want, f.txm.Commits)
				assert.Equal(t, n, f.se.WriteCount)
				for i, got := range f.writer.ChunkSizes() {
					if i < want-1 {
						assert.Equal(t, size, got)
					} else {
						assert.LessOrEqual(t, got, size)
					}
				}
			})
		}
	}
}

func TestChunkStep_TransformFailureRollsBackCurrentChunk(t *testing.T) {
	f := newFixture(t, 25)
	boom := errors.New("bad record")
	processor := port.ItemProcessorFunc[int, int](func(ctx context.Context, v int) (int, error) {
		if v == 3 {
			return 0, boom
		}
		return v, nil
	})

	err := f.step(t, processor, 10).Execute(context.Background(), f.je, f.se)
	require.Error(t, err)

	assert.ErrorIs(t, err, exception.ErrTransform)
	assert.ErrorIs(t, err, boom)
	var be *exception.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(3), be.Offset)

	assert.Empty(t, f.writer.Written())
	assert.Equal(t, 0, f.txm.Commits)
	assert.Equal(t, 1, f.txm.Rollbacks)
	assert.Equal(t, 1, f.se.RollbackCount)
	assert.Equal(t, model.StepStatusFailed, f.se.Status)
	assert.NotEmpty(t, f.se.Failures)
	assert.True(t, f.reader.Closed)
}

func TestChunkStep_SinkFailureKeepsEarlierChunks(t *testing.T) {
	f := newFixture(t, 25)
	boom := errors.New("disk full")
	f.writer.FailOnChunk = 2
	f.writer.FailErr = boom

	err := f.step(t, double, 10).Execute(context.Background(), f.je, f.se)
	require.Error(t, err)

	assert.ErrorIs(t, err, exception.ErrSink)
	assert.ErrorIs(t, err, boom)
	var be *exception.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(11), be.Offset)

	assert.Equal(t, []int{10}, f.writer.ChunkSizes())
	assert.Equal(t, 1, f.se.CommitCount)
	assert.Equal(t, 10, f.se.WriteCount)
	assert.Equal(t, 1, f.se.RollbackCount)
	assert.Equal(t, model.StepStatusFailed, f.se.Status)
}

func TestChunkStep_CommitFailureIsSinkError(t *testing.T) {
	f := newFixture(t, 5)
	f.txm.CommitErr = errors.New("commit refused")

	err := f.step(t, double, 10).Execute(context.Background(), f.je, f.se)

	assert.ErrorIs(t, err, exception.ErrSink)
	assert.Equal(t, 0, f.se.CommitCount)
	assert.Equal(t, 0, f.se.WriteCount)
	assert.Equal(t, 1, f.se.RollbackCount)
}

func TestChunkStep_ReadFailureReportsOffset(t *testing.T) {
	f := newFixture(t, 25)
	f.reader.FailAt = 12
	f.reader.FailErr = errors.New("truncated line")

	err := f.step(t, double, 10).Execute(context.Background(), f.je, f.se)
	require.Error(t, err)

	var be *exception.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(12), be.Offset)
	assert.Equal(t, []int{10}, f.writer.ChunkSizes())
	assert.Equal(t, 11, f.se.ReadCount)
}

func TestChunkStep_SkippedItemsAreNotWritten(t *testing.T) {
	f := newFixture(t, 10)
	oddOnly := port.ItemProcessorFunc[int, int](func(ctx context.Context, v int) (int, error) {
		if v%2 == 0 {
			return 0, port.ErrSkipItem
		}
		return v, nil
	})

	require.NoError(t, f.step(t, oddOnly, 3).Execute(context.Background(), f.je, f.se))

	assert.Equal(t, []int{1, 3, 5, 7, 9}, f.writer.Written())
	assert.Equal(t, 10, f.se.ReadCount)
	assert.Equal(t, 5, f.se.SkipCount)
	assert.Equal(t, 5, f.se.WriteCount)
	assert.Equal(t, 2, f.se.CommitCount)
}

type cancelAfterChunk struct {
	cancel context.CancelFunc
}

func (c cancelAfterChunk) BeforeChunk(ctx context.Context, se *model.StepExecution) {}
func (c cancelAfterChunk) AfterChunk(ctx context.Context, se *model.StepExecution)  { c.cancel() }

func TestChunkStep_CancellationStopsBetweenChunks(t *testing.T) {
	f := newFixture(t, 25)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := f.step(t, double, 10, item.WithChunkListeners(cancelAfterChunk{cancel: cancel}))
	err := s.Execute(ctx, f.je, f.se)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{10}, f.writer.ChunkSizes())
	assert.Equal(t, 1, f.se.CommitCount)
	assert.Equal(t, model.StepStatusFailed, f.se.Status)

	// The final state reaches the repository despite the canceled context.
	stored, err := f.repo.FindStepExecutionByID(context.Background(), f.se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusFailed, stored.Status)
}

// sqlItemWriter inserts every item into the items table.
type sqlItemWriter struct{}

func (sqlItemWriter) Open(ctx context.Context) error  { return nil }
func (sqlItemWriter) Close(ctx context.Context) error { return nil }

func (sqlItemWriter) Write(ctx context.Context, t tx.Tx, items []int) error {
	for _, v := range items {
		if _, err := t.ExecContext(ctx, "INSERT INTO items (v) VALUES ("+t.BindVar(1)+")", v); err != nil {
			return err
		}
	}
	return nil
}

func TestChunkStep_CancellationDuringChunkCommitsThatChunk(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE items (v INTEGER NOT NULL)")
	require.NoError(t, err)

	f := newFixture(t, 6)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnSecond := port.ItemProcessorFunc[int, int](func(ctx context.Context, v int) (int, error) {
		if v == 2 {
			cancel()
		}
		return v, nil
	})

	s, err := item.NewChunkStep[int, int]("step1", f.reader, cancelOnSecond, sqlItemWriter{}, 3,
		sqldb.NewTransactionManager(db, sqldb.BindQuestion), f.repo)
	require.NoError(t, err)
	err = s.Execute(ctx, f.je, f.se)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, exception.ErrSink)

	var committed int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&committed))
	assert.Equal(t, 3, committed)
	assert.Equal(t, 1, f.se.CommitCount)
	assert.Equal(t, 0, f.se.RollbackCount)
	assert.Equal(t, 3, f.se.WriteCount)
}

func TestChunkStep_IsolationLevelIsPassedToBegin(t *testing.T) {
	f := newFixture(t, 1)
	txm := &testutil.MockTxManager{}
	mockTx := &testutil.MockTx{}
	txm.On("Begin", mock.Anything, mock.MatchedBy(func(opts []*sql.TxOptions) bool {
		return len(opts) == 1 && opts[0].Isolation == sql.LevelSerializable
	})).Return(mockTx, nil)
	txm.On("Commit", mockTx).Return(nil)
	txm.On("Rollback", mockTx).Return(nil)

	s, err := item.NewChunkStep[int, int]("step1", f.reader, double, f.writer, 10, txm, f.repo, item.WithIsolationLevel("serializable"))
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), f.je, f.se))

	txm.AssertCalled(t, "Commit", mockTx)
	assert.Equal(t, []int{2}, f.writer.Written())
}

func TestNewChunkStep_RejectsInvalidDefinitions(t *testing.T) {
	f := newFixture(t, 0)
	tests := []struct {
		name      string
		stepName  string
		reader    port.ItemReader[int]
		chunkSize int
	}{
		{name: "zero chunk size", stepName: "step1", reader: f.reader, chunkSize: 0},
		{name: "negative chunk size", stepName: "step1", reader: f.reader, chunkSize: -1},
		{name: "missing reader", stepName: "step1", reader: nil, chunkSize: 10},
		{name: "missing name", stepName: "", reader: f.reader, chunkSize: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := item.NewChunkStep[int, int](tt.stepName, tt.reader, double, f.writer, tt.chunkSize, f.txm, f.repo)
			assert.ErrorIs(t, err, exception.ErrConfiguration)
		})
	}
}
