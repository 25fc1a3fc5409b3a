package writer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

func TestMongoItemWriter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts chunk", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		w, err := writer.NewMongoItemWriter[person]("personItemWriter", mt.Coll)
		require.NoError(mt, err)
		assert.NoError(mt, w.Write(context.Background(), nil, []person{{"JILL", "DOE"}, {"JOE", "DOE"}}))
	})

	mt.Run("empty chunk is a no-op", func(mt *mtest.T) {
		w, err := writer.NewMongoItemWriter[person]("personItemWriter", mt.Coll)
		require.NoError(mt, err)
		assert.NoError(mt, w.Write(context.Background(), nil, nil))
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		w, err := writer.NewMongoItemWriter[person]("personItemWriter", mt.Coll)
		require.NoError(mt, err)
		err = w.Write(context.Background(), nil, []person{{"JILL", "DOE"}})
		assert.ErrorContains(mt, err, "duplicate key")
	})
}

func TestNewMongoItemWriter_Validation(t *testing.T) {
	_, err := writer.NewMongoItemWriter[person]("w", nil)
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}
