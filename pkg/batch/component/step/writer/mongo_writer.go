package writer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/mongo"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// MongoItemWriter inserts each chunk into a collection with one ordered InsertMany.
// Items are encoded through their bson tags.
type MongoItemWriter[T any] struct {
	name       string
	collection *mongo.Collection
}

var _ port.ItemWriter[any] = (*MongoItemWriter[any])(nil)

// NewMongoItemWriter creates a MongoItemWriter for collection.
func NewMongoItemWriter[T any](name string, collection *mongo.Collection) (*MongoItemWriter[T], error) {
	if collection == nil {
		return nil, exception.NewConfigurationError(name, "mongo writer requires a collection")
	}
	return &MongoItemWriter[T]{name: name, collection: collection}, nil
}

// Open implements port.ItemWriter.
func (w *MongoItemWriter[T]) Open(ctx context.Context) error {
	return nil
}

// Write inserts items. When t is a Mongo transaction the insert joins its session.
func (w *MongoItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	writeCtx := ctx
	if mt, ok := t.(*mongoadapter.Tx); ok && mt.Context() != nil {
		writeCtx = mt.Context()
	}

	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = item
	}
	result, err := w.collection.InsertMany(writeCtx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to insert %d documents into '%s': %w", len(items), w.collection.Name(), err)
	}
	logger.Debugf("MongoItemWriter '%s': inserted %d documents into '%s'.", w.name, len(result.InsertedIDs), w.collection.Name())
	return nil
}

// Close implements port.ItemWriter. The client is owned by the caller.
func (w *MongoItemWriter[T]) Close(ctx context.Context) error {
	return nil
}
