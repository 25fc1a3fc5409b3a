package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetItemWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection to use.
	StorageRef string `yaml:"storage"`
	// Bucket is the target bucket; empty selects the connection's configured bucket.
	Bucket string `yaml:"bucket"`
	// OutputBaseDir is the directory within the bucket for exported files (e.g., "exports/people").
	OutputBaseDir string `yaml:"output_path"`
	// CompressionType is "SNAPPY" (default), "GZIP" or "NONE".
	CompressionType string `yaml:"compression"`
}

// ParquetItemWriter buffers every item of the step and, on Close, writes one Parquet
// file per partition and uploads it through storage. The chunk transaction is not used;
// nothing is uploaded when the step writes no items.
type ParquetItemWriter[T any] struct {
	name     string
	config   ParquetWriterConfig
	resolver storage.StorageConnectionResolver
	// itemPrototype is used by parquet-go to reflect the schema from `parquet` tags.
	itemPrototype *T
	// partitionKeyFunc returns a Hive-style directory (e.g., "dt=2024-01-31") per item; nil means one file.
	partitionKeyFunc func(T) (string, error)

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	buffered      int64
	uploaded      []string
}

var _ port.ItemWriter[any] = (*ParquetItemWriter[any])(nil)

// NewParquetItemWriter creates a ParquetItemWriter.
func NewParquetItemWriter[T any](
	name string,
	config ParquetWriterConfig,
	resolver storage.StorageConnectionResolver,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetItemWriter[T], error) {
	switch {
	case config.StorageRef == "":
		return nil, exception.NewConfigurationError(name, "parquet writer requires a storage reference")
	case config.OutputBaseDir == "":
		return nil, exception.NewConfigurationError(name, "parquet writer requires an output path")
	case resolver == nil:
		return nil, exception.NewConfigurationError(name, "parquet writer requires a storage resolver")
	case itemPrototype == nil:
		return nil, exception.NewConfigurationError(name, "parquet writer requires an item prototype")
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewConfigurationError(name, err.Error())
	}

	return &ParquetItemWriter[T]{
		name:             name,
		config:           config,
		resolver:         resolver,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears the buffers.
func (w *ParquetItemWriter[T]) Open(ctx context.Context) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError(w.name, fmt.Sprintf("failed to resolve storage connection '%s'", w.config.StorageRef), err)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.buffered = 0
	w.uploaded = nil
	logger.Infof("ParquetItemWriter '%s' opened. Target storage: %s, Base directory: %s", w.name, w.config.StorageRef, w.config.OutputBaseDir)
	return nil
}

// Write buffers items by partition key.
func (w *ParquetItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	for _, item := range items {
		key := ""
		if w.partitionKeyFunc != nil {
			k, err := w.partitionKeyFunc(item)
			if err != nil {
				return fmt.Errorf("failed to get partition key: %w", err)
			}
			key = k
		}
		w.bufferedItems[key] = append(w.bufferedItems[key], item)
		w.buffered++
	}
	return nil
}

// Close writes and uploads one file per partition. Partition failures are aggregated.
func (w *ParquetItemWriter[T]) Close(ctx context.Context) error {
	defer func() {
		w.bufferedItems = make(map[string][]T)
		w.buffered = 0
	}()

	if w.buffered == 0 || w.storageConn == nil {
		logger.Infof("ParquetItemWriter '%s': No records buffered, skipping Parquet file generation.", w.name)
		return nil
	}

	codec, _ := compressionCodec(w.config.CompressionType)

	keys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result *multierror.Error
	for _, key := range keys {
		items := w.bufferedItems[key]
		buf, err := w.encode(items, codec)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("partition '%s': %w", key, err))
			continue
		}

		fileName := fmt.Sprintf("data_%s_%s.parquet", time.Now().Format("20060102150405"), uuid.NewString()[:8])
		objectName := path.Join(w.config.OutputBaseDir, key, fileName)
		if err := w.storageConn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to upload '%s': %w", objectName, err))
			continue
		}
		w.uploaded = append(w.uploaded, objectName)
		logger.Infof("ParquetItemWriter '%s': uploaded %d records to %s.", w.name, len(items), objectName)
	}
	return result.ErrorOrNil()
}

// UploadedObjects returns the object names uploaded by the last Close.
func (w *ParquetItemWriter[T]) UploadedObjects() []string {
	return append([]string(nil), w.uploaded...)
}

func (w *ParquetItemWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	// parquet-go panics on some schema mismatches during flush.
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf, nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
