package person

import (
	"context"
	"database/sql"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
	"github.com/tigerroll/chunkflow/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/core/job/runner"
	"github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
	"github.com/tigerroll/chunkflow/pkg/batch/engine/step/item"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// JobParams holds everything importUserJob is built from.
type JobParams struct {
	Cfg        *config.Config
	AppConfig  AppConfig
	Repository repository.JobRepository
	Sink       *Sink
	// Storage resolves the input resource and the export target. Only needed when either uses storage.
	Storage        storage.StorageConnectionResolver
	Resolver       port.ExpressionResolver
	Incrementer    port.JobParametersIncrementer
	JobListeners   []port.JobExecutionListener
	StepListeners  []port.StepExecutionListener
	ChunkListeners []port.ChunkListener
	Recorder       metrics.MetricRecorder
	Tracer         metrics.Tracer
}

// NewJob builds importUserJob: step1 imports the input file into the sink and, when enabled,
// exportPeople exports the people table to Parquet.
func NewJob(ctx context.Context, p JobParams) (*runner.SimpleJob, error) {
	if p.Sink == nil {
		return nil, exception.NewConfigurationError(JobName, "sink is required")
	}

	importStep, err := newImportStep(ctx, p)
	if err != nil {
		return nil, err
	}
	steps := []port.Step{importStep}

	if p.AppConfig.Export.Enabled {
		exportStep, err := newExportStep(p)
		if err != nil {
			return nil, err
		}
		steps = append(steps, exportStep)
	}

	listeners := append([]port.JobExecutionListener{NewCompletionListener(p.Sink.Finder)}, p.JobListeners...)
	return runner.NewSimpleJob(JobName, p.Repository, steps,
		runner.WithJobListeners(listeners...),
		runner.WithIncrementer(p.Incrementer),
		runner.WithJobMetricRecorder(p.Recorder),
		runner.WithJobTracer(p.Tracer),
	)
}

func (p JobParams) stepOptions() []item.Option {
	return []item.Option{
		item.WithStepExecutionListeners(p.StepListeners...),
		item.WithChunkListeners(p.ChunkListeners...),
		item.WithMetricRecorder(p.Recorder),
		item.WithTracer(p.Tracer),
	}
}

func newImportStep(ctx context.Context, p JobParams) (port.Step, error) {
	importCfg := p.AppConfig.Import

	var opener reader.ResourceOpener = reader.FSResource{FS: Resources()}
	if importCfg.Storage != "" {
		if p.Storage == nil {
			return nil, exception.NewConfigurationError(ImportStepName, "reading from storage needs the storage module")
		}
		conn, err := p.Storage.ResolveStorageConnection(ctx, importCfg.Storage)
		if err != nil {
			return nil, err
		}
		opener = reader.StorageResource{Executor: conn, Bucket: importCfg.Bucket}
	}

	opts := []reader.FlatFileOption{
		reader.WithDelimiter(importCfg.DelimiterRune()),
		reader.WithLinesToSkip(importCfg.HeaderLines),
	}
	if p.Resolver != nil {
		opts = append(opts, reader.WithResourceResolver(p.Resolver))
	}
	rdr, err := reader.NewFlatFileReader[Person](
		"personItemReader",
		importCfg.Resource,
		opener,
		importCfg.FieldNames,
		reader.NewBeanWrapperFieldSetMapper[Person](),
		opts...,
	)
	if err != nil {
		return nil, err
	}

	return item.NewChunkStep[Person, Person](
		ImportStepName,
		rdr,
		NewItemProcessor(),
		p.Sink.Writer,
		p.Cfg.Chunkflow.Batch.ChunkSize,
		p.Sink.TxManager,
		p.Repository,
		p.stepOptions()...,
	)
}

func newExportStep(p JobParams) (port.Step, error) {
	exportCfg := p.AppConfig.Export
	if p.Sink.DB == nil {
		return nil, exception.NewConfigurationError(ExportStepName, "the export step needs a SQL sink")
	}
	rdr, err := reader.NewSqlCursorReader[Person](p.Sink.DB, "peopleCursorReader", exportCfg.Query, nil, scanPerson)
	if err != nil {
		return nil, err
	}
	w, err := writer.NewParquetItemWriter[Person]("peopleParquetWriter", exportCfg.ParquetConfig(), p.Storage, &Person{}, nil)
	if err != nil {
		return nil, err
	}
	return item.NewChunkStep[Person, Person](
		ExportStepName,
		rdr,
		port.PassThroughItemProcessor[Person]{},
		w,
		p.Cfg.Chunkflow.Batch.ChunkSize,
		p.Sink.TxManager,
		p.Repository,
		p.stepOptions()...,
	)
}

func scanPerson(rows *sql.Rows) (Person, error) {
	var p Person
	err := rows.Scan(&p.FirstName, &p.LastName)
	return p, err
}
