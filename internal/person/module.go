package person

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/storage"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/core/job/runner"
	"github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
)

// ModuleParams defines the dependencies of the job provider.
type ModuleParams struct {
	fx.In
	Lifecycle      fx.Lifecycle
	Cfg            *config.Config
	Repository     repository.JobRepository
	DBResolver     database.DBConnectionResolver     `optional:"true"`
	Storage        storage.StorageConnectionResolver `optional:"true"`
	Resolver       port.ExpressionResolver           `optional:"true"`
	Incrementer    port.JobParametersIncrementer     `optional:"true"`
	JobListeners   []port.JobExecutionListener       `group:"job_listeners"`
	StepListeners  []port.StepExecutionListener      `group:"step_listeners"`
	ChunkListeners []port.ChunkListener              `group:"chunk_listeners"`
	Recorder       metrics.MetricRecorder            `optional:"true"`
	Tracer         metrics.Tracer                    `optional:"true"`
}

// NewJobFromParams opens the sink and builds importUserJob. The sink is closed when the application stops.
func NewJobFromParams(p ModuleParams) (*runner.SimpleJob, error) {
	appCfg, err := LoadAppConfig(p.Cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := OpenSink(ctx, p.Cfg, appCfg.Import.Sink, p.DBResolver)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: sink.Close,
	})

	return NewJob(ctx, JobParams{
		Cfg:            p.Cfg,
		AppConfig:      appCfg,
		Repository:     p.Repository,
		Sink:           sink,
		Storage:        p.Storage,
		Resolver:       p.Resolver,
		Incrementer:    p.Incrementer,
		JobListeners:   p.JobListeners,
		StepListeners:  p.StepListeners,
		ChunkListeners: p.ChunkListeners,
		Recorder:       p.Recorder,
		Tracer:         p.Tracer,
	})
}

// Module contributes importUserJob to the "jobs" group.
var Module = fx.Options(
	fx.Provide(runner.AsJob(NewJobFromParams)),
)
