// Package sql provides the GORM implementation of repository.JobRepository.
// The schema is created by the migrations embedded in this package.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// SQLJobRepository implements the repository.JobRepository interface.
type SQLJobRepository struct {
	// source returns the *gorm.DB of the metadata datasource.
	source func(ctx context.Context) (*gorm.DB, error)
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)

// NewSQLJobRepository creates a repository on the datasource dbName.
// The connection is resolved per operation, so a reconnected pool is picked up.
func NewSQLJobRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLJobRepository {
	return &SQLJobRepository{
		source: func(ctx context.Context) (*gorm.DB, error) {
			conn, err := dbResolver.ResolveDBConnection(ctx, dbName)
			if err != nil {
				return nil, exception.NewBatchError("SQLJobRepository", fmt.Sprintf("failed to resolve DB connection '%s'", dbName), err)
			}
			return gormadapter.GormDBFrom(conn)
		},
	}
}

// NewSQLJobRepositoryFromDB creates a repository on db.
func NewSQLJobRepositoryFromDB(db *gorm.DB) *SQLJobRepository {
	return &SQLJobRepository{
		source: func(context.Context) (*gorm.DB, error) { return db, nil },
	}
}

func (r *SQLJobRepository) db(ctx context.Context) (*gorm.DB, error) {
	db, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// --- JobExecution implementation ---

func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.SaveJobExecution"
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainJobExecution(jobExecution)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err)
	}
	return nil
}

// UpdateJobExecution writes jobExecution if the stored version equals jobExecution.Version.
// On success the version is incremented; a stale version yields an optimistic locking failure.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.UpdateJobExecution"
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	originalVersion := jobExecution.Version
	originalUpdated := jobExecution.LastUpdated
	jobExecution.Version++
	jobExecution.LastUpdated = time.Now()
	entity := fromDomainJobExecution(jobExecution)

	result := db.Model(&JobExecutionEntity{}).
		Where("id = ? AND version = ?", jobExecution.ID, originalVersion).
		Select("*").
		Updates(entity)
	if result.Error != nil {
		jobExecution.Version = originalVersion
		jobExecution.LastUpdated = originalUpdated
		return exception.NewBatchError(op, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), result.Error)
	}
	if result.RowsAffected == 0 {
		jobExecution.Version = originalVersion
		jobExecution.LastUpdated = originalUpdated
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("JobExecution (ID: %s) with version %d not found for update", jobExecution.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionByID"
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var entity JobExecutionEntity
	if err := db.Where("id = ?", executionID).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecution by ID: %s", executionID), err)
	}

	executions, err := r.withStepExecutions(db, []JobExecutionEntity{entity})
	if err != nil {
		return nil, err
	}
	return executions[0], nil
}

// FindLatestJobExecution looks executions up by job name and parameters hash.
func (r *SQLJobRepository) FindLatestJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	const op = "SQLJobRepository.FindLatestJobExecution"
	hash, err := params.Hash()
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to calculate JobParameters hash", err)
	}
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobExecutionEntity
	err = db.Where("job_name = ? AND parameters_hash = ?", jobName, hash).
		Order("create_time DESC").
		Limit(1).
		Find(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find latest JobExecution of '%s'", jobName), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}

	executions, err := r.withStepExecutions(db, entities)
	if err != nil {
		return nil, err
	}
	return executions[0], nil
}

// FindJobExecutionsByJobName returns up to limit executions, newest first. A limit of 0 or less returns all.
func (r *SQLJobRepository) FindJobExecutionsByJobName(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionsByJobName"
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Where("job_name = ?", jobName).Order("create_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entities []JobExecutionEntity
	if err := query.Find(&entities).Error; err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to list JobExecutions of '%s'", jobName), err)
	}
	if len(entities) == 0 {
		return []*model.JobExecution{}, nil
	}
	return r.withStepExecutions(db, entities)
}

// withStepExecutions maps entities and attaches their StepExecutions with one query.
func (r *SQLJobRepository) withStepExecutions(db *gorm.DB, entities []JobExecutionEntity) ([]*model.JobExecution, error) {
	ids := make([]string, len(entities))
	executions := make([]*model.JobExecution, len(entities))
	byID := make(map[string]*model.JobExecution, len(entities))
	for i := range entities {
		je := toDomainJobExecution(&entities[i])
		ids[i] = je.ID
		executions[i] = je
		byID[je.ID] = je
	}

	var stepEntities []StepExecutionEntity
	if err := db.Where("job_execution_id IN ?", ids).Order("start_time ASC").Find(&stepEntities).Error; err != nil {
		return nil, exception.NewBatchError("SQLJobRepository", "failed to load StepExecutions", err)
	}
	for i := range stepEntities {
		se := toDomainStepExecution(&stepEntities[i])
		if je, ok := byID[se.JobExecutionID]; ok {
			se.JobExecution = je
			je.StepExecutions = append(je.StepExecutions, se)
		}
	}
	return executions, nil
}

// --- StepExecution implementation ---

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.SaveStepExecution"
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainStepExecution(stepExecution)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err)
	}
	return nil
}

// UpdateStepExecution writes stepExecution if the stored version equals stepExecution.Version.
func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.UpdateStepExecution"
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	originalVersion := stepExecution.Version
	originalUpdated := stepExecution.LastUpdated
	stepExecution.Version++
	stepExecution.LastUpdated = time.Now()
	entity := fromDomainStepExecution(stepExecution)

	result := db.Model(&StepExecutionEntity{}).
		Where("id = ? AND version = ?", stepExecution.ID, originalVersion).
		Select("*").
		Updates(entity)
	if result.Error != nil {
		stepExecution.Version = originalVersion
		stepExecution.LastUpdated = originalUpdated
		return exception.NewBatchError(op, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), result.Error)
	}
	if result.RowsAffected == 0 {
		stepExecution.Version = originalVersion
		stepExecution.LastUpdated = originalUpdated
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("StepExecution (ID: %s) with version %d not found for update", stepExecution.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	const op = "SQLJobRepository.FindStepExecutionByID"
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var entity StepExecutionEntity
	if err := db.Where("id = ?", executionID).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find StepExecution by ID: %s", executionID), err)
	}
	return toDomainStepExecution(&entity), nil
}

// Close implements repository.JobRepository.
// The connection pool belongs to the database provider and is closed with it.
func (r *SQLJobRepository) Close() error {
	return nil
}
