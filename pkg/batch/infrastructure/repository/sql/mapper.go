package sql

import (
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	if je == nil {
		return nil
	}
	return &JobExecutionEntity{
		ID:             je.ID,
		JobName:        je.JobName,
		Parameters:     je.Parameters,
		ParametersHash: je.ParametersHash,
		StartTime:      je.StartTime,
		EndTime:        je.EndTime,
		Status:         je.Status,
		ExitStatus:     je.ExitStatus,
		Failures:       je.Failures,
		Version:        je.Version,
		CreateTime:     je.CreateTime,
		LastUpdated:    je.LastUpdated,
	}
}

// toDomainJobExecution maps the row only; StepExecutions are attached by the repository.
func toDomainJobExecution(entity *JobExecutionEntity) *model.JobExecution {
	if entity == nil {
		return nil
	}
	return &model.JobExecution{
		ID:             entity.ID,
		JobName:        entity.JobName,
		Parameters:     entity.Parameters,
		ParametersHash: entity.ParametersHash,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       entity.Failures,
		Version:        entity.Version,
		CreateTime:     entity.CreateTime,
		LastUpdated:    entity.LastUpdated,
		StepExecutions: make([]*model.StepExecution, 0),
	}
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	if se == nil {
		return nil
	}
	return &StepExecutionEntity{
		ID:             se.ID,
		StepName:       se.StepName,
		JobExecutionID: se.JobExecutionID,
		StartTime:      se.StartTime,
		EndTime:        se.EndTime,
		Status:         se.Status,
		ExitStatus:     se.ExitStatus,
		Failures:       se.Failures,
		ReadCount:      se.ReadCount,
		WriteCount:     se.WriteCount,
		SkipCount:      se.SkipCount,
		CommitCount:    se.CommitCount,
		RollbackCount:  se.RollbackCount,
		LastUpdated:    se.LastUpdated,
		Version:        se.Version,
	}
}

// toDomainStepExecution maps the row only; JobExecution is attached by the caller.
func toDomainStepExecution(entity *StepExecutionEntity) *model.StepExecution {
	if entity == nil {
		return nil
	}
	return &model.StepExecution{
		ID:             entity.ID,
		StepName:       entity.StepName,
		JobExecutionID: entity.JobExecutionID,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       entity.Failures,
		ReadCount:      entity.ReadCount,
		WriteCount:     entity.WriteCount,
		SkipCount:      entity.SkipCount,
		CommitCount:    entity.CommitCount,
		RollbackCount:  entity.RollbackCount,
		LastUpdated:    entity.LastUpdated,
		Version:        entity.Version,
	}
}
