package sql

import (
	"time"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

// JobExecutionEntity is a schema model used for persistence.
type JobExecutionEntity struct {
	ID             string              `gorm:"primaryKey;size:36"`
	JobName        string              `gorm:"size:100;index:idx_job_execution_name_hash"`
	Parameters     model.JobParameters `gorm:"type:text"`
	ParametersHash string              `gorm:"size:64;index:idx_job_execution_name_hash"`
	StartTime      time.Time
	EndTime        *time.Time
	Status         model.JobStatus   `gorm:"size:20"`
	ExitStatus     model.ExitStatus  `gorm:"size:20"`
	Failures       model.FailureList `gorm:"type:text"`
	Version        int
	CreateTime     time.Time
	LastUpdated    time.Time
}

// TableName returns the table of JobExecutionEntity.
func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is a schema model used for persistence.
type StepExecutionEntity struct {
	ID             string `gorm:"primaryKey;size:36"`
	StepName       string `gorm:"size:100"`
	JobExecutionID string `gorm:"size:36;index"`
	StartTime      time.Time
	EndTime        *time.Time
	Status         model.StepStatus  `gorm:"size:20"`
	ExitStatus     model.ExitStatus  `gorm:"size:20"`
	Failures       model.FailureList `gorm:"type:text"`
	ReadCount      int
	WriteCount     int
	SkipCount      int
	CommitCount    int
	RollbackCount  int
	LastUpdated    time.Time
	Version        int
}

// TableName returns the table of StepExecutionEntity.
func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}
