package sql

import "time"

// JobExecutionEntity is the persisted form of a model.JobExecution.
// Parameters, Failures and ExecutionContext are JSON text.
type JobExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	JobName          string `gorm:"index;size:100;not null"`
	Parameters       string `gorm:"type:text"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           string `gorm:"size:20"`
	ExitStatus       string `gorm:"size:40"`
	Failures         string `gorm:"type:text"`
	CreateTime       time.Time `gorm:"index"`
	LastUpdated      time.Time
	ExecutionContext string `gorm:"type:text"`
	CurrentStepName  string `gorm:"size:200"`
}

func (JobExecutionEntity) TableName() string {
	return "dumpshift_job_execution"
}

// StepExecutionEntity is the persisted form of a model.StepExecution.
type StepExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	StepName         string `gorm:"size:200;not null"`
	JobExecutionID   string `gorm:"index;size:36;not null"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           string `gorm:"size:20"`
	ExitStatus       string `gorm:"size:40"`
	Failures         string `gorm:"type:text"`
	BytesRead        int
	BytesWritten     int
	ExecutionContext string `gorm:"type:text"`
	LastUpdated      time.Time
}

func (StepExecutionEntity) TableName() string {
	return "dumpshift_step_execution"
}
