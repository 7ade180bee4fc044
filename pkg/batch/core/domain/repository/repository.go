// Package repository defines persistence of batch execution metadata.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

var (
	// ErrJobInstanceNotFound is returned when a JobInstance is not found.
	ErrJobInstanceNotFound = errors.New("job instance not found")
	// ErrJobExecutionNotFound is returned when a JobExecution is not found.
	ErrJobExecutionNotFound = errors.New("job execution not found")
	// ErrStepExecutionNotFound is returned when a StepExecution is not found.
	ErrStepExecutionNotFound = errors.New("step execution not found")
)

func init() {
	exception.RegisterErrorType("ErrJobInstanceNotFound", ErrJobInstanceNotFound)
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
	exception.RegisterErrorType("ErrStepExecutionNotFound", ErrStepExecutionNotFound)
}

// JobInstance persists job instances.
type JobInstance interface {
	SaveJobInstance(ctx context.Context, instance *model.JobInstance) error
	FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error)
}

// JobExecution persists job executions.
type JobExecution interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID returns a copy of the execution with its step executions attached, oldest first.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
}

// StepExecution persists step executions.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
}

// JobRepository persists batch execution metadata.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	Close() error
}
