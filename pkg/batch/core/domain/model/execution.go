package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// FailureList holds the messages of the errors recorded on an execution.
type FailureList []string

// JobInstance is the logical run of a job with a given set of parameters.
type JobInstance struct {
	ID         string
	JobName    string
	Parameters JobParameters
	CreateTime time.Time
}

// JobExecution is a single execution of a job.
type JobExecution struct {
	ID               string
	JobInstanceID    string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
}

// StepExecution is a single attempt of a step. A retried step gets a new StepExecution
// per attempt, numbered from 1.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution
	JobExecutionID   string
	Attempt          int
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	ReadCount        int
	WriteCount       int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}

// NewJobInstance creates a new JobInstance.
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		ID:         NewID(),
		JobName:    jobName,
		Parameters: params,
		CreateTime: time.Now(),
	}
}

// NewJobExecution creates a new JobExecution in STARTING state.
func NewJobExecution(jobInstanceID string, jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               NewID(),
		JobInstanceID:    jobInstanceID,
		JobName:          jobName,
		Parameters:       params,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make(FailureList, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// TransitionTo moves the execution to newStatus if the transition is allowed.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	return nil
}

func (je *JobExecution) mark(status JobStatus, exit ExitStatus, finished bool) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to %s: %v", je.ID, status, err)
		je.Status = status
	}
	now := time.Now()
	if exit != "" {
		je.ExitStatus = exit
	}
	if finished {
		je.EndTime = &now
	}
	je.LastUpdated = now
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() { je.mark(BatchStatusStarted, "", false) }

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() { je.mark(BatchStatusCompleted, ExitStatusCompleted, true) }

// MarkAsStopped updates the JobExecution status to STOPPED.
func (je *JobExecution) MarkAsStopped() { je.mark(BatchStatusStopped, ExitStatusStopped, true) }

// MarkAsFailed updates the JobExecution status to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.mark(BatchStatusFailed, ExitStatusFailed, true)
	je.AddFailureException(err)
}

// AddFailureException records err once; duplicates are ignored.
func (je *JobExecution) AddFailureException(err error) {
	je.Failures = appendFailure(je.Failures, err)
	je.LastUpdated = time.Now()
}

// AddStepExecution adds a StepExecution to JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// NewStepExecution creates a new StepExecution in STARTING state.
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	return &StepExecution{
		ID:               id,
		StepName:         stepName,
		JobExecutionID:   jobExecution.ID,
		JobExecution:     jobExecution,
		Attempt:          1,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
}

// TransitionTo moves the step execution to newStatus if the transition is allowed.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidStepTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

func (se *StepExecution) mark(status JobStatus, exit ExitStatus, finished bool) {
	if err := se.TransitionTo(status); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to %s: %v", se.ID, status, err)
		se.Status = status
	}
	now := time.Now()
	if exit != "" {
		se.ExitStatus = exit
	}
	if finished {
		se.EndTime = &now
	}
	se.LastUpdated = now
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() { se.mark(BatchStatusStarted, "", false) }

// MarkAsCompleted updates the StepExecution status to COMPLETED.
func (se *StepExecution) MarkAsCompleted() { se.mark(BatchStatusCompleted, ExitStatusCompleted, true) }

// MarkAsStopped updates the StepExecution status to STOPPED.
func (se *StepExecution) MarkAsStopped() { se.mark(BatchStatusStopped, ExitStatusStopped, true) }

// MarkAsFailed updates the StepExecution status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	se.mark(BatchStatusFailed, ExitStatusFailed, true)
	se.AddFailureException(err)
}

// AddFailureException records err once; duplicates are ignored.
func (se *StepExecution) AddFailureException(err error) {
	se.Failures = appendFailure(se.Failures, err)
	se.LastUpdated = time.Now()
}

func appendFailure(list FailureList, err error) FailureList {
	if err == nil {
		return list
	}
	msg := exception.ExtractErrorMessage(err)
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}
