package test

import (
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// NewTestJobParameters creates JobParameters for testing.
func NewTestJobParameters(params map[string]interface{}) model.JobParameters {
	jp := model.NewJobParameters()
	for k, v := range params {
		jp.Put(k, v)
	}
	return jp
}

// NewTestStepExecution creates a StepExecution of stepName belonging to a fresh JobExecution of jobName.
// A nil ec is replaced by an empty ExecutionContext.
func NewTestStepExecution(jobName, stepName string, params model.JobParameters, ec model.ExecutionContext) *model.StepExecution {
	instance := model.NewJobInstance(jobName, params)
	je := model.NewJobExecution(instance.ID, jobName, params)
	se := model.NewStepExecution(model.NewID(), je, stepName)
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	se.ExecutionContext = ec
	return se
}

// NewTestExecutionContext creates an ExecutionContext for testing.
func NewTestExecutionContext(data map[string]interface{}) model.ExecutionContext {
	ec := model.NewExecutionContext()
	for k, v := range data {
		ec.Put(k, v)
	}
	return ec
}
