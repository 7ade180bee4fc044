package runner

import (
	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"

	"go.uber.org/fx"
)

// SimpleJobRunnerParams defines dependencies for SimpleJobRunner.
type SimpleJobRunnerParams struct {
	fx.In
	JobRepository repository.JobRepository
	Notifiers     []port.NotificationListener `group:"notifiers"`
}

// NewJobRunner provides a SimpleJobRunner wired with every registered notifier.
func NewJobRunner(p SimpleJobRunnerParams) *SimpleJobRunner {
	return NewSimpleJobRunner(p.JobRepository, p.Notifiers...)
}

// Module provides the JobRunner implementation.
var Module = fx.Provide(NewJobRunner)
