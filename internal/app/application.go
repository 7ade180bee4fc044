// Package app wires the weather ETL with uber-fx and runs a single job to completion.
package app

import (
	"context"

	"go.uber.org/fx"

	appJob "github.com/tigerroll/weather-etl/internal/job"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config/support"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/weather-etl/pkg/batch/core/job/runner"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/inmemory"
	batchlistener "github.com/tigerroll/weather-etl/pkg/batch/listener"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Exit codes of a run.
const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
)

// RunOptions describes one invocation.
type RunOptions struct {
	EnvFilePath    string
	EmbeddedConfig config.EmbeddedConfig
	// JobName overrides batch.job_name when set.
	JobName string
	Params  model.JobParameters
	// DBAdapters is the comma-separated list of DB providers to register.
	DBAdapters string
}

// jobRequest is the job selected for this run, resolved against the loaded configuration.
type jobRequest struct {
	Name   string
	Params model.JobParameters
}

func newJobRequest(opts RunOptions) func(cfg *config.Config) jobRequest {
	return func(cfg *config.Config) jobRequest {
		name := opts.JobName
		if name == "" {
			name = cfg.Surfin.Batch.JobName
		}
		params := opts.Params
		if params.Params == nil {
			params = model.NewJobParameters()
		}
		return jobRequest{Name: name, Params: params}
	}
}

// validateConfig fails application startup when the configuration cannot serve the selected job.
func validateConfig(cfg *config.Config, req jobRequest) error {
	return cfg.Validate(req.Name)
}

// GetApplicationOptions builds the fx options of the application.
func GetApplicationOptions(appCtx context.Context, opts RunOptions) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		opts.EmbeddedConfig,
		fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, fx.Provide(newJobRequest(opts)))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, metrics.Module)
	options = append(options, inmemory.Module)
	options = append(options, gormadapter.Module)
	options = append(options, DBProviderOptions(opts.DBAdapters)...)
	options = append(options, storage.Module)
	options = append(options, StorageProviderModules)
	options = append(options, batchlistener.Module)
	options = append(options, jobRunner.Module)
	options = append(options, support.Module)
	options = append(options, appJob.Module)
	options = append(options, fx.Invoke(validateConfig))
	options = append(options, fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags("", "", "", "", "", `name:"appCtx"`))))
	return options
}

// RunApplication starts the application, runs the selected job and returns the process exit code.
func RunApplication(appCtx context.Context, opts RunOptions) int {
	app := fx.New(GetApplicationOptions(appCtx, opts)...)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to initialize application: %v", err)
		return ExitCodeFailure
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitCodeFailure
	}

	shutdownSignal := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stopped with errors: %v", err)
	}
	return shutdownSignal.ExitCode
}

// startJobExecution is invoked by Fx to run the selected job once the application has started.
// The application shuts down with ExitCodeFailure unless the job completes.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	jobFactory *support.JobFactory,
	runner *jobRunner.SimpleJobRunner,
	req jobRequest,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := ExitCodeFailure
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						exitCode = ExitCodeFailure
					}
					logger.Infof("Requesting application shutdown after job completion.")
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				exitCode = runJob(appCtx, jobFactory, runner, req)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func runJob(ctx context.Context, jobFactory *support.JobFactory, runner *jobRunner.SimpleJobRunner, req jobRequest) int {
	job, err := jobFactory.CreateJob(req.Name)
	if err != nil {
		logger.Errorf("Failed to build job '%s': %v", req.Name, err)
		return ExitCodeFailure
	}

	logger.Infof("Starting job '%s'...", req.Name)
	jobExecution, err := runner.Launch(ctx, job, req.Params)
	if err != nil {
		if jobExecution == nil {
			logger.Errorf("Failed to launch job '%s': %v", req.Name, err)
		}
		return ExitCodeFailure
	}
	if jobExecution.Status != model.BatchStatusCompleted {
		return ExitCodeFailure
	}
	return ExitCodeSuccess
}
