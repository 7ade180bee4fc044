package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "embed"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/weather-etl/internal/app"
	weathertasklet "github.com/tigerroll/weather-etl/internal/step/tasklet"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	jobName := flag.String("job", "", "job to run (weatherJob or weatherExportJob); defaults to batch.job_name")
	city := flag.String("city", "", "city to fetch; defaults to weather.city")
	table := flag.String("table", "", "table to load into; defaults to pipeline.table_name")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	params := model.NewJobParameters()
	if *city != "" {
		params.Put(weathertasklet.ParamCity, *city)
	}
	if *table != "" {
		params.Put(weathertasklet.ParamTable, *table)
	}

	exitCode := app.RunApplication(ctx, app.RunOptions{
		EnvFilePath:    envFilePath,
		EmbeddedConfig: embeddedConfig,
		JobName:        *jobName,
		Params:         params,
		DBAdapters:     os.Getenv("DB_ADAPTORS"),
	})
	cancel()
	os.Exit(exitCode)
}
