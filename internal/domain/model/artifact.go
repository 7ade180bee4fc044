// Package model holds the values handed between the pipeline steps.
package model

import (
	"fmt"
	"strings"
	"time"

	batchmodel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// Stage names an artifact producer.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageProcessed Stage = "processed"
)

// ExecutionContext keys under which each step publishes its artifact.
const (
	RawArtifactKey       = "weather.raw_artifact"
	ProcessedArtifactKey = "weather.processed_artifact"
	// LoadedRowsKey holds the number of rows appended by the load step.
	LoadedRowsKey = "weather.loaded_rows"
)

// Artifact describes a file written by a step for the next one. It is never modified after creation.
type Artifact struct {
	Stage     Stage     `json:"stage"`
	City      string    `json:"city"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArtifact creates an Artifact stamped with createdAt in UTC.
func NewArtifact(stage Stage, city, path string, createdAt time.Time) Artifact {
	return Artifact{Stage: stage, City: city, Path: path, CreatedAt: createdAt.UTC()}
}

// PutArtifact stores a under key.
func PutArtifact(ec batchmodel.ExecutionContext, key string, a Artifact) {
	ec.Put(key, a)
}

// GetArtifact returns the Artifact stored under key.
func GetArtifact(ec batchmodel.ExecutionContext, key string) (Artifact, error) {
	v, ok := ec.Get(key)
	if !ok {
		return Artifact{}, fmt.Errorf("no artifact under key '%s'", key)
	}
	switch a := v.(type) {
	case Artifact:
		return a, nil
	case *Artifact:
		return *a, nil
	default:
		return Artifact{}, fmt.Errorf("value under key '%s' is %T, not an artifact", key, v)
	}
}

// FileTimestampLayout is the second-resolution timestamp embedded in artifact file names.
const FileTimestampLayout = "20060102_150405"

// RawFileName returns the name of the raw artifact fetched for city at t.
func RawFileName(city string, t time.Time) string {
	return fmt.Sprintf("weather_raw_%s_%s.json", SafeFileComponent(city), t.Format(FileTimestampLayout))
}

// ProcessedFileName returns the name of the processed artifact for city written at t.
func ProcessedFileName(city string, t time.Time) string {
	return fmt.Sprintf("weather_processed_%s_%s.csv", SafeFileComponent(city), t.Format(FileTimestampLayout))
}

// SafeFileComponent replaces path separators so that value can be embedded in a file name.
func SafeFileComponent(value string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(value)
}
