package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// JobParameters holds the parameters given to a job execution.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets key to value.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns the value for key, or nil.
func (jp JobParameters) Get(key string) interface{} {
	return jp.Params[key]
}

// GetString retrieves the value for key as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	val, ok := jp.Params[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// maskedKeys are parameter names whose values are never printed.
var maskedKeys = []string{"password", "api_key", "apikey", "secret", "token"}

// String returns the parameters as JSON with sensitive values masked.
func (jp JobParameters) String() string {
	masked := make(map[string]interface{}, len(jp.Params))
	for k, v := range jp.Params {
		masked[k] = v
		for _, m := range maskedKeys {
			if strings.Contains(strings.ToLower(k), m) {
				masked[k] = "********"
				break
			}
		}
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("{[ERROR: Failed to marshal masked parameters: %v]}", err)
	}
	return string(data)
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
