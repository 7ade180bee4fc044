package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
)

type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("CustomError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("db", "failed to connect", originalErr, false, true)

	assert.Equal(t, "db", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[db] failed to connect: db connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("fetcher", "city %d not found", 10)
	assert.False(t, be1.IsRetryable())
	assert.Nil(t, be1.Unwrap())
	assert.Contains(t, be1.Error(), "[fetcher] city 10 not found")

	// A single trailing bool is isRetryable.
	be2 := exception.NewBatchErrorf("net", "timeout occurred", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	be3 := exception.NewBatchErrorf("item", "bad row %d", 5, true, false)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())

	cause := errors.New("transient error")
	be4 := exception.NewBatchErrorf("db", "lock contention", true, cause)
	assert.True(t, be4.IsRetryable())
	assert.Equal(t, cause, be4.Unwrap())
}

func TestPipelineErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		sentinel  error
		typeName  string
		retryable bool
	}{
		{"configuration", exception.NewConfigurationError("config", "api key missing", nil), exception.ErrConfiguration, exception.ConfigurationError, false},
		{"network 5xx", exception.NewNetworkError("fetcher", "api call failed", &exception.NetworkFailure{URL: "u", StatusCode: 503}), exception.ErrNetwork, exception.NetworkError, true},
		{"network 4xx", exception.NewNetworkError("fetcher", "api call failed", &exception.NetworkFailure{URL: "u", StatusCode: 401, Body: "invalid key"}), exception.ErrNetwork, exception.NetworkError, false},
		{"network transport", exception.NewNetworkError("fetcher", "api call failed", &exception.NetworkFailure{URL: "u", Err: cause}), exception.ErrNetwork, exception.NetworkError, true},
		{"parse", exception.NewParseError("transformer", "bad json", cause), exception.ErrParse, exception.ParseError, false},
		{"missing field", exception.NewMissingFieldError("transformer", "main.temp"), exception.ErrMissingField, exception.MissingFieldError, false},
		{"not found", exception.NewNotFoundError("loader", "no such file", cause), exception.ErrNotFound, exception.NotFoundError, false},
		{"database", exception.NewDatabaseError("loader", "insert failed", cause), exception.ErrDatabase, exception.DatabaseError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("step failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, exception.IsErrorOfType(wrapped, tt.typeName))
			assert.True(t, exception.IsBatchError(wrapped))
			assert.Equal(t, tt.retryable, exception.IsTemporary(wrapped))
		})
	}
}

func TestNetworkFailureDetails(t *testing.T) {
	err := exception.NewNetworkError("fetcher", "api call failed",
		&exception.NetworkFailure{URL: "http://api", StatusCode: 404, Body: "city not found"})

	var nf *exception.NetworkFailure
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, 404, nf.StatusCode)
	assert.Equal(t, "city not found", nf.Body)
	assert.Contains(t, err.Error(), "returned status 404")
	assert.True(t, exception.IsClientError(err))
	assert.False(t, exception.IsClientError(exception.NewNetworkError("fetcher", "api call failed",
		&exception.NetworkFailure{URL: "http://api", StatusCode: 503})))
	assert.False(t, exception.IsClientError(errors.New("plain")))
}

func TestMissingFieldName(t *testing.T) {
	err := exception.NewMissingFieldError("transformer", "weather[0].main")
	assert.Equal(t, "weather[0].main", exception.MissingFieldName(err))
	assert.Equal(t, "", exception.MissingFieldName(errors.New("other")))
	assert.False(t, exception.IsErrorOfType(err, exception.ParseError))
}

func TestIsErrorOfType(t *testing.T) {
	custom := &CustomError{Msg: "x"}
	wrapped := exception.NewBatchError("proc", "failed", custom, false, false)

	assert.True(t, exception.IsErrorOfType(wrapped, "*exception_test.CustomError"))
	assert.True(t, exception.IsErrorOfType(wrapped, "exception_test.CustomError"))
	assert.True(t, exception.IsErrorOfType(wrapped, "CustomError: x"))
	assert.False(t, exception.IsErrorOfType(wrapped, "SomethingElse"))
	assert.False(t, exception.IsErrorOfType(nil, "CustomError"))
}

func TestIsFatalAndExtractMessage(t *testing.T) {
	fatal := exception.NewParseError("transformer", "bad json", nil)
	assert.True(t, exception.IsFatal(fatal))
	assert.False(t, exception.IsFatal(exception.NewDatabaseError("loader", "down", nil)))
	assert.Equal(t, "bad json", exception.ExtractErrorMessage(fatal))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}
