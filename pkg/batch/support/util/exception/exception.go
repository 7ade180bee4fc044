// Package exception provides the error taxonomy shared by the batch engine and the weather pipeline stages.
// Every stage failure is a *BatchError whose wrapped chain contains one of the sentinel kinds below,
// so callers can classify it with errors.Is and the retry policy can match it by registered name.
package exception

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Registered names of the pipeline error kinds. These are the strings accepted in
// batch.retry.retryable_exceptions.
const (
	ConfigurationError = "ConfigurationError"
	NetworkError       = "NetworkError"
	ParseError         = "ParseError"
	MissingFieldError  = "MissingFieldError"
	NotFoundError      = "NotFoundError"
	DatabaseError      = "DatabaseError"
)

// Sentinel errors for each kind. Match them with errors.Is.
var (
	ErrConfiguration = errors.New(ConfigurationError)
	ErrNetwork       = errors.New(NetworkError)
	ErrParse         = errors.New(ParseError)
	ErrMissingField  = errors.New(MissingFieldError)
	ErrNotFound      = errors.New(NotFoundError)
	ErrDatabase      = errors.New(DatabaseError)
)

var errorRegistry = make(map[string]error)
var registryMutex sync.RWMutex

// RegisterErrorType registers a named error prototype used by IsErrorOfType.
// It panics on an empty name or a nil prototype.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name has been registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

func init() {
	RegisterErrorType(ConfigurationError, ErrConfiguration)
	RegisterErrorType(NetworkError, ErrNetwork)
	RegisterErrorType(ParseError, ErrParse)
	RegisterErrorType(MissingFieldError, ErrMissingField)
	RegisterErrorType(NotFoundError, ErrNotFound)
	RegisterErrorType(DatabaseError, ErrDatabase)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}

// BatchError is the error type raised by batch components.
// It records the module that failed, a short message, the wrapped cause,
// and whether the failure may be retried or skipped.
type BatchError struct {
	// Module is the component that raised the error (e.g. "fetcher", "loader", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a new BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a BatchError from a format string.
// Trailing optional arguments are consumed from the end in the order
// [originalErr error], [isRetryable bool], [isSkippable bool]; the rest feed fmt.Sprintf.
//
//	NewBatchErrorf("loader", "insert into %s failed", table, true, err)
//	-> isRetryable: true, originalErr: err
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the error may be retried.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable reports whether the error may be skipped.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// NetworkFailure carries the details of a failed call to a remote service.
// StatusCode is 0 when no HTTP response was received.
type NetworkFailure struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (n *NetworkFailure) Error() string {
	if n.StatusCode == 0 {
		return fmt.Sprintf("request to %s failed: %v", n.URL, n.Err)
	}
	if n.Body != "" {
		return fmt.Sprintf("request to %s returned status %d: %s", n.URL, n.StatusCode, n.Body)
	}
	return fmt.Sprintf("request to %s returned status %d", n.URL, n.StatusCode)
}

func (n *NetworkFailure) Unwrap() error { return n.Err }

// MissingField names the first required field absent from an input document, as a dotted path.
type MissingField struct {
	Field string
}

func (m *MissingField) Error() string {
	return fmt.Sprintf("required field %q is missing", m.Field)
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// NewConfigurationError reports an invalid or missing configuration value. Never retryable.
func NewConfigurationError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrConfiguration, cause), false, false)
}

// NewNetworkError reports a failed remote call.
// Transport failures and 5xx responses are retryable; other statuses are not.
func NewNetworkError(module, message string, failure *NetworkFailure) *BatchError {
	retryable := failure == nil || failure.StatusCode == 0 || failure.StatusCode >= 500
	var cause error
	if failure != nil {
		cause = failure
	}
	return NewBatchError(module, message, join(ErrNetwork, cause), false, retryable)
}

// NewParseError reports input that could not be decoded.
func NewParseError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrParse, cause), false, false)
}

// NewMissingFieldError reports a required field absent from the input. field is a dotted path such as "main.temp".
func NewMissingFieldError(module, field string) *BatchError {
	return NewBatchError(module, fmt.Sprintf("missing required field %s", field),
		join(ErrMissingField, &MissingField{Field: field}), false, false)
}

// NewNotFoundError reports a missing input artifact.
func NewNotFoundError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrNotFound, cause), false, false)
}

// NewDatabaseError reports a failed database interaction. Always retryable.
func NewDatabaseError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrDatabase, cause), false, true)
}

// MissingFieldName returns the dotted field path carried by err, or "" if err is not a missing field error.
func MissingFieldName(err error) string {
	var mf *MissingField
	if errors.As(err, &mf) {
		return mf.Field
	}
	return ""
}

// IsBatchError reports whether err is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary reports whether err is worth retrying.
// A BatchError's own flag wins; otherwise common transient messages are recognised.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF")
}

// IsClientError reports whether err carries a NetworkFailure with a 4xx status.
// Repeating such a request cannot succeed.
func IsClientError(err error) bool {
	var nf *NetworkFailure
	if !errors.As(err, &nf) {
		return false
	}
	return nf.StatusCode >= 400 && nf.StatusCode < 500
}

// IsFatal reports whether err can be neither retried nor skipped.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied")
}

// IsErrorOfType reports whether err matches errorTypeName.
// The name is checked against the registry (errors.Is), then against each error message in the chain,
// then against the Go type name of each error in the chain (e.g. "*exception.NetworkFailure").
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, target) {
		return true
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		if strings.Contains(current.Error(), errorTypeName) {
			return true
		}
		if t := reflect.TypeOf(current); t != nil {
			if t.String() == errorTypeName || (t.Kind() == reflect.Ptr && t.Elem().String() == errorTypeName) {
				return true
			}
		}
	}
	return false
}

// ExtractErrorMessage returns the BatchError message, or err.Error() for other errors.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
