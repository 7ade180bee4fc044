// Package logger provides the logging facade used across the weather ETL batch.
// It keeps a small printf-style API (Debugf, Infof, ...) on top of a single logrus logger,
// so call sites stay terse while output can be switched between text and JSON.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal error messages that cause application termination.
	LevelFatal
)

var std = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{FullTimestamp: true},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
	ExitFunc:  os.Exit,
}

// Fields is an alias of logrus.Fields so callers do not import logrus directly.
type Fields = logrus.Fields

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO with a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "TRACE", "DEBUG":
		std.SetLevel(logrus.DebugLevel)
	case "INFO":
		std.SetLevel(logrus.InfoLevel)
	case "WARN":
		std.SetLevel(logrus.WarnLevel)
	case "ERROR":
		std.SetLevel(logrus.ErrorLevel)
	case "FATAL", "SILENT":
		std.SetLevel(logrus.FatalLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
		std.Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// GetLogLevel returns the current level in the facade's own terms.
func GetLogLevel() LogLevel {
	switch std.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	case logrus.InfoLevel:
		return LevelInfo
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.ErrorLevel:
		return LevelError
	default:
		return LevelFatal
	}
}

// SetFormat switches the output formatter. "json" selects logrus.JSONFormatter, anything else text.
func SetFormat(format string) {
	if strings.EqualFold(format, "json") {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetOutput redirects log output. Mainly used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// WithFields returns an entry carrying structured context, e.g.
//
//	logger.WithFields(logger.Fields{"city": city, "path": path}).Info("raw data saved")
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	std.Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	std.Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	std.Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	std.Errorf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	std.Fatal(fmt.Sprintf(format, v...))
}
