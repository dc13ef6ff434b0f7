// SPDX-License-Identifier: MIT
package validate

import "strings"

// LogLevel is a level accepted by the logLevel setting and LOG_LEVEL.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the known levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ParseLogLevel accepts a level in any case, surrounding space ignored.
func ParseLogLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

// Exporter is the OTLP transport used for trace export.
type Exporter string

const (
	ExporterGRPC Exporter = "grpc"
	ExporterHTTP Exporter = "http"
)

// ParseExporter accepts "grpc" or "http".
func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(strings.TrimSpace(s))); e {
	case ExporterGRPC, ExporterHTTP:
		return e, nil
	default:
		return "", ErrInvalidExporter
	}
}

var (
	ErrInvalidLogLevel = &Error{
		Field:   "logLevel",
		Message: "must be one of trace, debug, info, warn, error",
	}
	ErrInvalidExporter = &Error{
		Field:   "telemetry.exporter",
		Message: "must be grpc or http",
	}
)
