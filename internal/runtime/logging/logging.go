package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// LogFields represents structured logging key/value pairs used by lambdaflow.
type LogFields map[string]any

// ServiceLogger is the minimal logging contract required by the runtime and
// the extension loop. It is deliberately small so applications can adapt their
// existing loggers without depending on slog.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
}

// NewSlogServiceLogger wraps a slog.Logger so it satisfies the ServiceLogger
// interface.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("lambdaflow: slog logger cannot be nil")
	}
	return &slogServiceLogger{inner: log}
}

type slogServiceLogger struct {
	inner *slog.Logger
}

func (s *slogServiceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return s
	}
	return &slogServiceLogger{inner: s.inner.With(toSlogArgs(fields)...)}
}

func (s *slogServiceLogger) Debug(msg string, fields LogFields) {
	s.inner.Debug(msg, toSlogArgs(fields)...)
}

func (s *slogServiceLogger) Info(msg string, fields LogFields) {
	s.inner.Info(msg, toSlogArgs(fields)...)
}

func (s *slogServiceLogger) Error(msg string, err error, fields LogFields) {
	args := toSlogArgs(fields)
	if err != nil {
		args = append(args, slog.Any("error", err))
	}
	s.inner.Error(msg, args...)
}

func toSlogArgs(fields LogFields) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, slog.Any(key, value))
	}
	return args
}

var defaultLogger atomic.Pointer[slogServiceLogger]

func init() {
	handler := slog.NewJSONHandler(os.Stderr, nil)
	defaultLogger.Store(&slogServiceLogger{inner: slog.New(handler)})
}

// Default returns the process-wide logger used when no logger is supplied.
// Lambda forwards stderr lines to CloudWatch, so the default emits JSON to
// stderr. Initialised once at process start, never torn down.
func Default() ServiceLogger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger. Intended to be called once
// during initialisation, before the runtime starts polling.
func SetDefault(log *slog.Logger) {
	if log == nil {
		return
	}
	defaultLogger.Store(&slogServiceLogger{inner: log})
}
