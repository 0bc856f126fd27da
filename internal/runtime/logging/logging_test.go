package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger() (*bytes.Buffer, ServiceLogger) {
	buf := &bytes.Buffer{}
	return buf, NewSlogServiceLogger(slog.New(slog.NewJSONHandler(buf, nil)))
}

func TestSlogServiceLoggerEmitsFields(t *testing.T) {
	buf, logger := newBufferLogger()

	logger.Info("invocation complete", LogFields{"request_id": "req-1"})

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Fatalf("expected request_id field, got %s", out)
	}
	if !strings.Contains(out, "invocation complete") {
		t.Fatalf("expected message, got %s", out)
	}
}

func TestSlogServiceLoggerErrorAppendsError(t *testing.T) {
	buf, logger := newBufferLogger()

	logger.Error("post failed", errors.New("connection refused"), nil)

	if !strings.Contains(buf.String(), "connection refused") {
		t.Fatalf("expected error in output, got %s", buf.String())
	}
}

func TestWithReturnsEnrichedLogger(t *testing.T) {
	buf, logger := newBufferLogger()

	logger.With(LogFields{"function": "greeter"}).Info("polling", nil)

	if !strings.Contains(buf.String(), `"function":"greeter"`) {
		t.Fatalf("expected function field, got %s", buf.String())
	}
}

func TestWithEmptyFieldsReturnsSameLogger(t *testing.T) {
	_, logger := newBufferLogger()
	if logger.With(nil) != logger {
		t.Fatal("expected the same logger for empty fields")
	}
}

func TestNewSlogServiceLoggerPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil logger")
		}
	}()
	NewSlogServiceLogger(nil)
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected a default logger")
	}
	SetDefault(nil)
	if Default() == nil {
		t.Fatal("expected SetDefault(nil) to keep the previous logger")
	}
}
