package extension

import (
	"encoding/json"
	"time"

	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

// Log record kinds delivered by the logs stream.
const (
	LogFunction                 = "function"
	LogExtension                = "extension"
	LogPlatformStart            = "platform.start"
	LogPlatformEnd              = "platform.end"
	LogPlatformReport           = "platform.report"
	LogPlatformFault            = "platform.fault"
	LogPlatformExtension        = "platform.extension"
	LogPlatformLogsSubscription = "platform.logsSubscription"
	LogPlatformLogsDropped      = "platform.logsDropped"
	LogPlatformRuntimeDone      = "platform.runtimeDone"
)

// Log is one record from a pushed logs batch. Record holds the raw payload;
// its shape depends on Type. Function and extension records are plain
// strings, platform records are objects.
type Log struct {
	Time   time.Time       `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// DecodeRecord unmarshals the record payload into v.
func (l *Log) DecodeRecord(v any) error {
	return jsoncodec.Unmarshal(l.Record, v)
}

// Message returns the record as a string, the shape of function and
// extension log lines.
func (l *Log) Message() (string, error) {
	var msg string
	if err := l.DecodeRecord(&msg); err != nil {
		return "", err
	}
	return msg, nil
}

// PlatformStartRecord marks the start of an invocation.
type PlatformStartRecord struct {
	RequestID string `json:"requestId"`
}

// PlatformEndRecord marks the end of an invocation.
type PlatformEndRecord struct {
	RequestID string `json:"requestId"`
}

// PlatformReportRecord carries the billing metrics for one invocation.
type PlatformReportRecord struct {
	RequestID string        `json:"requestId"`
	Metrics   ReportMetrics `json:"metrics"`
}

// ReportMetrics are the per-invocation resource metrics. InitDurationMS is
// only present on cold starts.
type ReportMetrics struct {
	DurationMS       float64  `json:"durationMs"`
	BilledDurationMS int64    `json:"billedDurationMs"`
	MemorySizeMB     int64    `json:"memorySizeMB"`
	MaxMemoryUsedMB  int64    `json:"maxMemoryUsedMB"`
	InitDurationMS   *float64 `json:"initDurationMs,omitempty"`
}

// PlatformExtensionRecord reports an extension's registration state.
type PlatformExtensionRecord struct {
	Name   string   `json:"name"`
	State  string   `json:"state"`
	Events []string `json:"events"`
}

// PlatformLogsSubscriptionRecord reports a logs subscription state change.
type PlatformLogsSubscriptionRecord struct {
	Name  string   `json:"name"`
	State string   `json:"state"`
	Types []string `json:"types"`
}

// PlatformLogsDroppedRecord reports records dropped because the subscriber
// fell behind.
type PlatformLogsDroppedRecord struct {
	Reason         string `json:"reason"`
	DroppedRecords int64  `json:"droppedRecords"`
	DroppedBytes   int64  `json:"droppedBytes"`
}

// PlatformRuntimeDoneRecord marks an invocation as completed by the runtime,
// with status success, failure, or timeout.
type PlatformRuntimeDoneRecord struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// Buffering limits enforced by the control plane.
const (
	minBufferTimeoutMS = 25
	maxBufferTimeoutMS = 30_000
	minBufferBytes     = 262_144
	maxBufferBytes     = 1_048_576
	minBufferItems     = 1_000
	maxBufferItems     = 10_000
)

// Buffering controls how the control plane batches records before pushing
// them to the subscriber.
type Buffering struct {
	TimeoutMS int `json:"timeoutMs"`
	MaxBytes  int `json:"maxBytes"`
	MaxItems  int `json:"maxItems"`
}

// DefaultBuffering returns the control-plane defaults.
func DefaultBuffering() Buffering {
	return Buffering{TimeoutMS: 1_000, MaxBytes: minBufferBytes, MaxItems: maxBufferItems}
}

// Validate checks the buffering values against the control-plane limits.
func (b Buffering) Validate() error {
	if b.TimeoutMS < minBufferTimeoutMS || b.TimeoutMS > maxBufferTimeoutMS {
		return &errspkg.ConfigValidationError{Field: "timeoutMs",
			Reason: "must be between 25 and 30000"}
	}
	if b.MaxBytes < minBufferBytes || b.MaxBytes > maxBufferBytes {
		return &errspkg.ConfigValidationError{Field: "maxBytes",
			Reason: "must be between 262144 and 1048576"}
	}
	if b.MaxItems < minBufferItems || b.MaxItems > maxBufferItems {
		return &errspkg.ConfigValidationError{Field: "maxItems",
			Reason: "must be between 1000 and 10000"}
	}
	return nil
}
