package extension

import (
	"encoding/json"
	"time"

	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

// Telemetry record kinds delivered by the telemetry stream. The stream
// supersedes the logs stream and adds the init-phase records.
const (
	TelemetryFunction         = "function"
	TelemetryExtension        = "extension"
	TelemetryInitStart        = "platform.initStart"
	TelemetryInitRuntimeDone  = "platform.initRuntimeDone"
	TelemetryInitReport       = "platform.initReport"
	TelemetryStart            = "platform.start"
	TelemetryRuntimeDone      = "platform.runtimeDone"
	TelemetryReport           = "platform.report"
	TelemetryExtensionInit    = "platform.extension"
	TelemetrySubscription     = "platform.telemetrySubscription"
	TelemetryLogsDropped      = "platform.logsDropped"
)

// TelemetryRecord is one record from a pushed telemetry batch. Record holds
// the raw payload, shaped per Type the same way log records are.
type TelemetryRecord struct {
	Time   time.Time       `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// DecodeRecord unmarshals the record payload into v.
func (r *TelemetryRecord) DecodeRecord(v any) error {
	return jsoncodec.Unmarshal(r.Record, v)
}
