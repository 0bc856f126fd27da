package extension

import (
	"testing"

	"github.com/aws/smithy-go/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

func TestReportMetricsInitDurationIsOptional(t *testing.T) {
	// Only cold starts report an init duration; warm invocations omit the
	// field entirely rather than sending zero.
	cold := PlatformReportRecord{
		RequestID: "req-1",
		Metrics: ReportMetrics{
			DurationMS:       12.5,
			BilledDurationMS: 13,
			MemorySizeMB:     128,
			MaxMemoryUsedMB:  40,
			InitDurationMS:   ptr.Float64(101.9),
		},
	}

	data, err := jsoncodec.Marshal(cold)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"initDurationMs":101.9`)

	warm := cold
	warm.Metrics.InitDurationMS = nil
	data, err = jsoncodec.Marshal(warm)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "initDurationMs")
}

func TestLogDecodeRecord(t *testing.T) {
	var entry Log
	require.NoError(t, jsoncodec.Unmarshal([]byte(`{
		"time": "2023-11-14T22:13:20.100Z",
		"type": "platform.report",
		"record": {"requestId": "req-1", "metrics": {"durationMs": 12.5, "billedDurationMs": 13}}
	}`), &entry))
	require.Equal(t, LogPlatformReport, entry.Type)

	var report PlatformReportRecord
	require.NoError(t, entry.DecodeRecord(&report))
	assert.Equal(t, "req-1", report.RequestID)
	assert.Equal(t, 12.5, report.Metrics.DurationMS)
	assert.Nil(t, report.Metrics.InitDurationMS)
}
