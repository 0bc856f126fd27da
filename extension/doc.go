// Package extension implements the external extension lifecycle: register
// with the control plane, poll for INVOKE and SHUTDOWN events, and optionally
// subscribe to the logs and telemetry streams. Log and telemetry batches are
// pushed by the control plane to a local HTTP listener the extension runs;
// lifecycle events are polled.
package extension
