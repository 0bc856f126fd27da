package extension

// Event kinds an extension can register for.
const (
	EventInvoke   = "INVOKE"
	EventShutdown = "SHUTDOWN"
)

// Tracing carries the trace header exposed to the extension on invoke events.
type Tracing struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// InvokeEvent announces that the runtime is about to process an invocation.
type InvokeEvent struct {
	DeadlineMS         int64   `json:"deadlineMs"`
	RequestID          string  `json:"requestId"`
	InvokedFunctionARN string  `json:"invokedFunctionArn"`
	Tracing            Tracing `json:"tracing"`
}

// ShutdownEvent announces that the execution environment is shutting down.
// The reason is SPINDOWN, TIMEOUT, or FAILURE.
type ShutdownEvent struct {
	ShutdownReason string `json:"shutdownReason"`
	DeadlineMS     int64  `json:"deadlineMs"`
}

// nextEvent is the wire shape of the event/next response, discriminated by
// the eventType tag.
type nextEvent struct {
	EventType          string   `json:"eventType"`
	DeadlineMS         int64    `json:"deadlineMs"`
	RequestID          string   `json:"requestId"`
	InvokedFunctionARN string   `json:"invokedFunctionArn"`
	Tracing            *Tracing `json:"tracing,omitempty"`
	ShutdownReason     string   `json:"shutdownReason,omitempty"`
}

func (e *nextEvent) invoke() *InvokeEvent {
	ev := &InvokeEvent{
		DeadlineMS:         e.DeadlineMS,
		RequestID:          e.RequestID,
		InvokedFunctionARN: e.InvokedFunctionARN,
	}
	if e.Tracing != nil {
		ev.Tracing = *e.Tracing
	}
	return ev
}

func (e *nextEvent) shutdown() *ShutdownEvent {
	return &ShutdownEvent{ShutdownReason: e.ShutdownReason, DeadlineMS: e.DeadlineMS}
}
