package extension

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	clientpkg "github.com/drblury/lambdaflow/internal/runtime/client"
	configpkg "github.com/drblury/lambdaflow/internal/runtime/config"
	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaflow/internal/runtime/logging"
)

// Client is the slice of the control-plane client the extension lifecycle
// uses. Tests substitute a fake.
type Client interface {
	RegisterExtension(ctx context.Context, name string, body []byte) (string, error)
	NextExtensionEvent(ctx context.Context, extensionID string) ([]byte, error)
	PostExtensionInitError(ctx context.Context, extensionID, errorType string, doc []byte) error
	PostExtensionExitError(ctx context.Context, extensionID, errorType string, doc []byte) error
	SubscribeLogs(ctx context.Context, extensionID string, body []byte) error
	SubscribeTelemetry(ctx context.Context, extensionID string, body []byte) error
}

// Config controls registration and the optional stream subscriptions.
type Config struct {
	// Name identifies the extension to the control plane. Defaults to the
	// executable name, which is what the control plane expects for external
	// extensions.
	Name string

	// Events to register for. Defaults to INVOKE and SHUTDOWN.
	Events []string

	// RuntimeAPI is the control-plane host:port. Defaults to the
	// AWS_LAMBDA_RUNTIME_API environment variable.
	RuntimeAPI string

	// ListenAddr is where the push listener for log and telemetry batches
	// binds. Defaults to a dynamic localhost port.
	ListenAddr string

	// LogTypes selects the log record sources to subscribe to. Defaults to
	// platform and function records.
	LogTypes []string

	// LogBuffering overrides the control-plane batching defaults.
	LogBuffering *Buffering

	// TelemetryTypes selects the telemetry record sources to subscribe to.
	// Defaults to platform and function records.
	TelemetryTypes []string

	// TelemetryBuffering overrides the control-plane batching defaults.
	TelemetryBuffering *Buffering
}

// Dependencies carries the processors and an optional client override.
// Batches and events are forwarded to whichever processors are set; at least
// one must be.
type Dependencies struct {
	Client      Client
	OnInvoke    func(ctx context.Context, event *InvokeEvent) error
	OnShutdown  func(ctx context.Context, event *ShutdownEvent) error
	OnLogs      func(ctx context.Context, batch []Log) error
	OnTelemetry func(ctx context.Context, batch []TelemetryRecord) error
}

// Extension runs the register / poll / classify lifecycle against the
// control plane.
type Extension struct {
	Conf   *Config
	Logger loggingpkg.ServiceLogger

	client Client
	deps   Dependencies
	id     string
}

// New builds an Extension and panics when the configuration is unusable.
func New(conf *Config, log loggingpkg.ServiceLogger, deps Dependencies) *Extension {
	ext, err := TryNew(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return ext
}

// TryNew builds an Extension, filling defaults from the environment.
func TryNew(conf *Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Extension, error) {
	if conf == nil {
		conf = &Config{}
	}
	if conf.Name == "" {
		conf.Name = filepath.Base(os.Args[0])
	}
	if conf.Name == "" {
		return nil, errspkg.ErrExtensionNameRequired
	}
	if len(conf.Events) == 0 {
		conf.Events = []string{EventInvoke, EventShutdown}
	}
	if conf.RuntimeAPI == "" {
		conf.RuntimeAPI = os.Getenv(configpkg.EnvRuntimeAPI)
	}
	if conf.ListenAddr == "" {
		conf.ListenAddr = "127.0.0.1:0"
	}
	if len(conf.LogTypes) == 0 {
		conf.LogTypes = []string{"platform", "function"}
	}
	if len(conf.TelemetryTypes) == 0 {
		conf.TelemetryTypes = []string{"platform", "function"}
	}
	if conf.LogBuffering != nil {
		if err := conf.LogBuffering.Validate(); err != nil {
			return nil, err
		}
	}
	if conf.TelemetryBuffering != nil {
		if err := conf.TelemetryBuffering.Validate(); err != nil {
			return nil, err
		}
	}

	if deps.OnInvoke == nil && deps.OnShutdown == nil && deps.OnLogs == nil && deps.OnTelemetry == nil {
		return nil, errspkg.ErrNoEventProcessor
	}

	if log == nil {
		log = loggingpkg.Default()
	}

	client := deps.Client
	if client == nil {
		if conf.RuntimeAPI == "" {
			return nil, errspkg.ErrRuntimeAPIRequired
		}
		client = clientpkg.New(conf.RuntimeAPI)
	}

	return &Extension{
		Conf:   conf,
		Logger: log.With(loggingpkg.LogFields{"extension_name": conf.Name}),
		client: client,
		deps:   deps,
	}, nil
}

// ID returns the identifier issued at registration, empty before Run.
func (e *Extension) ID() string { return e.id }

// Run registers the extension, subscribes the configured streams, and polls
// for events until a shutdown event arrives or the poll fails. Subscription
// failures are reported through the init-error endpoint and processor
// failures through the exit-error endpoint; registration failures are
// returned directly, since without an identifier there is no endpoint to
// post to. All of them are fatal.
func (e *Extension) Run(ctx context.Context) error {
	if err := e.register(ctx); err != nil {
		return err
	}
	e.Logger.Info("Extension registered", loggingpkg.LogFields{"extension_id": e.id})

	if e.deps.OnLogs != nil || e.deps.OnTelemetry != nil {
		shutdown, err := e.subscribeStreams(ctx)
		if err != nil {
			e.reportInitError(ctx, "Extension.SubscriptionFailure", err)
			return err
		}
		defer shutdown()
	}

	return e.poll(ctx)
}

func (e *Extension) register(ctx context.Context) error {
	body, err := jsoncodec.Marshal(map[string][]string{"events": e.Conf.Events})
	if err != nil {
		return err
	}
	id, err := e.client.RegisterExtension(ctx, e.Conf.Name, body)
	if err != nil {
		return err
	}
	e.id = id
	return nil
}

// subscription is the body of the logs and telemetry subscribe calls.
type subscription struct {
	SchemaVersion string      `json:"schemaVersion"`
	Types         []string    `json:"types"`
	Buffering     Buffering   `json:"buffering"`
	Destination   destination `json:"destination"`
}

type destination struct {
	Protocol string `json:"protocol"`
	URI      string `json:"URI"`
}

func (e *Extension) subscribeStreams(ctx context.Context) (func(), error) {
	listener, err := net.Listen("tcp", e.Conf.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("lambdaflow: listen for pushed batches: %w", err)
	}

	server := &http.Server{Handler: e.pushHandler()}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			e.Logger.Error("Push listener stopped", serveErr, nil)
		}
	}()
	shutdown := func() { _ = server.Close() }

	base := "http://" + listener.Addr().String()

	if e.deps.OnLogs != nil {
		body, err := e.subscriptionBody("2020-08-15", e.Conf.LogTypes, e.Conf.LogBuffering, base+"/logs")
		if err == nil {
			err = e.client.SubscribeLogs(ctx, e.id, body)
		}
		if err != nil {
			shutdown()
			return nil, err
		}
	}

	if e.deps.OnTelemetry != nil {
		body, err := e.subscriptionBody("2022-12-13", e.Conf.TelemetryTypes, e.Conf.TelemetryBuffering, base+"/telemetry")
		if err == nil {
			err = e.client.SubscribeTelemetry(ctx, e.id, body)
		}
		if err != nil {
			shutdown()
			return nil, err
		}
	}

	return shutdown, nil
}

func (e *Extension) subscriptionBody(schemaVersion string, types []string, buffering *Buffering, uri string) ([]byte, error) {
	b := DefaultBuffering()
	if buffering != nil {
		b = *buffering
	}
	return jsoncodec.Marshal(subscription{
		SchemaVersion: schemaVersion,
		Types:         types,
		Buffering:     b,
		Destination:   destination{Protocol: "HTTP", URI: uri},
	})
}

// pushHandler receives batches the control plane POSTs to the local
// listener. Processor failures on pushed batches are logged, not fatal: the
// stream has no error channel back to the control plane.
func (e *Extension) pushHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		var batch []Log
		if err := jsoncodec.Decode(r.Body, &batch); err != nil {
			e.Logger.Error("Discarding undecodable log batch", err, nil)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := e.deps.OnLogs(r.Context(), batch); err != nil {
			e.Logger.Error("Log processor failed", err, loggingpkg.LogFields{"records": len(batch)})
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		var batch []TelemetryRecord
		if err := jsoncodec.Decode(r.Body, &batch); err != nil {
			e.Logger.Error("Discarding undecodable telemetry batch", err, nil)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := e.deps.OnTelemetry(r.Context(), batch); err != nil {
			e.Logger.Error("Telemetry processor failed", err, loggingpkg.LogFields{"records": len(batch)})
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (e *Extension) poll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := e.client.NextExtensionEvent(ctx, e.id)
		if err != nil {
			return err
		}

		var event nextEvent
		if err := jsoncodec.Unmarshal(raw, &event); err != nil {
			e.reportExitError(ctx, "Extension.InvalidEvent", err)
			return err
		}

		switch event.EventType {
		case EventInvoke:
			if e.deps.OnInvoke == nil {
				continue
			}
			if err := e.deps.OnInvoke(ctx, event.invoke()); err != nil {
				e.reportExitError(ctx, "Extension.ProcessorFailure", err)
				return err
			}
		case EventShutdown:
			if e.deps.OnShutdown != nil {
				if err := e.deps.OnShutdown(ctx, event.shutdown()); err != nil {
					e.reportExitError(ctx, "Extension.ProcessorFailure", err)
					return err
				}
			}
			return nil
		default:
			e.Logger.Debug("Skipping unknown event type",
				loggingpkg.LogFields{"event_type": event.EventType})
		}
	}
}

func (e *Extension) reportInitError(ctx context.Context, errorType string, cause error) {
	if err := e.client.PostExtensionInitError(ctx, e.id, errorType, errorDoc(errorType, cause)); err != nil {
		e.Logger.Error("Failed to report init error", err, nil)
	}
}

func (e *Extension) reportExitError(ctx context.Context, errorType string, cause error) {
	if err := e.client.PostExtensionExitError(ctx, e.id, errorType, errorDoc(errorType, cause)); err != nil {
		e.Logger.Error("Failed to report exit error", err, nil)
	}
}

func errorDoc(errorType string, cause error) []byte {
	doc, err := jsoncodec.Marshal(map[string]string{
		"errorType":    errorType,
		"errorMessage": cause.Error(),
	})
	if err != nil {
		return []byte(`{"errorType":"` + errorType + `"}`)
	}
	return doc
}
