package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	clientpkg "github.com/drblury/lambdaflow/internal/runtime/client"
	configpkg "github.com/drblury/lambdaflow/internal/runtime/config"
	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
	idspkg "github.com/drblury/lambdaflow/internal/runtime/ids"
	"github.com/drblury/lambdaflow/internal/runtime/invokectx"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaflow/internal/runtime/logging"
)

// RuntimeClient is the slice of the Runtime API client the invocation loop
// uses. Tests substitute a fake.
type RuntimeClient interface {
	Next(ctx context.Context) (*clientpkg.Invocation, error)
	PostResponse(ctx context.Context, requestID string, body []byte) error
	PostError(ctx context.Context, requestID, errorType string, doc []byte) error
	PostInitError(ctx context.Context, errorType string, doc []byte) error
}

// ServiceDependencies holds the optional collaborators for a Service. Leave
// fields nil/zero for defaults.
type ServiceDependencies struct {
	Client                    RuntimeClient
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
}

// Service owns the poll-dispatch-respond loop against the Runtime API. It
// holds exactly one handler; register it before calling Start.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	client     RuntimeClient
	instanceID string

	handler   handlerpkg.RawHandler
	handlerMu sync.Mutex

	middlewares []MiddlewareRegistration

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService constructs a Service for the supplied configuration. It panics
// when the configuration is unusable; use TryNewService to get the error
// instead. Panicking here forces the platform to terminate the environment,
// which is the only useful outcome when the control plane cannot be reached.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService is NewService without the panic.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		conf = configpkg.FromEnv()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = loggingpkg.Default()
	}

	s := &Service{
		Conf:       conf,
		Logger:     log,
		client:     deps.Client,
		instanceID: idspkg.CreateULID(),
	}
	if s.client == nil {
		s.client = clientpkg.New(conf.RuntimeAPI)
	}

	log.Info("Creating runtime service", loggingpkg.LogFields{
		"instance_id":   s.instanceID,
		"function_name": conf.FunctionName,
		"runtime_api":   conf.RuntimeAPI,
	})

	if !deps.DisableDefaultMiddlewares {
		s.middlewares = append(s.middlewares, DefaultMiddlewares()...)
	}
	s.middlewares = append(s.middlewares, deps.Middlewares...)

	return s, nil
}

// SetHandler installs the raw handler the loop dispatches to. A second call
// is an error: a Lambda execution environment handles exactly one function.
func (s *Service) SetHandler(handler handlerpkg.RawHandler) error {
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	if s.handler != nil {
		return errspkg.ErrHandlerRegistered
	}
	s.handler = handler
	return nil
}

// Start runs the invocation loop until the context is cancelled or a
// transport error makes the control plane unusable. It never returns nil
// while healthy: the only way out of the loop is an error or process exit.
func (s *Service) Start(ctx context.Context) error {
	s.handlerMu.Lock()
	handler := s.handler
	s.handlerMu.Unlock()

	if handler == nil {
		doc, _ := jsoncodec.Marshal(DiagnosticFromError(errspkg.ErrHandlerRequired))
		if postErr := s.client.PostInitError(ctx, "Runtime.NoHandler", doc); postErr != nil {
			s.Logger.Error("Failed to report init error", postErr, nil)
		}
		return errspkg.ErrHandlerRequired
	}

	wrapped, err := s.buildHandler(handler)
	if err != nil {
		doc, _ := jsoncodec.Marshal(DiagnosticFromError(err))
		if postErr := s.client.PostInitError(ctx, "Runtime.InitError", doc); postErr != nil {
			s.Logger.Error("Failed to report init error", postErr, nil)
		}
		return err
	}

	s.startHTTPServers()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processNext(ctx, wrapped); err != nil {
			return err
		}
	}
}

// processNext performs one Await-Next / Decode / Dispatch / Respond cycle.
// Decode and handler failures are posted through the error endpoint and do
// not stop the loop; transport failures are returned and terminate it.
func (s *Service) processNext(ctx context.Context, handler handlerpkg.RawHandler) error {
	inv, err := s.client.Next(ctx)
	if err != nil {
		return err
	}

	meta, err := invokectx.FromHeaders(inv.Headers, s.Conf)
	if err != nil {
		// Without a request id there is no error endpoint to post to.
		s.Logger.Error("Dropping undeliverable invocation", err, nil)
		return err
	}

	invCtx := invokectx.NewContext(ctx, meta)
	if meta.DeadlineMS > 0 {
		var cancel context.CancelFunc
		invCtx, cancel = context.WithDeadline(invCtx, meta.Deadline())
		defer cancel()
	}

	out, handlerErr := handler(invCtx, inv.Payload)
	if handlerErr != nil {
		return s.respondError(ctx, meta.RequestID, handlerErr)
	}

	if err := s.client.PostResponse(ctx, meta.RequestID, out); err != nil {
		return err
	}
	return nil
}

func (s *Service) respondError(ctx context.Context, requestID string, handlerErr error) error {
	diag := DiagnosticFromError(handlerErr)
	doc, err := jsoncodec.Marshal(diag)
	if err != nil {
		doc = []byte(fmt.Sprintf(
			`{"errorType":"Runtime.DiagnosticEncoding","errorMessage":%q}`, err.Error()))
		diag.ErrorType = "Runtime.DiagnosticEncoding"
	}
	return s.client.PostError(ctx, requestID, diag.ErrorType, doc)
}

func (s *Service) buildHandler(handler handlerpkg.RawHandler) (handlerpkg.RawHandler, error) {
	registrations := make([]MiddlewareRegistration, len(s.middlewares))
	copy(registrations, s.middlewares)

	// Apply in reverse so the first registration is the outermost wrapper.
	for i := len(registrations) - 1; i >= 0; i-- {
		reg := registrations[i]
		mw := reg.Middleware
		if reg.Builder != nil {
			built, err := reg.Builder(s)
			if err != nil {
				name := reg.Name
				if name == "" {
					name = "anonymous_middleware"
				}
				return nil, fmt.Errorf("lambdaflow: failed to build middleware %s: %w", name, err)
			}
			mw = built
		}
		if mw == nil {
			continue
		}
		handler = mw(handler)
	}
	return handler, nil
}

// RegisterHTTPHandler mounts an HTTP handler on an auxiliary port, started
// alongside the loop. Used by the metrics middleware for /metrics.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
