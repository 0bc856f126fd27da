package lambdaflow

import (
	"context"

	runtimepkg "github.com/drblury/lambdaflow/internal/runtime"
	clientpkg "github.com/drblury/lambdaflow/internal/runtime/client"
	configpkg "github.com/drblury/lambdaflow/internal/runtime/config"
	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
	idspkg "github.com/drblury/lambdaflow/internal/runtime/ids"
	"github.com/drblury/lambdaflow/internal/runtime/invokectx"
	jsoncodec "github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaflow/internal/runtime/logging"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	RuntimeClient       = runtimepkg.RuntimeClient

	RawHandler                            = handlerpkg.RawHandler
	RawHandlerRegistration                = runtimepkg.RawHandlerRegistration
	JSONHandler[T any, O any]             = handlerpkg.JSONHandler[T, O]
	JSONHandlerRegistration[T any, O any] = runtimepkg.JSONHandlerRegistration[T, O]
	Invoke[T any]                         = handlerpkg.Invoke[T]
	InvalidPayloadError                   = handlerpkg.InvalidPayloadError

	Middleware             = runtimepkg.Middleware
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	Diagnostic   = runtimepkg.Diagnostic
	HandlerError = runtimepkg.HandlerError

	InvocationContext = invokectx.Context
	ClientApplication = invokectx.ClientApplication
	ClientContext     = invokectx.ClientContext
	CognitoIdentity   = invokectx.CognitoIdentity

	Invocation     = clientpkg.Invocation
	TransportError = clientpkg.TransportError

	LogFields             = loggingpkg.LogFields
	ServiceLogger         = loggingpkg.ServiceLogger
	ConfigValidationError = errspkg.ConfigValidationError
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ConfigFromEnv  = configpkg.FromEnv
	ValidateConfig = configpkg.ValidateConfig

	RegisterRawHandler = runtimepkg.RegisterRawHandler

	DefaultMiddlewares       = runtimepkg.DefaultMiddlewares
	LogInvocationsMiddleware = runtimepkg.LogInvocationsMiddleware
	TracerMiddleware         = runtimepkg.TracerMiddleware
	MetricsMiddleware        = runtimepkg.MetricsMiddleware

	NewHandlerError     = runtimepkg.NewHandlerError
	DiagnosticFromError = runtimepkg.DiagnosticFromError

	// InvocationContextFrom retrieves the per-invocation metadata the loop
	// stores in the handler context.
	InvocationContextFrom = invokectx.FromContext

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrHandlerRegistered    = errspkg.ErrHandlerRegistered
	ErrHandlerPointerNeeded = errspkg.ErrHandlerPointerNeeded
	ErrRuntimeAPIRequired   = errspkg.ErrRuntimeAPIRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	// SetDefaultLogger replaces the logger used when none is supplied.
	SetDefaultLogger = loggingpkg.SetDefault

	CreateULID = idspkg.CreateULID
)

// RegisterJSONHandler converts a typed handler through the JSON codec and
// attaches it to the service loop.
func RegisterJSONHandler[T any, O any](svc *Service, cfg JSONHandlerRegistration[T, O]) error {
	return runtimepkg.RegisterJSONHandler(svc, cfg)
}

// Start builds a Service from the environment, registers the typed handler,
// and runs the invocation loop until the control plane terminates the
// process. It is the usual entrypoint of a function binary:
//
//	func main() {
//		if err := lambdaflow.Start(context.Background(), handle); err != nil {
//			log.Fatal(err)
//		}
//	}
func Start[T any, O any](ctx context.Context, handler JSONHandler[T, O]) error {
	svc, err := TryNewService(nil, nil, ServiceDependencies{})
	if err != nil {
		return err
	}
	if err := RegisterJSONHandler(svc, JSONHandlerRegistration[T, O]{Handler: handler}); err != nil {
		return err
	}
	return svc.Start(ctx)
}
