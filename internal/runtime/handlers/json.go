package handlers

import (
	"context"
	"fmt"
	"reflect"

	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	"github.com/drblury/lambdaflow/internal/runtime/invokectx"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaflow/internal/runtime/logging"
)

// RawHandler is the single capability the invocation loop depends on: bytes
// in, bytes out. Typed registrations wrap their handler into this shape; the
// invocation metadata travels in ctx via invokectx.
type RawHandler func(ctx context.Context, payload []byte) ([]byte, error)

// InvalidPayloadError wraps payloads that failed to unmarshal into the
// handler's event type. It is reported through the error endpoint and never
// terminates the loop.
type InvalidPayloadError struct {
	err error
}

func (e *InvalidPayloadError) Error() string {
	return "invalid event payload: " + e.err.Error()
}

func (e *InvalidPayloadError) Unwrap() error { return e.err }

// ErrorType tags the failure document posted for this error.
func (e *InvalidPayloadError) ErrorType() string { return "Runtime.InvalidPayload" }

// Invoke exposes the decoded payload and the invocation metadata to typed
// handlers.
type Invoke[T any] struct {
	Payload T
	Meta    *invokectx.Context
	Logger  loggingpkg.ServiceLogger
}

// JSONHandler processes a typed JSON event and returns the value to post as
// the invocation response.
type JSONHandler[T any, O any] func(ctx context.Context, event Invoke[T]) (O, error)

// BuildJSONHandler converts a typed JSON handler into a RawHandler. The event
// type must be a pointer so a fresh value can be allocated per invocation.
func BuildJSONHandler[T any, O any](handler JSONHandler[T, O], logger loggingpkg.ServiceLogger) (RawHandler, error) {
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if logger == nil {
		logger = loggingpkg.Default()
	}

	prototypeFactory, err := jsonPrototypeFactory[T]()
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, payload []byte) ([]byte, error) {
		typed := prototypeFactory()

		if err := jsoncodec.Unmarshal(payload, typed); err != nil {
			return nil, &InvalidPayloadError{err: fmt.Errorf("unmarshal into %T: %w", typed, err)}
		}

		meta, _ := invokectx.FromContext(ctx)
		out, err := handler(ctx, Invoke[T]{
			Payload: typed,
			Meta:    meta,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}

		return jsoncodec.Marshal(out)
	}, nil
}

func jsonPrototypeFactory[T any]() (func() T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, errspkg.ErrHandlerPointerNeeded
	}
	elem := typ.Elem()
	return func() T {
		clone := reflect.New(elem).Interface()
		return clone.(T)
	}, nil
}
