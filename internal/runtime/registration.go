package runtime

import (
	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
)

// RawHandlerRegistration wires an untyped bytes-in/bytes-out handler.
type RawHandlerRegistration struct {
	Name    string
	Handler handlerpkg.RawHandler
}

// RegisterRawHandler attaches the provided handler to the service loop.
func RegisterRawHandler(svc *Service, cfg RawHandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	return svc.SetHandler(cfg.Handler)
}

// JSONHandlerRegistration wires a typed JSON handler to the service loop.
type JSONHandlerRegistration[T any, O any] struct {
	Name    string
	Handler handlerpkg.JSONHandler[T, O]
}

// RegisterJSONHandler converts the typed handler through the JSON codec and
// attaches it to the service loop.
func RegisterJSONHandler[T any, O any](svc *Service, cfg JSONHandlerRegistration[T, O]) error {
	if svc == nil {
		return errspkg.ErrHandlerRequired
	}

	raw, err := handlerpkg.BuildJSONHandler(cfg.Handler, svc.Logger)
	if err != nil {
		return err
	}
	return svc.SetHandler(raw)
}
