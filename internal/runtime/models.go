package runtime

import (
	"errors"
	"reflect"
)

// Diagnostic is the error document wire format the Runtime API accepts on the
// invocation error and init error endpoints.
type Diagnostic struct {
	ErrorType    string   `json:"errorType"`
	ErrorMessage string   `json:"errorMessage"`
	StackTrace   []string `json:"stackTrace,omitempty"`
}

// HandlerError is a typed failure a handler can return to control the
// errorType tag of the posted failure document.
type HandlerError struct {
	Kind    string
	Message string
	Stack   []string
}

// NewHandlerError builds a HandlerError with an explicit error kind.
func NewHandlerError(kind, message string) *HandlerError {
	return &HandlerError{Kind: kind, Message: message}
}

func (e *HandlerError) Error() string { return e.Message }

// ErrorType reports the kind used as the errorType field.
func (e *HandlerError) ErrorType() string { return e.Kind }

// errorTyper lets error values carry their own errorType tag.
type errorTyper interface {
	ErrorType() string
}

// DiagnosticFromError converts any handler failure into the wire document.
// Errors that implement ErrorType() keep their tag; everything else derives
// the tag from the Go type name.
func DiagnosticFromError(err error) Diagnostic {
	diag := Diagnostic{
		ErrorType:    errorTypeOf(err),
		ErrorMessage: err.Error(),
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) && len(handlerErr.Stack) > 0 {
		diag.StackTrace = handlerErr.Stack
	}

	return diag
}

func errorTypeOf(err error) string {
	var typed errorTyper
	if errors.As(err, &typed) {
		if kind := typed.ErrorType(); kind != "" {
			return kind
		}
	}

	typ := reflect.TypeOf(err)
	if typ == nil {
		return "UnknownError"
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if name := typ.Name(); name != "" {
		return name
	}
	return typ.String()
}
