package errors

import sterrors "errors"

var (
	ErrHandlerRequired       = sterrors.New("lambdaflow: handler function is required")
	ErrHandlerRegistered     = sterrors.New("lambdaflow: a handler is already registered")
	ErrHandlerPointerNeeded  = sterrors.New("lambdaflow: typed event must be a pointer type")
	ErrRuntimeAPIRequired    = sterrors.New("lambdaflow: AWS_LAMBDA_RUNTIME_API is not set")
	ErrLoggerRequired        = sterrors.New("lambdaflow: logger is required")
	ErrMissingRequestID      = sterrors.New("lambdaflow: invocation is missing the request id header")
	ErrExtensionNameRequired = sterrors.New("lambdaflow: extension name is required")
	ErrNoEventProcessor      = sterrors.New("lambdaflow: extension has no event processor")
)

// ConfigValidationError reports an invalid runtime configuration field.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return "lambdaflow: invalid configuration field " + e.Field + ": " + e.Reason
}
