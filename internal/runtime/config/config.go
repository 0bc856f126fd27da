package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Environment variables set by the Lambda execution environment.
const (
	EnvRuntimeAPI      = "AWS_LAMBDA_RUNTIME_API"
	EnvFunctionName    = "AWS_LAMBDA_FUNCTION_NAME"
	EnvFunctionVersion = "AWS_LAMBDA_FUNCTION_VERSION"
	EnvMemorySize      = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	EnvLogGroupName    = "AWS_LAMBDA_LOG_GROUP_NAME"
	EnvLogStreamName   = "AWS_LAMBDA_LOG_STREAM_NAME"
	EnvHandler         = "_HANDLER"
	EnvTraceID         = "_X_AMZN_TRACE_ID"
)

// Config groups the settings the runtime needs to talk to the Runtime API and
// to populate invocation metadata. All fields come from the environment that
// the Lambda service sets up; overrides are only expected in tests and in the
// local runner.
type Config struct {
	// RuntimeAPI is the host:port of the local control plane, from
	// AWS_LAMBDA_RUNTIME_API. Required.
	RuntimeAPI string

	// Static function settings used to populate invocation context defaults.
	FunctionName    string
	FunctionVersion string
	MemoryLimitMB   int
	LogGroupName    string
	LogStreamName   string
	Handler         string

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	MetricsPort int
}

// FromEnv builds a Config from the process environment. It does not validate;
// call Validate (or ValidateConfig) before starting the runtime.
func FromEnv() *Config {
	memory := 0
	if raw := os.Getenv(EnvMemorySize); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			memory = parsed
		}
	}

	return &Config{
		RuntimeAPI:      os.Getenv(EnvRuntimeAPI),
		FunctionName:    os.Getenv(EnvFunctionName),
		FunctionVersion: os.Getenv(EnvFunctionVersion),
		MemoryLimitMB:   memory,
		LogGroupName:    os.Getenv(EnvLogGroupName),
		LogStreamName:   os.Getenv(EnvLogStreamName),
		Handler:         os.Getenv(EnvHandler),
	}
}

// Validate checks that the configuration is usable. The runtime API endpoint
// is the only hard requirement; everything else degrades to empty context
// fields.
func (c *Config) Validate() error {
	var errs []error

	if c.RuntimeAPI == "" {
		errs = append(errs, errors.New("runtime: "+EnvRuntimeAPI+" is required"))
	}
	if c.MemoryLimitMB < 0 {
		errs = append(errs, errors.New("runtime: memory limit cannot be negative"))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}

	return errors.Join(errs...)
}

// ValidateConfig is a convenience wrapper mirroring Config.Validate for
// callers that hold a possibly-nil pointer.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("runtime: config is required")
	}
	return c.Validate()
}
