// Package invokectx holds the per-invocation metadata the Runtime API
// delivers through response headers, merged with the static function settings
// from the environment.
package invokectx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	configpkg "github.com/drblury/lambdaflow/internal/runtime/config"
	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

// Headers returned by the next-invocation poll.
const (
	HeaderRequestID       = "Lambda-Runtime-Aws-Request-Id"
	HeaderDeadlineMS      = "Lambda-Runtime-Deadline-Ms"
	HeaderFunctionARN     = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderTraceID         = "Lambda-Runtime-Trace-Id"
	HeaderClientContext   = "Lambda-Runtime-Client-Context"
	HeaderCognitoIdentity = "Lambda-Runtime-Cognito-Identity"
)

// ClientApplication is the mobile client application sent via the AWS Mobile SDK.
type ClientApplication struct {
	InstallationID string `json:"installation_id"`
	AppTitle       string `json:"app_title"`
	AppVersionName string `json:"app_version_name"`
	AppVersionCode string `json:"app_version_code"`
	AppPackageName string `json:"app_package_name"`
}

// ClientContext is attached by mobile SDK invocations.
type ClientContext struct {
	Client ClientApplication `json:"client"`
	Env    map[string]string `json:"env"`
	Custom map[string]string `json:"custom"`
}

// CognitoIdentity describes the federated identity that invoked the function.
type CognitoIdentity struct {
	IdentityID     string `json:"cognitoIdentityId"`
	IdentityPoolID string `json:"cognitoIdentityPoolId"`
}

// Context is the invocation metadata passed to every handler. It is built
// fresh from the poll response headers for each invocation and is read-only
// to handler code.
type Context struct {
	RequestID          string
	InvokedFunctionARN string
	XRayTraceID        string

	// DeadlineMS is the invocation deadline in milliseconds since the Unix
	// epoch, exactly as delivered by the control plane.
	DeadlineMS int64

	ClientContext   *ClientContext
	CognitoIdentity *CognitoIdentity

	// Static settings from the execution environment.
	FunctionName    string
	FunctionVersion string
	MemoryLimitMB   int
	LogGroupName    string
	LogStreamName   string
}

// Deadline returns the invocation deadline as an absolute time.
func (c *Context) Deadline() time.Time {
	return time.UnixMilli(c.DeadlineMS)
}

// RemainingTime reports how long the handler has before the platform
// terminates the environment.
func (c *Context) RemainingTime() time.Duration {
	return time.Until(c.Deadline())
}

// FromHeaders builds a Context from a next-invocation response. The request
// id is the only required header; the optional JSON headers degrade to absent
// when they fail to parse, they never fail the invocation.
func FromHeaders(headers http.Header, conf *configpkg.Config) (*Context, error) {
	requestID := headers.Get(HeaderRequestID)
	if requestID == "" {
		return nil, errspkg.ErrMissingRequestID
	}

	ctx := &Context{
		RequestID:          requestID,
		InvokedFunctionARN: headers.Get(HeaderFunctionARN),
		XRayTraceID:        headers.Get(HeaderTraceID),
	}

	if raw := headers.Get(HeaderDeadlineMS); raw != "" {
		if deadline, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ctx.DeadlineMS = deadline
		}
	}

	if raw := headers.Get(HeaderClientContext); raw != "" {
		var cc ClientContext
		if err := jsoncodec.Unmarshal([]byte(raw), &cc); err == nil {
			ctx.ClientContext = &cc
		}
	}

	if raw := headers.Get(HeaderCognitoIdentity); raw != "" {
		var identity CognitoIdentity
		if err := jsoncodec.Unmarshal([]byte(raw), &identity); err == nil {
			ctx.CognitoIdentity = &identity
		}
	}

	if conf != nil {
		ctx.FunctionName = conf.FunctionName
		ctx.FunctionVersion = conf.FunctionVersion
		ctx.MemoryLimitMB = conf.MemoryLimitMB
		ctx.LogGroupName = conf.LogGroupName
		ctx.LogStreamName = conf.LogStreamName
	}

	return ctx, nil
}

type contextKey struct{}

// NewContext stores the invocation metadata in a context.Context.
func NewContext(parent context.Context, inv *Context) context.Context {
	return context.WithValue(parent, contextKey{}, inv)
}

// FromContext retrieves the invocation metadata stored by NewContext.
func FromContext(ctx context.Context) (*Context, bool) {
	inv, ok := ctx.Value(contextKey{}).(*Context)
	return inv, ok
}
