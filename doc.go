// Package lambdaflow is a client library and execution harness for functions
// running inside the AWS Lambda execution environment. It speaks the Runtime
// API on behalf of the handler: Service polls the control plane for
// invocations, decodes the per-invocation metadata from response headers,
// dispatches the payload to a registered handler, and posts the result or a
// structured error document back. The loop runs until the process exits; the
// control plane owns the lifecycle.
//
// RegisterJSONHandler wires a typed handler through the JSON codec so
// application code works with its own event and output types; Start is the
// one-call entrypoint that builds the service from the environment and runs
// it. Invocation metadata (request id, deadline, function ARN, trace id,
// mobile client context, Cognito identity) travels in the context and is also
// enforced as the context deadline.
//
// # Middleware
//
// The default middleware chain logs each invocation, opens an OpenTelemetry
// span carrying the invocation id and trace header, and records Prometheus
// metrics (optionally served on a local port). Custom middleware can be added
// via ServiceDependencies.Middlewares.
//
// # HTTP functions and extensions
//
// The httpadapter subpackage converts API Gateway, Function URL, and ALB
// proxy events to and from net/http, so any http.Handler can serve as the
// function body. The extension subpackage implements the companion Extensions
// API lifecycle, including the pushed logs and telemetry streams. The events
// subpackage holds the proxy wire shapes.
package lambdaflow
