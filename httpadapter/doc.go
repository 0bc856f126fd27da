// Package httpadapter bridges HTTP-proxy-shaped invocation payloads and
// standard net/http handlers. It classifies the incoming payload by shape
// (Application Load Balancer, API Gateway HTTP API payload 2.0 including
// Function URLs, or API Gateway REST API), normalizes it into an
// *http.Request, and encodes the handler's response back into the wire shape
// of whichever front door produced the request.
package httpadapter
