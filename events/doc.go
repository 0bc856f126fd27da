// Package events defines the serialization types for the HTTP-proxy event
// sources that can trigger a function: API Gateway REST APIs, API Gateway
// HTTP APIs (payload format 2.0, also used by Function URLs), and Application
// Load Balancer target groups. The structs are passive wire shapes consumed
// by handlers and by the httpadapter package; the invocation loop never
// inspects them.
package events
