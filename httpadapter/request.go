package httpadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/drblury/lambdaflow/events"
	"github.com/drblury/lambdaflow/internal/runtime/config"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

// Origin identifies which front door produced an invocation payload. The
// response must be encoded in the same origin's shape.
type Origin int

const (
	OriginUnknown Origin = iota
	OriginALB
	OriginHTTPAPI
	OriginRESTAPI
)

func (o Origin) String() string {
	switch o {
	case OriginALB:
		return "alb"
	case OriginHTTPAPI:
		return "apigw-http"
	case OriginRESTAPI:
		return "apigw-rest"
	default:
		return "unknown"
	}
}

// UnrecognizedRequestError reports a payload that matches none of the
// supported HTTP event shapes.
type UnrecognizedRequestError struct{}

func (e *UnrecognizedRequestError) Error() string {
	return "httpadapter: payload does not match any supported HTTP event shape " +
		"(ALB target group, API Gateway HTTP API, API Gateway REST API)"
}

// ErrorType tags the failure document posted for this error.
func (e *UnrecognizedRequestError) ErrorType() string { return "Runtime.InvalidPayload" }

// InvalidRequestError reports a payload that matched a shape but could not be
// converted, for example a body flagged base64 that does not decode.
type InvalidRequestError struct {
	Reason string
	Err    error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("httpadapter: %s: %v", e.Reason, e.Err)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// ErrorType tags the failure document posted for this error.
func (e *InvalidRequestError) ErrorType() string { return "Runtime.InvalidPayload" }

// RequestMeta records how a payload was classified and the origin metadata a
// handler may want beyond the normalized *http.Request. Exactly one of the
// context pointers is set, matching Origin.
type RequestMeta struct {
	Origin         Origin
	RawPath        string
	PathParameters map[string]string
	StageVariables map[string]string
	ALB            *events.ALBTargetGroupRequestContext
	HTTP           *events.APIGatewayV2HTTPRequestContext
	REST           *events.APIGatewayProxyRequestContext

	// multiValueMode is true when an ALB request carried multiValueHeaders,
	// which obliges the response to carry them too.
	multiValueMode bool
}

type metaKey struct{}

// MetaFromRequest returns the classification metadata DecodeRequest attached
// to the request context.
func MetaFromRequest(r *http.Request) (*RequestMeta, bool) {
	meta, ok := r.Context().Value(metaKey{}).(*RequestMeta)
	return meta, ok
}

// shapeProbe reads just the discriminating fields of a payload. Pointer
// fields distinguish "absent" from "empty".
type shapeProbe struct {
	Version        string  `json:"version"`
	RawPath        *string `json:"rawPath"`
	RouteKey       *string `json:"routeKey"`
	HTTPMethod     string  `json:"httpMethod"`
	Resource       *string `json:"resource"`
	RequestContext struct {
		ELB *struct{} `json:"elb"`
	} `json:"requestContext"`
}

func classify(payload []byte) (Origin, error) {
	var probe shapeProbe
	if err := jsoncodec.Unmarshal(payload, &probe); err != nil {
		return OriginUnknown, &InvalidRequestError{Reason: "parse payload", Err: err}
	}

	switch {
	case probe.RequestContext.ELB != nil:
		return OriginALB, nil
	case probe.Version == "2.0" || probe.RawPath != nil || probe.RouteKey != nil:
		return OriginHTTPAPI, nil
	case probe.HTTPMethod != "" && probe.Resource != nil:
		return OriginRESTAPI, nil
	default:
		return OriginUnknown, &UnrecognizedRequestError{}
	}
}

// DecodeRequest classifies an HTTP-proxy invocation payload and normalizes it
// into an *http.Request. The returned request carries a RequestMeta in its
// context so the matching response shape can be produced later.
func DecodeRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	origin, err := classify(payload)
	if err != nil {
		return nil, err
	}

	switch origin {
	case OriginALB:
		return decodeALB(ctx, payload)
	case OriginHTTPAPI:
		return decodeHTTPAPI(ctx, payload)
	default:
		return decodeRESTAPI(ctx, payload)
	}
}

func decodeALB(ctx context.Context, payload []byte) (*http.Request, error) {
	var ev events.ALBTargetGroupRequest
	if err := jsoncodec.Unmarshal(payload, &ev); err != nil {
		return nil, &InvalidRequestError{Reason: "parse ALB request", Err: err}
	}

	headers, multiValued := mergeHeaders(ev.Headers, ev.MultiValueHeaders)

	// ALB delivers query parameters percent-encoded; the other shapes do not.
	query := url.Values{}
	if len(ev.MultiValueQueryStringParameters) > 0 {
		for key, values := range ev.MultiValueQueryStringParameters {
			for _, value := range values {
				query.Add(percentDecode(key), percentDecode(value))
			}
		}
	} else {
		for key, value := range ev.QueryStringParameters {
			query.Set(percentDecode(key), percentDecode(value))
		}
	}

	body, err := decodeBody(ev.Body, ev.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	meta := &RequestMeta{
		Origin:         OriginALB,
		RawPath:        ev.Path,
		ALB:            &ev.RequestContext,
		multiValueMode: multiValued,
	}
	return buildRequest(ctx, ev.HTTPMethod, ev.Path, query.Encode(), headers, "", body, meta)
}

func decodeHTTPAPI(ctx context.Context, payload []byte) (*http.Request, error) {
	var ev events.APIGatewayV2HTTPRequest
	if err := jsoncodec.Unmarshal(payload, &ev); err != nil {
		return nil, &InvalidRequestError{Reason: "parse HTTP API request", Err: err}
	}

	headers := http.Header{}
	for key, value := range ev.Headers {
		headers.Set(key, value)
	}
	if len(ev.Cookies) > 0 {
		headers.Set("Cookie", strings.Join(ev.Cookies, "; "))
	}

	body, err := decodeBody(ev.Body, ev.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	// The raw query string preserves multi-valued and encoded parameters;
	// fall back to the flat map when the event omits it.
	rawQuery := ev.RawQueryString
	if rawQuery == "" && len(ev.QueryStringParameters) > 0 {
		query := url.Values{}
		for key, value := range ev.QueryStringParameters {
			query.Set(key, value)
		}
		rawQuery = query.Encode()
	}

	path := stagePath(ev.RequestContext.Stage, ev.RawPath)
	meta := &RequestMeta{
		Origin:         OriginHTTPAPI,
		RawPath:        ev.RawPath,
		PathParameters: ev.PathParameters,
		StageVariables: ev.StageVariables,
		HTTP:           &ev.RequestContext,
	}
	return buildRequest(ctx, ev.RequestContext.HTTP.Method, path, rawQuery,
		headers, ev.RequestContext.DomainName, body, meta)
}

func decodeRESTAPI(ctx context.Context, payload []byte) (*http.Request, error) {
	var ev events.APIGatewayProxyRequest
	if err := jsoncodec.Unmarshal(payload, &ev); err != nil {
		return nil, &InvalidRequestError{Reason: "parse REST API request", Err: err}
	}

	headers, _ := mergeHeaders(ev.Headers, ev.MultiValueHeaders)

	// Multi-valued query parameters are a superset of the flat map.
	query := url.Values{}
	if len(ev.MultiValueQueryStringParameters) > 0 {
		query = url.Values(ev.MultiValueQueryStringParameters)
	} else {
		for key, value := range ev.QueryStringParameters {
			query.Set(key, value)
		}
	}

	body, err := decodeBody(ev.Body, ev.IsBase64Encoded)
	if err != nil {
		return nil, err
	}

	path := stagePath(ev.RequestContext.Stage, ev.Path)
	meta := &RequestMeta{
		Origin:         OriginRESTAPI,
		RawPath:        ev.Path,
		PathParameters: ev.PathParameters,
		StageVariables: ev.StageVariables,
		REST:           &ev.RequestContext,
	}
	return buildRequest(ctx, ev.HTTPMethod, path, query.Encode(), headers,
		ev.RequestContext.DomainName, body, meta)
}

// mergeHeaders folds the flat and multi-value header maps into canonical
// net/http form, preferring the multi-value map where both are present.
func mergeHeaders(flat map[string]string, multi map[string][]string) (http.Header, bool) {
	headers := http.Header{}
	for key, values := range multi {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	for key, value := range flat {
		if headers.Get(key) == "" {
			headers.Set(key, value)
		}
	}
	return headers, len(multi) > 0
}

func percentDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// stagePath prefixes the deployment stage onto the path the way the front
// door exposes it publicly. The $default stage and already-prefixed paths
// pass through unchanged.
func stagePath(stage, path string) string {
	if stage == "" || stage == "$default" {
		return path
	}
	prefix := "/" + stage
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		return path
	}
	return prefix + path
}

func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if body == "" {
		return nil, nil
	}
	if !isBase64 {
		return []byte(body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, &InvalidRequestError{Reason: "decode base64 body", Err: err}
	}
	return decoded, nil
}

func buildRequest(ctx context.Context, method, path, rawQuery string, headers http.Header, fallbackHost string, body []byte, meta *RequestMeta) (*http.Request, error) {
	if method == "" {
		return nil, &UnrecognizedRequestError{}
	}

	if traceID := os.Getenv(config.EnvTraceID); traceID != "" {
		headers.Set("X-Amzn-Trace-Id", traceID)
	}

	host := headers.Get("Host")
	if host == "" {
		host = fallbackHost
	}

	u := &url.URL{Path: path, RawQuery: rawQuery}
	req := &http.Request{
		Method:        method,
		URL:           u,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Host:          host,
		RequestURI:    u.RequestURI(),
	}
	return req.WithContext(context.WithValue(ctx, metaKey{}, meta)), nil
}
