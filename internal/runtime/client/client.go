// Package client implements the HTTP client for the Lambda Runtime API and
// the Extensions API. It performs exactly one HTTP call per operation: no
// retries, no backoff, and no client-side timeout on the blocking poll. The
// control plane is co-located, so any failure here is escalated to the caller.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

const (
	runtimeAPIVersion   = "2018-06-01"
	extensionAPIVersion = "2020-01-01"
	logsAPIVersion      = "2020-08-15"
	telemetryAPIVersion = "2022-07-01"

	userAgent = "lambdaflow/1.0"

	headerFunctionErrorType  = "Lambda-Runtime-Function-Error-Type"
	headerExtensionName      = "Lambda-Extension-Name"
	headerExtensionID        = "Lambda-Extension-Identifier"
	headerExtensionErrorType = "Lambda-Extension-Function-Error-Type"

	contentTypeJSON = "application/json"
)

// TransportError is the single error kind for unreachable or misbehaving
// control planes. It is fatal to the current loop iteration; the platform
// restarts the execution environment on process exit.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "lambdaflow: runtime API " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Invocation is one polled event: the opaque payload plus the metadata
// headers the control plane attached to it.
type Invocation struct {
	Payload []byte
	Headers http.Header
}

// Client talks to the local control plane. The zero value is not usable;
// construct it with New.
type Client struct {
	base string
	http *http.Client
}

// New builds a Client for the control plane at hostport (the value of
// AWS_LAMBDA_RUNTIME_API). The underlying http.Client reuses connections and
// carries no timeout: the next-invocation poll blocks for as long as the
// control plane wants it to.
func New(hostport string) *Client {
	return &Client{
		base: "http://" + hostport,
		http: &http.Client{},
	}
}

// Next polls for the next invocation. It blocks until the control plane has
// an event ready.
func (c *Client) Next(ctx context.Context) (*Invocation, error) {
	url := fmt.Sprintf("%s/%s/runtime/invocation/next", c.base, runtimeAPIVersion)
	resp, err := c.do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, &TransportError{Op: "next", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "next", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "next", Err: err}
	}

	return &Invocation{Payload: payload, Headers: resp.Header}, nil
}

// PostResponse delivers a successful handler result for the given request id.
func (c *Client) PostResponse(ctx context.Context, requestID string, body []byte) error {
	url := fmt.Sprintf("%s/%s/runtime/invocation/%s/response", c.base, runtimeAPIVersion, requestID)
	return c.post(ctx, "response", url, body, nil)
}

// PostError delivers a failure document for the given request id. errorType
// is repeated in the Lambda-Runtime-Function-Error-Type header as the Runtime
// API expects.
func (c *Client) PostError(ctx context.Context, requestID, errorType string, doc []byte) error {
	url := fmt.Sprintf("%s/%s/runtime/invocation/%s/error", c.base, runtimeAPIVersion, requestID)
	return c.post(ctx, "error", url, doc, http.Header{headerFunctionErrorType: []string{errorType}})
}

// PostInitError reports a failure during runtime initialisation. The control
// plane terminates the environment afterwards.
func (c *Client) PostInitError(ctx context.Context, errorType string, doc []byte) error {
	url := fmt.Sprintf("%s/%s/runtime/init/error", c.base, runtimeAPIVersion)
	return c.post(ctx, "init error", url, doc, http.Header{headerFunctionErrorType: []string{errorType}})
}

// RegisterExtension registers an extension for the given event kinds and
// returns the identifier the control plane assigned to it.
func (c *Client) RegisterExtension(ctx context.Context, name string, body []byte) (string, error) {
	url := fmt.Sprintf("%s/%s/extension/register", c.base, extensionAPIVersion)
	resp, err := c.do(ctx, http.MethodPost, url, body, http.Header{
		headerExtensionName: []string{name},
		"Content-Type":      []string{contentTypeJSON},
	})
	if err != nil {
		return "", &TransportError{Op: "register", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "register", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	id := resp.Header.Get(headerExtensionID)
	if id == "" {
		return "", &TransportError{Op: "register", Err: fmt.Errorf("missing %s header", headerExtensionID)}
	}
	return id, nil
}

// NextExtensionEvent polls for the next lifecycle event using the identifier
// issued at registration. Blocks until the control plane posts an event.
func (c *Client) NextExtensionEvent(ctx context.Context, extensionID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/extension/event/next", c.base, extensionAPIVersion)
	resp, err := c.do(ctx, http.MethodGet, url, nil, http.Header{headerExtensionID: []string{extensionID}})
	if err != nil {
		return nil, &TransportError{Op: "event next", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "event next", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "event next", Err: err}
	}
	return payload, nil
}

// PostExtensionInitError reports an extension initialisation failure. Fatal
// to the extension process.
func (c *Client) PostExtensionInitError(ctx context.Context, extensionID, errorType string, doc []byte) error {
	return c.postExtensionError(ctx, "init", extensionID, errorType, doc)
}

// PostExtensionExitError reports a failure that stops the extension loop.
func (c *Client) PostExtensionExitError(ctx context.Context, extensionID, errorType string, doc []byte) error {
	return c.postExtensionError(ctx, "exit", extensionID, errorType, doc)
}

func (c *Client) postExtensionError(ctx context.Context, phase, extensionID, errorType string, doc []byte) error {
	url := fmt.Sprintf("%s/%s/extension/%s/error", c.base, extensionAPIVersion, phase)
	return c.post(ctx, phase+" error", url, doc, http.Header{
		headerExtensionID:        []string{extensionID},
		headerExtensionErrorType: []string{errorType},
	})
}

// SubscribeLogs subscribes the extension to the Logs API. body is the
// serialized subscription document including the destination URI.
func (c *Client) SubscribeLogs(ctx context.Context, extensionID string, body []byte) error {
	return c.subscribe(ctx, "logs", fmt.Sprintf("%s/%s/logs", c.base, logsAPIVersion), extensionID, body)
}

// SubscribeTelemetry subscribes the extension to the Telemetry API.
func (c *Client) SubscribeTelemetry(ctx context.Context, extensionID string, body []byte) error {
	return c.subscribe(ctx, "telemetry", fmt.Sprintf("%s/%s/telemetry", c.base, telemetryAPIVersion), extensionID, body)
}

func (c *Client) subscribe(ctx context.Context, op, url, extensionID string, body []byte) error {
	resp, err := c.do(ctx, http.MethodPut, url, body, http.Header{
		headerExtensionID: []string{extensionID},
		"Content-Type":    []string{contentTypeJSON},
	})
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, url string, body []byte, headers http.Header) error {
	if headers == nil {
		headers = http.Header{}
	}
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.do(ctx, http.MethodPost, url, body, headers)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", userAgent)

	return c.http.Do(req)
}
