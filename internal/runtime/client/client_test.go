package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(strings.TrimPrefix(srv.URL, "http://"))
}

func TestNextReturnsPayloadAndHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/2018-06-01/runtime/invocation/next", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "lambdaflow/"))

		w.Header().Set("Lambda-Runtime-Aws-Request-Id", "req-1")
		w.Header().Set("Lambda-Runtime-Deadline-Ms", "1700000000000")
		w.Write([]byte(`{"hello":"world"}`))
	})

	inv, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(inv.Payload))
	assert.Equal(t, "req-1", inv.Headers.Get("Lambda-Runtime-Aws-Request-Id"))
}

func TestNextUnreachableIsTransportError(t *testing.T) {
	c := New("127.0.0.1:1")

	_, err := c.Next(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "next", te.Op)
}

func TestPostResponse(t *testing.T) {
	var gotPath, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusAccepted)
	})

	err := c.PostResponse(context.Background(), "req-1", []byte(`"ok"`))
	require.NoError(t, err)
	assert.Equal(t, "/2018-06-01/runtime/invocation/req-1/response", gotPath)
	assert.Equal(t, `"ok"`, gotBody)
}

func TestPostErrorSetsErrorTypeHeader(t *testing.T) {
	var gotHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Lambda-Runtime-Function-Error-Type")
		assert.Equal(t, "/2018-06-01/runtime/invocation/req-1/error", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	})

	err := c.PostError(context.Background(), "req-1", "Handler.Timeout", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Handler.Timeout", gotHeader)
}

func TestPostResponseRejectsBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.PostResponse(context.Background(), "req-1", nil)
	var te *TransportError
	require.True(t, errors.As(err, &te))
}

func TestRegisterExtension(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2020-01-01/extension/register", r.URL.Path)
		assert.Equal(t, "my-extension", r.Header.Get("Lambda-Extension-Name"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"events":["INVOKE","SHUTDOWN"]}`, string(body))

		w.Header().Set("Lambda-Extension-Identifier", "ext-123")
		w.WriteHeader(http.StatusOK)
	})

	id, err := c.RegisterExtension(context.Background(), "my-extension", []byte(`{"events":["INVOKE","SHUTDOWN"]}`))
	require.NoError(t, err)
	assert.Equal(t, "ext-123", id)
}

func TestRegisterExtensionMissingIdentifier(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.RegisterExtension(context.Background(), "my-extension", nil)
	require.Error(t, err)
}

func TestNextExtensionEventSendsIdentifier(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2020-01-01/extension/event/next", r.URL.Path)
		assert.Equal(t, "ext-123", r.Header.Get("Lambda-Extension-Identifier"))
		w.Write([]byte(`{"eventType":"SHUTDOWN","shutdownReason":"SPINDOWN","deadlineMs":1700000000000}`))
	})

	payload, err := c.NextExtensionEvent(context.Background(), "ext-123")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "SHUTDOWN")
}

func TestNextExtensionEventTruncatedBodyIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are written so the body read fails.
		w.Header().Set("Content-Length", "1024")
		w.Write([]byte(`{"eventType":`))
	})

	_, err := c.NextExtensionEvent(context.Background(), "ext-123")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "event next", te.Op)
}

func TestSubscribeLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/2020-08-15/logs", r.URL.Path)
		assert.Equal(t, "ext-123", r.Header.Get("Lambda-Extension-Identifier"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.SubscribeLogs(context.Background(), "ext-123", []byte(`{}`)))
}

func TestSubscribeTelemetryRejectsNon200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2022-07-01/telemetry", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.SubscribeTelemetry(context.Background(), "ext-123", []byte(`{}`))
	require.Error(t, err)
}
