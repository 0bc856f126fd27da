package lambdaflow

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDrained = errors.New("drained")

type stubClient struct {
	invocations []*Invocation
	responses   map[string][]byte
	errorTypes  map[string]string
}

func (s *stubClient) Next(ctx context.Context) (*Invocation, error) {
	if len(s.invocations) == 0 {
		return nil, errDrained
	}
	inv := s.invocations[0]
	s.invocations = s.invocations[1:]
	return inv, nil
}

func (s *stubClient) PostResponse(ctx context.Context, requestID string, body []byte) error {
	if s.responses == nil {
		s.responses = map[string][]byte{}
	}
	s.responses[requestID] = body
	return nil
}

func (s *stubClient) PostError(ctx context.Context, requestID, errorType string, doc []byte) error {
	if s.errorTypes == nil {
		s.errorTypes = map[string]string{}
	}
	s.errorTypes[requestID] = errorType
	return nil
}

func (s *stubClient) PostInitError(ctx context.Context, errorType string, doc []byte) error {
	return nil
}

func TestFacadeEndToEnd(t *testing.T) {
	headers := http.Header{}
	headers.Set("Lambda-Runtime-Aws-Request-Id", "req-1")
	headers.Set("Lambda-Runtime-Deadline-Ms", "1700000000000")

	stub := &stubClient{invocations: []*Invocation{
		{Payload: []byte(`{"name":"flow"}`), Headers: headers},
	}}

	svc, err := TryNewService(
		&Config{RuntimeAPI: "127.0.0.1:9001"},
		nil,
		ServiceDependencies{Client: stub, DisableDefaultMiddlewares: true},
	)
	require.NoError(t, err)

	type greeting struct {
		Name string `json:"name"`
	}
	require.NoError(t, RegisterJSONHandler(svc, JSONHandlerRegistration[*greeting, map[string]string]{
		Name: "greeter",
		Handler: func(ctx context.Context, event Invoke[*greeting]) (map[string]string, error) {
			meta, ok := InvocationContextFrom(ctx)
			require.True(t, ok)
			return map[string]string{"hello": event.Payload.Name, "request_id": meta.RequestID}, nil
		},
	}))

	err = svc.Start(context.Background())
	assert.ErrorIs(t, err, errDrained)
	assert.JSONEq(t, `{"hello":"flow","request_id":"req-1"}`, string(stub.responses["req-1"]))
}

func TestFacadeHandlerErrorTag(t *testing.T) {
	headers := http.Header{}
	headers.Set("Lambda-Runtime-Aws-Request-Id", "req-1")

	stub := &stubClient{invocations: []*Invocation{{Payload: []byte(`{}`), Headers: headers}}}

	svc, err := TryNewService(
		&Config{RuntimeAPI: "127.0.0.1:9001"},
		nil,
		ServiceDependencies{Client: stub, DisableDefaultMiddlewares: true},
	)
	require.NoError(t, err)

	require.NoError(t, RegisterRawHandler(svc, RawHandlerRegistration{
		Handler: func(ctx context.Context, payload []byte) ([]byte, error) {
			return nil, NewHandlerError("Function.Teapot", "short and stout")
		},
	}))

	err = svc.Start(context.Background())
	assert.ErrorIs(t, err, errDrained)
	assert.Equal(t, "Function.Teapot", stub.errorTypes["req-1"])
}

func TestStartRequiresRuntimeAPI(t *testing.T) {
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")

	err := Start(context.Background(), func(ctx context.Context, event Invoke[*struct{}]) (string, error) {
		return "", nil
	})
	require.Error(t, err)
}
