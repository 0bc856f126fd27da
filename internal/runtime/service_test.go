package runtime

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientpkg "github.com/drblury/lambdaflow/internal/runtime/client"
	configpkg "github.com/drblury/lambdaflow/internal/runtime/config"
	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
	"github.com/drblury/lambdaflow/internal/runtime/invokectx"
)

var errQueueDrained = errors.New("no more queued invocations")

// fakeClient feeds queued invocations to the loop and records what the loop
// posts back. Once the queue is drained, Next fails, which ends the loop the
// same way a real transport error would.
type fakeClient struct {
	queue []*clientpkg.Invocation

	responses  map[string][]byte
	errorDocs  map[string][]byte
	errorTypes map[string]string
	initErrors [][]byte
}

func newFakeClient(invocations ...*clientpkg.Invocation) *fakeClient {
	return &fakeClient{
		queue:      invocations,
		responses:  map[string][]byte{},
		errorDocs:  map[string][]byte{},
		errorTypes: map[string]string{},
	}
}

func (f *fakeClient) Next(ctx context.Context) (*clientpkg.Invocation, error) {
	if len(f.queue) == 0 {
		return nil, errQueueDrained
	}
	inv := f.queue[0]
	f.queue = f.queue[1:]
	return inv, nil
}

func (f *fakeClient) PostResponse(ctx context.Context, requestID string, body []byte) error {
	f.responses[requestID] = body
	return nil
}

func (f *fakeClient) PostError(ctx context.Context, requestID, errorType string, doc []byte) error {
	f.errorDocs[requestID] = doc
	f.errorTypes[requestID] = errorType
	return nil
}

func (f *fakeClient) PostInitError(ctx context.Context, errorType string, doc []byte) error {
	f.initErrors = append(f.initErrors, doc)
	return nil
}

func invocation(requestID string, payload string) *clientpkg.Invocation {
	headers := http.Header{}
	headers.Set(invokectx.HeaderRequestID, requestID)
	headers.Set(invokectx.HeaderDeadlineMS, "1700000000000")
	headers.Set(invokectx.HeaderFunctionARN, "arn:aws:lambda:us-east-1:123456789012:function:test")
	return &clientpkg.Invocation{Payload: []byte(payload), Headers: headers}
}

func newTestService(t *testing.T, fake *fakeClient) *Service {
	t.Helper()
	svc, err := TryNewService(
		&configpkg.Config{RuntimeAPI: "127.0.0.1:9001", FunctionName: "test"},
		nil,
		ServiceDependencies{Client: fake, DisableDefaultMiddlewares: true},
	)
	require.NoError(t, err)
	return svc
}

func TestStartPostsHandlerSuccess(t *testing.T) {
	fake := newFakeClient(invocation("req-1", `{"name":"world"}`))
	svc := newTestService(t, fake)

	type event struct {
		Name string `json:"name"`
	}
	require.NoError(t, RegisterJSONHandler(svc, JSONHandlerRegistration[*event, map[string]string]{
		Name: "greeter",
		Handler: func(ctx context.Context, ev handlerpkg.Invoke[*event]) (map[string]string, error) {
			return map[string]string{"greeting": "hello " + ev.Payload.Name}, nil
		},
	}))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, errQueueDrained)
	assert.JSONEq(t, `{"greeting":"hello world"}`, string(fake.responses["req-1"]))
}

func TestStartPostsHandlerFailure(t *testing.T) {
	fake := newFakeClient(invocation("req-1", `{}`))
	svc := newTestService(t, fake)

	require.NoError(t, RegisterRawHandler(svc, RawHandlerRegistration{
		Name: "failing",
		Handler: func(ctx context.Context, payload []byte) ([]byte, error) {
			return nil, NewHandlerError("Function.CustomError", "it broke")
		},
	}))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, errQueueDrained)
	assert.Equal(t, "Function.CustomError", fake.errorTypes["req-1"])
	assert.JSONEq(t,
		`{"errorType":"Function.CustomError","errorMessage":"it broke"}`,
		string(fake.errorDocs["req-1"]))
}

func TestStartContinuesAfterDecodeFailure(t *testing.T) {
	fake := newFakeClient(
		invocation("req-1", `{"name":`),
		invocation("req-2", `{"name":"second"}`),
	)
	svc := newTestService(t, fake)

	type event struct {
		Name string `json:"name"`
	}
	require.NoError(t, RegisterJSONHandler(svc, JSONHandlerRegistration[*event, string]{
		Handler: func(ctx context.Context, ev handlerpkg.Invoke[*event]) (string, error) {
			return ev.Payload.Name, nil
		},
	}))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, errQueueDrained)

	// Decode failure is posted for req-1, then the loop keeps going.
	assert.Equal(t, "Runtime.InvalidPayload", fake.errorTypes["req-1"])
	assert.Equal(t, `"second"`, string(fake.responses["req-2"]))
}

func TestStartExposesDeadlineExactly(t *testing.T) {
	fake := newFakeClient(invocation("req-1", `{}`))
	svc := newTestService(t, fake)

	var gotDeadline int64
	var ctxDeadline time.Time
	require.NoError(t, RegisterRawHandler(svc, RawHandlerRegistration{
		Handler: func(ctx context.Context, payload []byte) ([]byte, error) {
			meta, ok := invokectx.FromContext(ctx)
			require.True(t, ok)
			gotDeadline = meta.DeadlineMS
			ctxDeadline, _ = ctx.Deadline()
			return []byte(`null`), nil
		},
	}))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, errQueueDrained)
	assert.Equal(t, int64(1700000000000), gotDeadline)
	assert.Equal(t, time.UnixMilli(1700000000000), ctxDeadline)
}

func TestStartReportsUnserializableResult(t *testing.T) {
	fake := newFakeClient(invocation("req-1", `{}`))
	svc := newTestService(t, fake)

	require.NoError(t, RegisterJSONHandler(svc, JSONHandlerRegistration[*struct{}, chan int]{
		Handler: func(ctx context.Context, ev handlerpkg.Invoke[*struct{}]) (chan int, error) {
			return make(chan int), nil
		},
	}))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, errQueueDrained)

	// The serialization failure travels through the error channel.
	require.Contains(t, fake.errorDocs, "req-1")
	assert.Empty(t, fake.responses)
}

func TestStartWithoutHandlerReportsInitError(t *testing.T) {
	fake := newFakeClient()
	svc := newTestService(t, fake)

	err := svc.Start(context.Background())
	require.Error(t, err)
	require.Len(t, fake.initErrors, 1)
}

func TestSetHandlerRejectsSecondRegistration(t *testing.T) {
	svc := newTestService(t, newFakeClient())

	noop := func(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil }
	require.NoError(t, svc.SetHandler(noop))
	require.Error(t, svc.SetHandler(noop))
}

func TestTryNewServiceValidatesConfig(t *testing.T) {
	_, err := TryNewService(&configpkg.Config{}, nil, ServiceDependencies{})
	require.Error(t, err)
}

func TestMiddlewareOrderOutermostFirst(t *testing.T) {
	fake := newFakeClient(invocation("req-1", `{}`))

	var order []string
	tag := func(name string) MiddlewareRegistration {
		return MiddlewareRegistration{
			Name: name,
			Middleware: func(next handlerpkg.RawHandler) handlerpkg.RawHandler {
				return func(ctx context.Context, payload []byte) ([]byte, error) {
					order = append(order, name)
					return next(ctx, payload)
				}
			},
		}
	}

	svc, err := TryNewService(
		&configpkg.Config{RuntimeAPI: "127.0.0.1:9001"},
		nil,
		ServiceDependencies{
			Client:                    fake,
			DisableDefaultMiddlewares: true,
			Middlewares:               []MiddlewareRegistration{tag("outer"), tag("inner")},
		},
	)
	require.NoError(t, err)

	require.NoError(t, svc.SetHandler(func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte(`null`), nil
	}))

	startErr := svc.Start(context.Background())
	assert.ErrorIs(t, startErr, errQueueDrained)
	assert.Equal(t, []string{"outer", "inner"}, order)
}
