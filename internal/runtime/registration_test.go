package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/lambdaflow/internal/runtime/errors"
	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
)

func TestRegisterRawHandlerRejectsNil(t *testing.T) {
	svc := newTestService(t, newFakeClient())

	err := RegisterRawHandler(svc, RawHandlerRegistration{Name: "empty"})
	require.ErrorIs(t, err, errspkg.ErrHandlerRequired)

	err = RegisterRawHandler(nil, RawHandlerRegistration{
		Handler: func(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil },
	})
	require.ErrorIs(t, err, errspkg.ErrHandlerRequired)
}

func TestRegisterJSONHandlerRequiresPointerPayload(t *testing.T) {
	svc := newTestService(t, newFakeClient())

	type event struct{}
	err := RegisterJSONHandler(svc, JSONHandlerRegistration[event, string]{
		Name: "value-typed",
		Handler: func(ctx context.Context, ev handlerpkg.Invoke[event]) (string, error) {
			return "", nil
		},
	})
	require.ErrorIs(t, err, errspkg.ErrHandlerPointerNeeded)
}
