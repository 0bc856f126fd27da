package httpadapter

import (
	"bytes"
	"context"
	"net/http"

	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
)

// Wrap converts any net/http handler into a raw invocation handler: the
// payload is decoded into an *http.Request, served, and the captured response
// encoded back into the origin's wire shape. Decode failures surface as
// invocation errors; the loop keeps running.
func Wrap(handler http.Handler) handlerpkg.RawHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, err := DecodeRequest(ctx, payload)
		if err != nil {
			return nil, err
		}
		meta, _ := MetaFromRequest(req)

		capture := &responseCapture{header: http.Header{}}
		handler.ServeHTTP(capture, req)

		return EncodeResponse(meta, &Response{
			StatusCode: capture.status,
			Headers:    capture.header,
			Body:       capture.body.Bytes(),
		})
	}
}

// responseCapture buffers a handler's response instead of writing it to a
// network connection.
type responseCapture struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (c *responseCapture) Header() http.Header { return c.header }

func (c *responseCapture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.body.Write(p)
}
