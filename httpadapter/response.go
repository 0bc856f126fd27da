package httpadapter

import (
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/drblury/lambdaflow/events"
	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

// Response is the normalized handler output before origin-specific encoding.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// EncodeResponse serializes a normalized response into the wire shape of the
// origin recorded at decode time. A zero status code encodes as 200.
func EncodeResponse(meta *RequestMeta, res *Response) ([]byte, error) {
	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	body, isBase64 := encodeBody(res.Headers.Get("Content-Type"), res.Body)

	switch meta.Origin {
	case OriginALB:
		out := events.ALBTargetGroupResponse{
			StatusCode:      status,
			Body:            body,
			IsBase64Encoded: isBase64,
		}
		// The target group honors multiValueHeaders exactly when the request
		// carried them; otherwise only the flat map is read.
		if meta.multiValueMode {
			out.MultiValueHeaders = res.Headers
		} else {
			out.Headers = flattenHeaders(res.Headers)
		}
		return jsoncodec.Marshal(out)

	case OriginHTTPAPI:
		out := events.APIGatewayV2HTTPResponse{
			StatusCode:      status,
			Body:            body,
			IsBase64Encoded: isBase64,
		}
		// Payload 2.0 headers are single-valued; repeated Set-Cookie values
		// travel in the cookies array instead.
		headers := map[string]string{}
		for key, values := range res.Headers {
			if http.CanonicalHeaderKey(key) == "Set-Cookie" {
				out.Cookies = append(out.Cookies, values...)
				continue
			}
			headers[key] = strings.Join(values, ", ")
		}
		if len(headers) > 0 {
			out.Headers = headers
		}
		return jsoncodec.Marshal(out)

	default:
		out := events.APIGatewayProxyResponse{
			StatusCode:      status,
			Body:            body,
			IsBase64Encoded: isBase64,
		}
		if len(res.Headers) > 0 {
			out.Headers = flattenHeaders(res.Headers)
			out.MultiValueHeaders = res.Headers
		}
		return jsoncodec.Marshal(out)
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}

// encodeBody returns the body as text when the content type (or, absent one,
// the bytes themselves) says it is safe, and base64 with the flag set
// otherwise.
func encodeBody(contentType string, body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	if isTextual(contentType, body) {
		return string(body), false
	}
	return base64.StdEncoding.EncodeToString(body), true
}

func isTextual(contentType string, body []byte) bool {
	if contentType == "" {
		return utf8.Valid(body)
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xml",
		mediaType == "application/javascript",
		mediaType == "application/x-www-form-urlencoded",
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"):
		return true
	}
	return false
}
