package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/lambdaflow/internal/runtime/jsoncodec"
)

func TestAPIGatewayProxyRequestDecode(t *testing.T) {
	payload := []byte(`{
		"resource": "/pets/{petId}",
		"path": "/pets/42",
		"httpMethod": "GET",
		"headers": {"Accept": "application/json"},
		"multiValueHeaders": {"Accept": ["application/json"]},
		"pathParameters": {"petId": "42"},
		"requestContext": {
			"accountId": "123456789012",
			"stage": "prod",
			"requestId": "c6af9ac6-7b61-11e6-9a41-93e8deadbeef",
			"identity": {"sourceIp": "203.0.113.10"},
			"httpMethod": "GET",
			"apiId": "1234567890"
		},
		"body": null,
		"isBase64Encoded": false
	}`)

	var req APIGatewayProxyRequest
	require.NoError(t, jsoncodec.Unmarshal(payload, &req))

	assert.Equal(t, "GET", req.HTTPMethod)
	assert.Equal(t, "/pets/42", req.Path)
	assert.Equal(t, "42", req.PathParameters["petId"])
	assert.Equal(t, "prod", req.RequestContext.Stage)
	assert.Equal(t, "203.0.113.10", req.RequestContext.Identity.SourceIP)
}

func TestAPIGatewayV2HTTPRequestDecode(t *testing.T) {
	payload := []byte(`{
		"version": "2.0",
		"routeKey": "POST /orders",
		"rawPath": "/orders",
		"rawQueryString": "limit=10&limit=20",
		"cookies": ["session=abc", "theme=dark"],
		"headers": {"content-type": "application/json"},
		"requestContext": {
			"accountId": "123456789012",
			"stage": "$default",
			"http": {"method": "POST", "path": "/orders", "sourceIp": "203.0.113.10"},
			"timeEpoch": 1700000000000
		},
		"body": "eyJvayI6dHJ1ZX0=",
		"isBase64Encoded": true
	}`)

	var req APIGatewayV2HTTPRequest
	require.NoError(t, jsoncodec.Unmarshal(payload, &req))

	assert.Equal(t, "2.0", req.Version)
	assert.Equal(t, "POST", req.RequestContext.HTTP.Method)
	assert.Equal(t, []string{"session=abc", "theme=dark"}, req.Cookies)
	assert.True(t, req.IsBase64Encoded)
	assert.Equal(t, int64(1700000000000), req.RequestContext.TimeEpoch)
}

func TestALBTargetGroupRequestDecode(t *testing.T) {
	payload := []byte(`{
		"httpMethod": "GET",
		"path": "/health",
		"multiValueQueryStringParameters": {"verbose": ["1", "2"]},
		"multiValueHeaders": {"x-custom": ["a", "b"]},
		"requestContext": {
			"elb": {"targetGroupArn": "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/tg/abc"}
		},
		"isBase64Encoded": false,
		"body": ""
	}`)

	var req ALBTargetGroupRequest
	require.NoError(t, jsoncodec.Unmarshal(payload, &req))

	assert.NotEmpty(t, req.RequestContext.ELB.TargetGroupArn)
	assert.Equal(t, []string{"1", "2"}, req.MultiValueQueryStringParameters["verbose"])
	assert.Nil(t, req.QueryStringParameters)
}

func TestALBTargetGroupResponseOmitsEmptyHeaderMaps(t *testing.T) {
	out, err := jsoncodec.Marshal(ALBTargetGroupResponse{StatusCode: 200, Body: "ok"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"statusCode":200,"body":"ok","isBase64Encoded":false}`, string(out))
}
