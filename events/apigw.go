package events

// APIGatewayProxyRequest is the input shape for API Gateway REST API proxy
// integrations.
type APIGatewayProxyRequest struct {
	Resource                        string                        `json:"resource"`
	Path                            string                        `json:"path"`
	HTTPMethod                      string                        `json:"httpMethod"`
	Headers                         map[string]string             `json:"headers"`
	MultiValueHeaders               map[string][]string           `json:"multiValueHeaders"`
	QueryStringParameters           map[string]string             `json:"queryStringParameters"`
	MultiValueQueryStringParameters map[string][]string           `json:"multiValueQueryStringParameters"`
	PathParameters                  map[string]string             `json:"pathParameters"`
	StageVariables                  map[string]string             `json:"stageVariables"`
	RequestContext                  APIGatewayProxyRequestContext `json:"requestContext"`
	Body                            string                        `json:"body"`
	IsBase64Encoded                 bool                          `json:"isBase64Encoded"`
}

// APIGatewayProxyRequestContext carries the deployment and caller metadata
// API Gateway attaches to every REST API invocation.
type APIGatewayProxyRequestContext struct {
	AccountID        string                    `json:"accountId"`
	ResourceID       string                    `json:"resourceId"`
	OperationName    string                    `json:"operationName,omitempty"`
	Stage            string                    `json:"stage"`
	DomainName       string                    `json:"domainName"`
	DomainPrefix     string                    `json:"domainPrefix"`
	RequestID        string                    `json:"requestId"`
	Protocol         string                    `json:"protocol"`
	Identity         APIGatewayRequestIdentity `json:"identity"`
	ResourcePath     string                    `json:"resourcePath"`
	Path             string                    `json:"path"`
	Authorizer       map[string]any            `json:"authorizer"`
	HTTPMethod       string                    `json:"httpMethod"`
	RequestTime      string                    `json:"requestTime"`
	RequestTimeEpoch int64                     `json:"requestTimeEpoch"`
	APIID            string                    `json:"apiId"`
}

// APIGatewayRequestIdentity describes the caller as API Gateway saw it.
type APIGatewayRequestIdentity struct {
	CognitoIdentityPoolID         string `json:"cognitoIdentityPoolId,omitempty"`
	AccountID                     string `json:"accountId,omitempty"`
	CognitoIdentityID             string `json:"cognitoIdentityId,omitempty"`
	Caller                        string `json:"caller,omitempty"`
	APIKey                        string `json:"apiKey,omitempty"`
	APIKeyID                      string `json:"apiKeyId,omitempty"`
	AccessKey                     string `json:"accessKey,omitempty"`
	SourceIP                      string `json:"sourceIp"`
	CognitoAuthenticationType     string `json:"cognitoAuthenticationType,omitempty"`
	CognitoAuthenticationProvider string `json:"cognitoAuthenticationProvider,omitempty"`
	UserArn                       string `json:"userArn,omitempty"`
	UserAgent                     string `json:"userAgent,omitempty"`
	User                          string `json:"user,omitempty"`
}

// APIGatewayProxyResponse is the output shape API Gateway REST API proxy
// integrations expect back from the function.
type APIGatewayProxyResponse struct {
	StatusCode        int                 `json:"statusCode"`
	Headers           map[string]string   `json:"headers,omitempty"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	Body              string              `json:"body"`
	IsBase64Encoded   bool                `json:"isBase64Encoded"`
}

// APIGatewayV2HTTPRequest is the payload format version 2.0 input shape used
// by API Gateway HTTP APIs and Lambda Function URLs.
type APIGatewayV2HTTPRequest struct {
	Version               string                         `json:"version"`
	RouteKey              string                         `json:"routeKey"`
	RawPath               string                         `json:"rawPath"`
	RawQueryString        string                         `json:"rawQueryString"`
	Cookies               []string                       `json:"cookies,omitempty"`
	Headers               map[string]string              `json:"headers"`
	QueryStringParameters map[string]string              `json:"queryStringParameters,omitempty"`
	PathParameters        map[string]string              `json:"pathParameters,omitempty"`
	RequestContext        APIGatewayV2HTTPRequestContext `json:"requestContext"`
	StageVariables        map[string]string              `json:"stageVariables,omitempty"`
	Body                  string                         `json:"body,omitempty"`
	IsBase64Encoded       bool                           `json:"isBase64Encoded"`
}

// APIGatewayV2HTTPRequestContext carries the deployment metadata for payload
// format version 2.0 invocations.
type APIGatewayV2HTTPRequestContext struct {
	RouteKey     string                             `json:"routeKey"`
	AccountID    string                             `json:"accountId"`
	Stage        string                             `json:"stage"`
	RequestID    string                             `json:"requestId"`
	Authorizer   map[string]any                     `json:"authorizer,omitempty"`
	APIID        string                             `json:"apiId"`
	DomainName   string                             `json:"domainName"`
	DomainPrefix string                             `json:"domainPrefix"`
	Time         string                             `json:"time"`
	TimeEpoch    int64                              `json:"timeEpoch"`
	HTTP         APIGatewayV2HTTPRequestContextHTTP `json:"http"`
}

// APIGatewayV2HTTPRequestContextHTTP describes the HTTP request line and
// caller for payload format version 2.0.
type APIGatewayV2HTTPRequestContextHTTP struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Protocol  string `json:"protocol"`
	SourceIP  string `json:"sourceIp"`
	UserAgent string `json:"userAgent"`
}

// APIGatewayV2HTTPResponse is the payload format version 2.0 output shape.
// Headers are single-valued; repeated Set-Cookie values travel in Cookies.
type APIGatewayV2HTTPResponse struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
	Cookies         []string          `json:"cookies,omitempty"`
}
