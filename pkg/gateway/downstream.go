package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/storacha/hitcounter/pkg/hitcounter"
)

// Downstream is a hit counter downstream speaking API Gateway proxy events.
type Downstream = hitcounter.Downstream[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]

// Forwarder is a hit counter speaking API Gateway proxy events.
type Forwarder = hitcounter.Forwarder[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]

// NewForwarder creates a hit counter that keys requests by path.
func NewForwarder(counter hitcounter.Counter, downstream Downstream) (*Forwarder, error) {
	return hitcounter.New[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse](counter, downstream, PathKey)
}

// NewHandlerDownstream runs an http.Handler in process as a downstream, the
// same way it would run on lambda behind API Gateway.
func NewHandlerDownstream(h http.Handler) Downstream {
	adapter := httpadapter.New(h)
	return hitcounter.DownstreamFunc[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse](adapter.ProxyWithContext)
}

// HTTPDownstream proxies events to an upstream HTTP server. Upstream error
// statuses are responses like any other and are returned as is. Only
// failures to get a response at all are errors.
type HTTPDownstream struct {
	base   url.URL
	client *http.Client
}

var _ Downstream = (*HTTPDownstream)(nil)

type HTTPDownstreamOption func(*HTTPDownstream)

// WithHTTPClient sets the client used to reach the upstream.
func WithHTTPClient(c *http.Client) HTTPDownstreamOption {
	return func(d *HTTPDownstream) {
		d.client = c
	}
}

// NewHTTPDownstream creates a downstream that forwards to base, appending the
// event path to the base path.
func NewHTTPDownstream(base url.URL, opts ...HTTPDownstreamOption) *HTTPDownstream {
	d := &HTTPDownstream{base: base}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = cleanhttp.DefaultPooledClient()
	}
	return d
}

// Invoke implements hitcounter.Downstream.
func (d *HTTPDownstream) Invoke(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	target := d.base.JoinPath(event.Path)
	query := url.Values{}
	for k, v := range event.QueryStringParameters {
		query.Set(k, v)
	}
	for k, vs := range event.MultiValueQueryStringParameters {
		query[k] = vs
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, event.HTTPMethod, target.String(), bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("creating upstream request: %w", err)
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	for k, vs := range event.MultiValueHeaders {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	req.Header.Del("Host")
	if id := event.RequestContext.RequestID; id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("sending upstream request: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("reading upstream response: %w", err)
	}

	out := events.APIGatewayProxyResponse{
		StatusCode:        res.StatusCode,
		MultiValueHeaders: map[string][]string(res.Header.Clone()),
	}
	out.Body, out.IsBase64Encoded = encodeBody(resBody)
	return out, nil
}
