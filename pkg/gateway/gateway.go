// Package gateway translates between plain HTTP and the API Gateway proxy
// events the hit counter forwards, so the same handlers run on lambda and
// behind a local HTTP server.
package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/storacha/hitcounter/pkg/hitcounter"
)

// MaxBodySize matches the lambda synchronous invocation payload limit.
const MaxBodySize = 6 << 20

// RequestIDHeader carries the request id in and out of the local server.
const RequestIDHeader = "X-Request-ID"

// ErrBodyTooLarge is returned when a request body exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("request body too large")

// PathKey derives the hit counter key of an API Gateway event from its path.
func PathKey(event events.APIGatewayProxyRequest) (string, error) {
	return hitcounter.NormalizePath(event.Path)
}

// FromHTTPRequest builds the API Gateway proxy event that corresponds to r.
func FromHTTPRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > MaxBodySize {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, MaxBodySize)
	}

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	headers := map[string]string{}
	multiHeaders := map[string][]string{}
	for k, vs := range r.Header {
		headers[k] = strings.Join(vs, ",")
		multiHeaders[k] = vs
	}
	if r.Host != "" {
		headers["Host"] = r.Host
		multiHeaders["Host"] = []string{r.Host}
	}

	query := map[string]string{}
	multiQuery := map[string][]string{}
	for k, vs := range r.URL.Query() {
		query[k] = vs[len(vs)-1]
		multiQuery[k] = vs
	}

	sourceIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		sourceIP = host
	}

	event := events.APIGatewayProxyRequest{
		Resource:                        "/{proxy+}",
		Path:                            r.URL.Path,
		HTTPMethod:                      r.Method,
		Headers:                         headers,
		MultiValueHeaders:               multiHeaders,
		QueryStringParameters:           query,
		MultiValueQueryStringParameters: multiQuery,
		PathParameters:                  map[string]string{"proxy": strings.TrimPrefix(r.URL.Path, "/")},
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:  requestID,
			Path:       r.URL.Path,
			HTTPMethod: r.Method,
			Protocol:   r.Proto,
			Identity: events.APIGatewayRequestIdentity{
				SourceIP:  sourceIP,
				UserAgent: r.UserAgent(),
			},
		},
	}
	event.Body, event.IsBase64Encoded = encodeBody(body)
	return event, nil
}

// WriteResponse writes an API Gateway proxy response to w.
func WriteResponse(w http.ResponseWriter, res events.APIGatewayProxyResponse) error {
	body, err := decodeBody(res.Body, res.IsBase64Encoded)
	if err != nil {
		return err
	}
	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range res.MultiValueHeaders {
		w.Header().Del(k)
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

type errorBody struct {
	Error   string `json:"error"`
	Counted bool   `json:"counted"`
}

// ErrorResponse maps a hit counter error to the response sent to clients.
// The counted field tells clients whether the failed request was still
// recorded as a hit.
func ErrorResponse(err error) events.APIGatewayProxyResponse {
	status := StatusCode(err)
	msg := http.StatusText(status)
	switch {
	case errors.Is(err, hitcounter.ErrInvalidRequest), errors.Is(err, ErrBodyTooLarge):
		msg = err.Error()
	case errors.Is(err, hitcounter.ErrCounterUnavailable):
		msg = hitcounter.ErrCounterUnavailable.Error()
	case errors.Is(err, hitcounter.ErrDownstream):
		msg = hitcounter.ErrDownstream.Error()
	}
	body, _ := json.Marshal(errorBody{Error: msg, Counted: hitcounter.Counted(err)})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// StatusCode returns the HTTP status for a hit counter error.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, hitcounter.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, hitcounter.ErrCounterUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, hitcounter.ErrDownstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func encodeBody(b []byte) (string, bool) {
	if utf8.Valid(b) {
		return string(b), false
	}
	return base64.StdEncoding.EncodeToString(b), true
}

func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if !isBase64 {
		return []byte(body), nil
	}
	b, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 body: %w", err)
	}
	return b, nil
}
