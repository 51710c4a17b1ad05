package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/storacha/hitcounter/pkg/hitcounter"
)

func TestInstrumentAPIGatewayHandler(t *testing.T) {
	event := events.APIGatewayProxyRequest{Path: "/hello"}

	t.Run("passes response through", func(t *testing.T) {
		payload := json.RawMessage(`{"statusCode":200,"body":"hi"}`)
		handler := instrumentAPIGatewayHandler(func(ctx context.Context, event events.APIGatewayProxyRequest) (json.RawMessage, error) {
			return payload, nil
		})
		res, err := handler(context.Background(), event)
		require.NoError(t, err)
		require.Equal(t, payload, res)
	})

	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid request", fmt.Errorf("%w: empty path", hitcounter.ErrInvalidRequest), http.StatusBadRequest},
		{"counter unavailable", fmt.Errorf("%w: throttled", hitcounter.ErrCounterUnavailable), http.StatusServiceUnavailable},
		{"downstream failure", &hitcounter.DownstreamError{Key: "/hello", Count: 1, Err: errors.New("boom")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := instrumentAPIGatewayHandler(func(ctx context.Context, event events.APIGatewayProxyRequest) (json.RawMessage, error) {
				return nil, tc.err
			})
			res, err := handler(context.Background(), event)
			require.NoError(t, err)

			var proxyRes events.APIGatewayProxyResponse
			require.NoError(t, json.Unmarshal(res, &proxyRes))
			require.Equal(t, tc.status, proxyRes.StatusCode)
		})
	}
}
