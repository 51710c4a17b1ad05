package lambda

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/storacha/hitcounter/internal/telemetry"
	"github.com/storacha/hitcounter/pkg/aws"
	"github.com/storacha/hitcounter/pkg/gateway"
)

// APIGatewayHandler is a function that handles API Gateway proxy events and
// answers with the raw proxy response payload, suitable to use as a lambda
// handler.
type APIGatewayHandler func(context.Context, events.APIGatewayProxyRequest) (json.RawMessage, error)

// APIGatewayHandlerBuilder is a function that creates an APIGatewayHandler from a config.
type APIGatewayHandlerBuilder func(aws.Config) (APIGatewayHandler, error)

// StartAPIGatewayHandler starts a lambda handler that processes API Gateway
// proxy events.
func StartAPIGatewayHandler(makeHandler APIGatewayHandlerBuilder) {
	ctx := context.Background()
	cfg := aws.FromEnv(ctx)
	telemetry.SetupErrorReporting(cfg.SentryDSN, cfg.SentryEnvironment)

	handler, err := makeHandler(cfg)
	if err != nil {
		telemetry.ReportError(err)
		panic(err)
	}

	lambda.StartWithOptions(instrumentAPIGatewayHandler(handler), lambda.WithContext(ctx))
}

// instrumentAPIGatewayHandler wraps an APIGatewayHandler with error reporting.
// Errors are answered with a proxy response carrying the matching status code
// so API Gateway passes them on to the caller.
func instrumentAPIGatewayHandler(handler APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (json.RawMessage, error) {
		res, err := handler(ctx, event)
		if err == nil {
			return res, nil
		}
		if gateway.StatusCode(err) >= http.StatusInternalServerError {
			telemetry.ReportError(err)
		}
		return json.Marshal(gateway.ErrorResponse(err))
	}
}

// StartHTTPHandler starts a lambda handler that serves API Gateway proxy
// events with a http.Handler.
func StartHTTPHandler(handler http.Handler) {
	telemetry.SetupErrorReporting(os.Getenv("SENTRY_DSN"), os.Getenv("SENTRY_ENVIRONMENT"))
	lambda.Start(httpadapter.New(handler).ProxyWithContext)
}
