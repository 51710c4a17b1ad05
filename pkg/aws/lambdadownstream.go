package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/storacha/hitcounter/pkg/hitcounter"
)

// ErrFunctionFailed is returned when the downstream function ran but reported
// an error.
var ErrFunctionFailed = errors.New("downstream function failed")

// LambdaInvoker is the part of the lambda client used to call the downstream
// function.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaDownstream forwards API Gateway events to another lambda function and
// returns its raw response payload.
type LambdaDownstream struct {
	functionName string
	client       LambdaInvoker
}

var _ hitcounter.Downstream[events.APIGatewayProxyRequest, json.RawMessage] = (*LambdaDownstream)(nil)

// NewLambdaDownstream returns a downstream that synchronously invokes the
// named lambda function.
func NewLambdaDownstream(cfg aws.Config, functionName string, opts ...func(*lambda.Options)) *LambdaDownstream {
	return NewLambdaDownstreamWithClient(lambda.NewFromConfig(cfg, opts...), functionName)
}

// NewLambdaDownstreamWithClient is NewLambdaDownstream with a caller supplied
// client.
func NewLambdaDownstreamWithClient(client LambdaInvoker, functionName string) *LambdaDownstream {
	return &LambdaDownstream{functionName: functionName, client: client}
}

// Invoke implements hitcounter.Downstream.
func (l *LambdaDownstream) Invoke(ctx context.Context, event events.APIGatewayProxyRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serializing event: %w", err)
	}
	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", l.functionName, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: %s: %s: %s", ErrFunctionFailed, l.functionName, aws.ToString(out.FunctionError), out.Payload)
	}
	return json.RawMessage(out.Payload), nil
}
