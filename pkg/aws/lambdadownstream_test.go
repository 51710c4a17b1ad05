package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *lambda.InvokeInput
	out   *lambda.InvokeOutput
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestLambdaDownstream(t *testing.T) {
	event := events.APIGatewayProxyRequest{Path: "/hello", HTTPMethod: "GET"}

	t.Run("returns payload verbatim", func(t *testing.T) {
		payload := []byte(`{"statusCode":200,"headers":{"Content-Type":"text/plain"},"body":"Hello, CDK! You have hit /hello\n"}`)
		invoker := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: payload}}
		d := NewLambdaDownstreamWithClient(invoker, "downstream")

		res, err := d.Invoke(context.Background(), event)
		require.NoError(t, err)
		require.Equal(t, payload, []byte(res))

		require.Equal(t, "downstream", aws.ToString(invoker.input.FunctionName))
		require.Equal(t, types.InvocationTypeRequestResponse, invoker.input.InvocationType)

		var sent events.APIGatewayProxyRequest
		require.NoError(t, json.Unmarshal(invoker.input.Payload, &sent))
		require.Equal(t, event.Path, sent.Path)
	})

	t.Run("invoke error", func(t *testing.T) {
		invoker := &fakeInvoker{err: errors.New("throttled")}
		d := NewLambdaDownstreamWithClient(invoker, "downstream")

		_, err := d.Invoke(context.Background(), event)
		require.ErrorContains(t, err, "throttled")
	})

	t.Run("function error", func(t *testing.T) {
		invoker := &fakeInvoker{out: &lambda.InvokeOutput{
			StatusCode:    200,
			FunctionError: aws.String("Unhandled"),
			Payload:       []byte(`{"errorMessage":"boom"}`),
		}}
		d := NewLambdaDownstreamWithClient(invoker, "downstream")

		_, err := d.Invoke(context.Background(), event)
		require.ErrorIs(t, err, ErrFunctionFailed)
	})
}
