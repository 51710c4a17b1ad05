package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/require"

	"github.com/storacha/hitcounter/pkg/hitcounter"
	"github.com/storacha/hitcounter/pkg/internal/testutil"
)

func TestConstructConfigurationErrors(t *testing.T) {
	_, err := Construct(Config{DownstreamFunctionName: "downstream"})
	require.ErrorIs(t, err, hitcounter.ErrConfiguration)

	_, err = Construct(Config{HitsTableName: "hits"})
	require.ErrorIs(t, err, hitcounter.ErrConfiguration)
}

func TestConstruct(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DynamoDB container test in short mode")
	}

	opts := dynamoOptions(createDynamo(t))
	tableName := testutil.RandomName("hits")
	createHitsTable(t, tableName, opts...)

	invoker := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"statusCode":200,"body":"ok"}`)}}
	cfg := Config{
		Config:                 aws.Config{},
		DynamoOptions:          opts,
		LambdaClient:           invoker,
		HitsTableName:          tableName,
		DownstreamFunctionName: "downstream",
	}
	fwd, err := Construct(cfg)
	require.NoError(t, err)

	hits := NewDynamoCounterStore(cfg.Config, tableName, opts...)

	event := events.APIGatewayProxyRequest{Path: "/hello//"}
	for i := 1; i <= 2; i++ {
		res, err := fwd.Handle(context.Background(), event)
		require.NoError(t, err)
		require.JSONEq(t, `{"statusCode":200,"body":"ok"}`, string(res))

		n, err := hits.Get(context.Background(), "/hello")
		require.NoError(t, err)
		require.Equal(t, uint64(i), n)
	}
}
