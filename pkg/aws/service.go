package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/storacha/hitcounter/pkg/gateway"
	"github.com/storacha/hitcounter/pkg/hitcounter"
)

// ErrMissingSecret means that the value returned from Secrets was empty
var ErrMissingSecret = errors.New("missing value for secret")

func mustGetEnv(envVar string) string {
	value := os.Getenv(envVar)
	if len(value) == 0 {
		panic(fmt.Errorf("missing env var: %s", envVar))
	}
	return value
}

// Forwarder is the hit counter as deployed on lambda: API Gateway events in,
// the downstream function's raw payload out.
type Forwarder = hitcounter.Forwarder[events.APIGatewayProxyRequest, json.RawMessage]

type Config struct {
	Config        aws.Config
	DynamoOptions []func(*dynamodb.Options)
	LambdaOptions []func(*lambda.Options)
	// LambdaClient, if set, is used instead of a client built from Config.
	LambdaClient           LambdaInvoker
	SentryDSN              string
	SentryEnvironment      string
	HitsTableName          string
	DownstreamFunctionName string
}

func mustGetSSMParams(ctx context.Context, client *ssm.Client, names ...string) map[string]string {
	response, err := client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		panic(fmt.Errorf("retrieving SSM parameters: %w", err))
	}
	params := map[string]string{}
	for _, name := range names {
		value := ""
		for _, p := range response.Parameters {
			if aws.ToString(p.Name) == name {
				value = aws.ToString(p.Value)
				break
			}
		}
		if value == "" {
			panic(ErrMissingSecret)
		}
		params[name] = value
	}
	return params
}

// FromEnv constructs the AWS Configuration from the environment
func FromEnv(ctx context.Context) Config {
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Errorf("loading aws default config: %w", err))
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	if param := os.Getenv("SENTRY_DSN_PARAMETER"); param != "" {
		secrets := mustGetSSMParams(ctx, ssm.NewFromConfig(awsConfig), param)
		sentryDSN = secrets[param]
	}

	return Config{
		Config:                 awsConfig,
		SentryDSN:              sentryDSN,
		SentryEnvironment:      os.Getenv("SENTRY_ENVIRONMENT"),
		HitsTableName:          mustGetEnv("HITS_TABLE_NAME"),
		DownstreamFunctionName: mustGetEnv("DOWNSTREAM_FUNCTION_NAME"),
	}
}

// Construct wires the DynamoDB hits table and the downstream function into a
// hit counter.
func Construct(cfg Config) (*Forwarder, error) {
	if cfg.HitsTableName == "" {
		return nil, fmt.Errorf("%w: missing hits table name", hitcounter.ErrConfiguration)
	}
	if cfg.DownstreamFunctionName == "" {
		return nil, fmt.Errorf("%w: missing downstream function name", hitcounter.ErrConfiguration)
	}
	hits := NewDynamoCounterStore(cfg.Config, cfg.HitsTableName, cfg.DynamoOptions...)
	var downstream *LambdaDownstream
	if cfg.LambdaClient != nil {
		downstream = NewLambdaDownstreamWithClient(cfg.LambdaClient, cfg.DownstreamFunctionName)
	} else {
		downstream = NewLambdaDownstream(cfg.Config, cfg.DownstreamFunctionName, cfg.LambdaOptions...)
	}
	return hitcounter.New[events.APIGatewayProxyRequest, json.RawMessage](hits, downstream, gateway.PathKey)
}
