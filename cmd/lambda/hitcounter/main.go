package main

import (
	"github.com/storacha/hitcounter/cmd/lambda"
	"github.com/storacha/hitcounter/pkg/aws"
)

func main() {
	lambda.StartAPIGatewayHandler(makeHandler)
}

func makeHandler(cfg aws.Config) (lambda.APIGatewayHandler, error) {
	fwd, err := aws.Construct(cfg)
	if err != nil {
		return nil, err
	}
	return fwd.Handle, nil
}
