package main

import (
	"github.com/storacha/hitcounter/cmd/lambda"
	"github.com/storacha/hitcounter/pkg/hello"
)

func main() {
	lambda.StartHTTPHandler(hello.NewHandler())
}
