package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/storacha/hitcounter/pkg/config"
)

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to configuration file.",
	EnvVars: []string{"HITCOUNTER_CONFIG"},
}

var LogLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Usage:   "Logging level for all subsystems.",
	EnvVars: []string{"HITCOUNTER_LOG_LEVEL"},
}

// StoreFlags select the counter store. They are shared by every command that
// reads or writes counts.
var StoreFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "store",
		Usage:   "Counter store backend: leveldb, memory or dynamodb.",
		EnvVars: []string{"HITCOUNTER_STORE"},
	},
	&cli.StringFlag{
		Name:    "data-dir",
		Aliases: []string{"d"},
		Usage:   "Root directory to store counts in (leveldb store).",
		EnvVars: []string{"HITCOUNTER_DATA_DIR"},
	},
	&cli.StringFlag{
		Name:    "table",
		Usage:   "Name of the DynamoDB hits table (dynamodb store).",
		EnvVars: []string{"HITCOUNTER_TABLE_NAME"},
	},
	&cli.StringFlag{
		Name:    "region",
		Usage:   "AWS region of the hits table.",
		EnvVars: []string{"HITCOUNTER_REGION"},
	},
	&cli.StringFlag{
		Name:    "dynamodb-endpoint",
		Usage:   "Override the DynamoDB endpoint, e.g. for DynamoDB local.",
		EnvVars: []string{"HITCOUNTER_DYNAMODB_ENDPOINT"},
	},
}

var ServerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "host",
		Usage:   "Host to bind the server to.",
		EnvVars: []string{"HITCOUNTER_HOST"},
	},
	&cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   config.DefaultServicePort,
		Usage:   "Port to bind the server to.",
		EnvVars: []string{"HITCOUNTER_PORT"},
	},
	&cli.IntFlag{
		Name:    "max-concurrency",
		Usage:   "Maximum number of requests forwarded at once, 0 for no limit.",
		EnvVars: []string{"HITCOUNTER_MAX_CONCURRENCY"},
	},
	&cli.StringFlag{
		Name:    "downstream",
		Usage:   "Where counted requests are forwarded: hello or http.",
		EnvVars: []string{"HITCOUNTER_DOWNSTREAM"},
	},
	&cli.StringFlag{
		Name:    "downstream-url",
		Aliases: []string{"u"},
		Usage:   "Base URL of the http downstream.",
		EnvVars: []string{"HITCOUNTER_DOWNSTREAM_URL"},
	},
	&cli.DurationFlag{
		Name:    "downstream-timeout",
		Value:   config.DefaultDownstreamTimeout,
		Usage:   "Timeout for requests to the http downstream.",
		EnvVars: []string{"HITCOUNTER_DOWNSTREAM_TIMEOUT"},
	},
	&cli.StringFlag{
		Name:    "sentry-dsn",
		Usage:   "Sentry DSN errors are reported to.",
		EnvVars: []string{"HITCOUNTER_SENTRY_DSN"},
	},
	&cli.StringFlag{
		Name:    "sentry-environment",
		Usage:   "Environment reported to Sentry.",
		EnvVars: []string{"HITCOUNTER_SENTRY_ENVIRONMENT"},
	},
}
