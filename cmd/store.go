package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"

	hcaws "github.com/storacha/hitcounter/pkg/aws"
	"github.com/storacha/hitcounter/pkg/config"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

// openCounterStore opens the store selected by cfg. The returned function
// releases it.
func openCounterStore(ctx context.Context, cfg config.StoreConfig) (counterstore.CounterStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.StoreMemory:
		s, err := counterstore.NewDsCounterStore(dssync.MutexWrap(datastore.NewMapDatastore()))
		return s, noop, err

	case config.StoreLevelDB:
		hitsDir, err := mkdirp(cfg.DataDir, "hits")
		if err != nil {
			return nil, nil, err
		}
		ds, err := leveldb.NewDatastore(hitsDir, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("opening leveldb datastore: %w", err)
		}
		s, err := counterstore.NewDsCounterStore(ds)
		if err != nil {
			ds.Close()
			return nil, nil, err
		}
		return s, ds.Close, nil

	case config.StoreDynamoDB:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("loading aws default config: %w", err)
		}
		var dynamoOpts []func(*dynamodb.Options)
		if cfg.DynamoDBEndpoint != "" {
			dynamoOpts = append(dynamoOpts, func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			})
		}
		return hcaws.NewDynamoCounterStore(awsCfg, cfg.TableName, dynamoOpts...), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
}
