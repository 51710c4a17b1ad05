package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/urfave/cli/v2"

	hcaws "github.com/storacha/hitcounter/pkg/aws"
	"github.com/storacha/hitcounter/pkg/config"
	"github.com/storacha/hitcounter/pkg/hitcounter"
	"github.com/storacha/hitcounter/pkg/store"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

var hitsFlags = append([]cli.Flag{ConfigFlag}, StoreFlags...)

var HitsCmd = &cli.Command{
	Name:  "hits",
	Usage: "Inspect recorded hit counts.",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "Print the hit count for a path.",
			ArgsUsage: "<path>",
			Flags:     hitsFlags,
			Action: func(cCtx *cli.Context) error {
				key, err := hitcounter.NormalizePath(cCtx.Args().First())
				if err != nil {
					return err
				}
				return withCounterStore(cCtx, func(counts counterstore.CounterStore) error {
					n, err := counts.Get(cCtx.Context, key)
					if err != nil {
						if errors.Is(err, store.ErrNotFound) {
							return fmt.Errorf("no hits recorded for %s", key)
						}
						return fmt.Errorf("getting hits: %w", err)
					}
					return printJSON(counterstore.Record{Key: key, Count: n})
				})
			},
		},
		{
			Name:  "list",
			Usage: "Print the hit count of every path.",
			Flags: hitsFlags,
			Action: func(cCtx *cli.Context) error {
				return withCounterStore(cCtx, func(counts counterstore.CounterStore) error {
					records, err := counts.List(cCtx.Context)
					if err != nil {
						return fmt.Errorf("listing hits: %w", err)
					}
					for _, r := range records {
						fmt.Printf("%d\t%s\n", r.Count, r.Key)
					}
					return nil
				})
			},
		},
		{
			Name:  "export",
			Usage: "Write a timestamped snapshot of all hit counts to a file or S3 bucket.",
			Flags: append([]cli.Flag{
				&cli.PathFlag{
					Name:      "out",
					Aliases:   []string{"o"},
					Usage:     "File to write the snapshot to.",
					TakesFile: true,
				},
				&cli.StringFlag{
					Name:    "bucket",
					Usage:   "S3 bucket to upload the snapshot to.",
					EnvVars: []string{"HITCOUNTER_SNAPSHOT_BUCKET"},
				},
				&cli.StringFlag{
					Name:    "prefix",
					Usage:   "Key prefix of snapshots uploaded to S3.",
					Value:   "snapshots/",
					EnvVars: []string{"HITCOUNTER_SNAPSHOT_PREFIX"},
				},
			}, hitsFlags...),
			Action: func(cCtx *cli.Context) error {
				out, bucket := cCtx.Path("out"), cCtx.String("bucket")
				if (out == "") == (bucket == "") {
					return errors.New("exactly one of --out or --bucket is required")
				}
				return withCounterStore(cCtx, func(counts counterstore.CounterStore) error {
					snap, err := counterstore.TakeSnapshot(cCtx.Context, counts)
					if err != nil {
						return fmt.Errorf("taking snapshot: %w", err)
					}

					if out != "" {
						data, err := json.MarshalIndent(snap, "", "  ")
						if err != nil {
							return fmt.Errorf("serializing snapshot: %w", err)
						}
						if err := os.WriteFile(out, data, 0644); err != nil {
							return fmt.Errorf("writing snapshot: %w", err)
						}
						log.Infof("Wrote %d records to %s", len(snap.Records), out)
						return nil
					}

					var opts []func(*awsconfig.LoadOptions) error
					if region := cCtx.String("region"); region != "" {
						opts = append(opts, awsconfig.WithRegion(region))
					}
					awsCfg, err := awsconfig.LoadDefaultConfig(cCtx.Context, opts...)
					if err != nil {
						return fmt.Errorf("loading aws default config: %w", err)
					}
					key, err := hcaws.NewS3SnapshotStore(awsCfg, bucket, cCtx.String("prefix")).Put(cCtx.Context, snap)
					if err != nil {
						return err
					}
					log.Infof("Uploaded %d records to s3://%s/%s", len(snap.Records), bucket, key)
					return nil
				})
			},
		},
	},
}

func withCounterStore(cCtx *cli.Context, fn func(counterstore.CounterStore) error) error {
	cfg, err := config.LoadConfig(cCtx)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.StoreMemory {
		return errors.New("the memory store does not outlive the server, choose leveldb or dynamodb")
	}
	counts, closeStore, err := openCounterStore(cCtx.Context, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening counter store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Errorf("closing counter store: %s", err)
		}
	}()
	return fn(counts)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
