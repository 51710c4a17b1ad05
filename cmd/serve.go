package cmd

import (
	"fmt"
	"net/url"

	"github.com/hashicorp/go-cleanhttp"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/hitcounter/internal/telemetry"
	"github.com/storacha/hitcounter/pkg/config"
	"github.com/storacha/hitcounter/pkg/gateway"
	"github.com/storacha/hitcounter/pkg/hello"
	"github.com/storacha/hitcounter/pkg/server"
)

var ServeCmd = &cli.Command{
	Name:  "serve",
	Usage: "Count requests and forward them to the downstream handler.",
	Flags: append(append([]cli.Flag{ConfigFlag, LogLevelFlag}, ServerFlags...), StoreFlags...),
	Action: func(cCtx *cli.Context) error {
		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}
		if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil {
			return fmt.Errorf("setting log level: %w", err)
		}
		telemetry.SetupErrorReporting(cfg.Telemetry.SentryDSN, cfg.Telemetry.SentryEnvironment)

		counts, closeStore, err := openCounterStore(cCtx.Context, cfg.Store)
		if err != nil {
			return fmt.Errorf("opening counter store: %w", err)
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.Errorf("closing counter store: %s", err)
			}
		}()

		downstream, err := newDownstream(cfg.Downstream)
		if err != nil {
			return err
		}

		fwd, err := gateway.NewForwarder(counts, downstream)
		if err != nil {
			return err
		}

		PrintHero(cfg)
		return server.ListenAndServe(
			cfg.Addr(),
			server.WithForwarder(fwd),
			server.WithCounterStore(counts),
			server.WithMaxConcurrency(cfg.Server.MaxConcurrency),
		)
	},
}

func newDownstream(cfg config.DownstreamConfig) (gateway.Downstream, error) {
	switch cfg.Kind {
	case config.DownstreamHello:
		return gateway.NewHandlerDownstream(hello.NewHandler()), nil
	case config.DownstreamHTTP:
		base, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing downstream URL: %w", err)
		}
		client := cleanhttp.DefaultPooledClient()
		client.Timeout = cfg.Timeout
		return gateway.NewHTTPDownstream(*base, gateway.WithHTTPClient(client)), nil
	}
	return nil, fmt.Errorf("unknown downstream: %q", cfg.Kind)
}
