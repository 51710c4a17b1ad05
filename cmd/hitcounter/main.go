package main

import (
	"errors"
	"io/fs"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/storacha/hitcounter/cmd"
)

var log = logging.Logger("hitcounter")

func main() {
	logging.SetLogLevel("*", "info")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %s", err)
	}

	app := &cli.App{
		Name:  "hitcounter",
		Usage: "Count requests to each path and forward them to a downstream handler.",
		Commands: []*cli.Command{
			cmd.ServeCmd,
			cmd.HitsCmd,
			cmd.VersionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
