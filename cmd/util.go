package cmd

import (
	"fmt"
	"os"
	"path"

	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/hitcounter/pkg/build"
	"github.com/storacha/hitcounter/pkg/config"
)

var log = logging.Logger("cmd")

func PrintHero(cfg *config.Node) {
	fmt.Printf(`
 00     00  00   00                                                   00
 00     00       00                                                   00
 000000000  00  000000    0000000   0000000  00    00  0000000   000000   0000000  00000
 00     00  00   00      00        00     00 00    00  00    00    00    00     00 00
 00     00  00   00      00        00     00 00    00  00    00    00    000000000 00
 00     00  00   0000     0000000   0000000   000000   00    00    0000   0000000  00

🔢 Hit Counter %s
📦 Store: %s
➡️  Downstream: %s
🚀 Ready on %s
`, build.Version, cfg.Store.Backend, cfg.Downstream.Kind, cfg.Addr())
}

func mkdirp(dirpath ...string) (string, error) {
	dir := path.Join(dirpath...)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", fmt.Errorf("creating directory: %s: %w", dir, err)
	}
	return dir, nil
}
