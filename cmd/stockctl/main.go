// stockctl inspects a deployment without starting the webhook server:
// it loads the main configuration, prints a summary, and reports what
// price history every configured symbol actually has on disk.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbot-api/internal/cli"
	"stockbot-api/internal/config"
	"stockbot-api/pkg/store"
)

var configFile = flag.String("f", "etc/stockbot.yaml", "the config file")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[stockctl] load config: %v", err)
	}

	log.Printf("[stockctl] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(cfg) {
		log.Printf("  - %s", line)
	}

	aliases, err := store.LoadAliasTable(cfg.ResolvePath(cfg.SymbolsFile))
	if err != nil {
		log.Fatalf("[stockctl] load alias table: %v", err)
	}
	log.Printf("[stockctl] %d aliases configured: %s",
		len(aliases.Names()), strings.Join(aliases.Names(), ", "))

	dataDir := cfg.ResolvePath(cfg.DataDir)
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		log.Fatalf("[stockctl] read data dir %s: %v", dataDir, err)
	}

	var storeOpts []store.Option
	if cfg.SnapshotDir != "" {
		storeOpts = append(storeOpts, store.WithSnapshotDir(cfg.ResolvePath(cfg.SnapshotDir)))
	}
	priceStore := store.New(dataDir, storeOpts...)

	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		found++
		key := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		series, err := priceStore.Series(key)
		if err != nil {
			log.Printf("[data.%s] [ERROR] %v", key, err)
			continue
		}
		if series.Len() == 0 {
			log.Printf("[data.%s] [WARN] no usable rows", key)
			continue
		}

		first := series.Records[0].Date
		last := series.Records[series.Len()-1].Date
		log.Printf("[data.%s] [OK] %d rows, %s ~ %s",
			key, series.Len(), first.Format(time.DateOnly), last.Format(time.DateOnly))
	}

	if found == 0 {
		log.Printf("[stockctl] [WARN] no csv files under %s", dataDir)
		return
	}
	log.Printf("[stockctl] inspected %d data files", found)
}
