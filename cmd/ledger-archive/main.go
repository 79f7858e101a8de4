// One-shot tool: export ledger entries from SQLite to year-partitioned
// parquet files for long-term audit storage.
//
// Reads every ledger entry at or after the -since date (default: all) and
// merges them into <archive_dir>/ledger/<year>.parquet. Re-running is safe:
// entries are deduplicated by client transaction id.
//
// Usage:
//
//	go build -o bin/ledger-archive ./cmd/ledger-archive/
//	bin/ledger-archive [-since 2025-01-01]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"pointstrade/internal/config"
	"pointstrade/internal/store"
	"pointstrade/internal/util"
)

func main() {
	since := flag.String("since", "", "only archive entries on or after this date (YYYY-MM-DD)")
	flag.Parse()

	cfgPath := "config/pointstrade.yaml"
	if p := os.Getenv("POINTSTRADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)

	var cutoff time.Time
	if *since != "" {
		cutoff, err = time.Parse("2006-01-02", *since)
		if err != nil {
			log.Fatalf("parsing -since: %v", err)
		}
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries, err := st.ListEntries(ctx, cutoff)
	if err != nil {
		log.Fatalf("listing ledger entries: %v", err)
	}
	if len(entries) == 0 {
		logger.Info("nothing to archive")
		return
	}

	archive := store.NewLedgerArchive(cfg.Storage.ArchiveDir)
	if err := archive.ArchiveEntries(ctx, entries); err != nil {
		log.Fatalf("archiving entries: %v", err)
	}

	logger.Info("ledger archived", "entries", len(entries), "archive_dir", cfg.Storage.ArchiveDir)
}
