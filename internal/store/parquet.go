package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
)

// LedgerArchive writes ledger entries to year-partitioned Parquet files for
// offline reconciliation tooling.
type LedgerArchive struct {
	ArchiveDir string
}

// NewLedgerArchive creates a LedgerArchive rooted at the given directory.
func NewLedgerArchive(archiveDir string) *LedgerArchive {
	return &LedgerArchive{ArchiveDir: archiveDir}
}

// LedgerRecord is the Parquet schema for archived ledger entries.
type LedgerRecord struct {
	ClientTxID string `parquet:"client_tx_id"`
	MemberID   string `parquet:"member_id"`
	MerchantID string `parquet:"merchant_id"`
	Broker     string `parquet:"broker"`
	TxType     string `parquet:"tx_type"`
	Points     string `parquet:"points"`
	Note       string `parquet:"note"`
	Timestamp  int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// ArchiveEntries writes the entries to Parquet files under
// <ArchiveDir>/ledger/<YYYY>.parquet, merged with whatever the files already
// hold. Re-archiving the same entries is a no-op: records are deduplicated
// by client transaction id.
func (a *LedgerArchive) ArchiveEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	groups := make(map[int][]LedgerRecord)
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		year := e.Timestamp.UTC().Year()
		groups[year] = append(groups[year], LedgerRecord{
			ClientTxID: e.ClientTxID,
			MemberID:   e.MemberID,
			MerchantID: e.MerchantID,
			Broker:     e.Broker,
			TxType:     e.TxType,
			Points:     e.Points.String(),
			Note:       e.Note,
			Timestamp:  e.Timestamp.UnixMilli(),
		})
	}

	for year, records := range groups {
		path := a.ledgerPath(year)

		existing, _ := readParquetFile[LedgerRecord](path)
		merged := mergeLedgerRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("archiving ledger for %d: %w", year, err)
		}
	}
	return nil
}

// ReadYear returns all archived entries for a year, oldest first.
func (a *LedgerArchive) ReadYear(_ context.Context, year int) ([]domain.LedgerEntry, error) {
	records, err := readParquetFile[LedgerRecord](a.ledgerPath(year))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(records))
	for _, r := range records {
		points, err := decimal.NewFromString(r.Points)
		if err != nil {
			return nil, fmt.Errorf("parsing archived points %q: %w", r.Points, err)
		}
		entries = append(entries, domain.LedgerEntry{
			ClientTxID: r.ClientTxID,
			MemberID:   r.MemberID,
			MerchantID: r.MerchantID,
			Broker:     r.Broker,
			TxType:     r.TxType,
			Points:     points,
			Note:       r.Note,
			Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
		})
	}
	return entries, nil
}

func (a *LedgerArchive) ledgerPath(year int) string {
	return filepath.Join(a.ArchiveDir, "ledger", fmt.Sprintf("%d.parquet", year))
}

// mergeLedgerRecords deduplicates records by client transaction id,
// preferring new records over existing ones.
func mergeLedgerRecords(existing, incoming []LedgerRecord) []LedgerRecord {
	seen := make(map[string]LedgerRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ClientTxID] = r
	}
	for _, r := range incoming {
		seen[r.ClientTxID] = r
	}

	merged := make([]LedgerRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].ClientTxID < merged[j].ClientTxID
	})
	return merged
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
