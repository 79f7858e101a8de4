package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pointstrade.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLine(basketID, symbol string, status domain.OrderStatus) *domain.OrderLine {
	return &domain.OrderLine{
		MemberID:        "m-1",
		MerchantID:      "acme",
		BasketID:        basketID,
		Symbol:          symbol,
		Shares:          dec("1.5"),
		PointsAllocated: dec("167"),
		CashAllocated:   dec("50.00"),
		OrderType:       domain.OrderTypeMarket,
		Broker:          "alpaca",
		Status:          status,
	}
}

func TestPlaceAndGetOrderLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.PlaceOrderLine(ctx, testLine("bk-1", "AAPL", domain.OrderStatusPending))
	if err != nil {
		t.Fatalf("PlaceOrderLine: %v", err)
	}
	id2, err := s.PlaceOrderLine(ctx, testLine("bk-1", "MSFT", domain.OrderStatusPending))
	if err != nil {
		t.Fatalf("PlaceOrderLine: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids should increase: %d then %d", id1, id2)
	}

	lines, err := s.GetOrderLines(ctx, "bk-1")
	if err != nil {
		t.Fatalf("GetOrderLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Symbol != "AAPL" || lines[1].Symbol != "MSFT" {
		t.Errorf("lines out of insertion order: %s, %s", lines[0].Symbol, lines[1].Symbol)
	}
	if !lines[0].PointsAllocated.Equal(dec("167")) {
		t.Errorf("PointsAllocated = %s, want 167", lines[0].PointsAllocated)
	}
	if !lines[0].CashAllocated.Equal(dec("50.00")) {
		t.Errorf("CashAllocated = %s, want 50.00", lines[0].CashAllocated)
	}
	if lines[0].Status != domain.OrderStatusPending {
		t.Errorf("Status = %s, want pending", lines[0].Status)
	}
}

func TestListOrderLinesByMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, basket := range []string{"bk-1", "bk-2", "bk-3"} {
		if _, err := s.PlaceOrderLine(ctx, testLine(basket, "AAPL", domain.OrderStatusQueued)); err != nil {
			t.Fatalf("PlaceOrderLine: %v", err)
		}
	}

	lines, err := s.ListOrderLinesByMember(ctx, "m-1", 2)
	if err != nil {
		t.Fatalf("ListOrderLinesByMember: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	// Most recent first.
	if lines[0].BasketID != "bk-3" {
		t.Errorf("lines[0].BasketID = %s, want bk-3", lines[0].BasketID)
	}

	none, err := s.ListOrderLinesByMember(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("ListOrderLinesByMember: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d lines for unknown member, want 0", len(none))
	}
}

func TestAdvanceBasketStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, sym := range []string{"AAPL", "MSFT", "GOOG"} {
		if _, err := s.PlaceOrderLine(ctx, testLine("bk-adv", sym, domain.OrderStatusPending)); err != nil {
			t.Fatalf("PlaceOrderLine: %v", err)
		}
	}
	// A line from another basket must not be touched.
	if _, err := s.PlaceOrderLine(ctx, testLine("bk-other", "TSLA", domain.OrderStatusPending)); err != nil {
		t.Fatalf("PlaceOrderLine: %v", err)
	}

	n, err := s.AdvanceBasketStatus(ctx, "bk-adv", domain.OrderStatusPending, domain.OrderStatusPlaced)
	if err != nil {
		t.Fatalf("AdvanceBasketStatus: %v", err)
	}
	if n != 3 {
		t.Errorf("advanced %d lines, want 3", n)
	}

	lines, _ := s.GetOrderLines(ctx, "bk-adv")
	for _, l := range lines {
		if l.Status != domain.OrderStatusPlaced {
			t.Errorf("line %s status = %s, want placed", l.Symbol, l.Status)
		}
	}
	other, _ := s.GetOrderLines(ctx, "bk-other")
	if other[0].Status != domain.OrderStatusPending {
		t.Errorf("other basket status = %s, want pending", other[0].Status)
	}

	// Backward transition is rejected outright.
	if _, err := s.AdvanceBasketStatus(ctx, "bk-adv", domain.OrderStatusPlaced, domain.OrderStatusPending); err == nil {
		t.Error("backward transition should fail")
	}

	// Advancing lines no longer in the from-status is a zero-row update.
	n, err = s.AdvanceBasketStatus(ctx, "bk-adv", domain.OrderStatusPending, domain.OrderStatusPlaced)
	if err != nil {
		t.Fatalf("AdvanceBasketStatus: %v", err)
	}
	if n != 0 {
		t.Errorf("advanced %d lines, want 0", n)
	}
}

func TestWalletRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetWallet(ctx, "m-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWallet for missing member: err = %v, want ErrNotFound", err)
	}

	w := &domain.WalletBalances{
		MemberID:       "m-1",
		Points:         dec("1000"),
		CashBalance:    dec("250.75"),
		PortfolioValue: dec("1234.56"),
	}
	if err := s.UpdateBalances(ctx, w); err != nil {
		t.Fatalf("UpdateBalances: %v", err)
	}

	got, err := s.GetWallet(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if !got.Points.Equal(dec("1000")) || !got.CashBalance.Equal(dec("250.75")) || !got.PortfolioValue.Equal(dec("1234.56")) {
		t.Errorf("wallet round trip mismatch: %+v", got)
	}

	// Upsert overwrites.
	w.Points = dec("667")
	if err := s.UpdateBalances(ctx, w); err != nil {
		t.Fatalf("UpdateBalances: %v", err)
	}
	got, _ = s.GetWallet(ctx, "m-1")
	if !got.Points.Equal(dec("667")) {
		t.Errorf("Points after update = %s, want 667", got.Points)
	}
}

func TestLedgerAppendIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	entry := &domain.LedgerEntry{
		ClientTxID: "m-1:bk-1:1738404000",
		MemberID:   "m-1",
		MerchantID: "acme",
		Broker:     "alpaca",
		TxType:     domain.TxTypeRedeemPoints,
		Points:     dec("333"),
		Note:       "redeemed 333 points across 2 instruments",
		Timestamp:  ts,
	}

	if err := s.AppendEntry(ctx, entry); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	// Same client tx id again: must not error, must not duplicate.
	if err := s.AppendEntry(ctx, entry); err != nil {
		t.Fatalf("AppendEntry retry: %v", err)
	}

	entries, err := s.ListEntries(ctx, ts.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !entries[0].Points.Equal(dec("333")) {
		t.Errorf("Points = %s, want 333", entries[0].Points)
	}
	if entries[0].TxType != domain.TxTypeRedeemPoints {
		t.Errorf("TxType = %s, want %s", entries[0].TxType, domain.TxTypeRedeemPoints)
	}

	// since filter excludes older entries.
	later, err := s.ListEntries(ctx, ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(later) != 0 {
		t.Errorf("got %d entries after cutoff, want 0", len(later))
	}
}

func TestMerchantRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetMerchant(ctx, "acme"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMerchant for missing id: err = %v, want ErrNotFound", err)
	}

	m := &domain.Merchant{
		ID:               "acme",
		Name:             "Acme Rewards",
		Broker:           "alpaca",
		SweepDay:         "15",
		FractionalPoints: true,
	}
	if err := s.SaveMerchant(ctx, m); err != nil {
		t.Fatalf("SaveMerchant: %v", err)
	}

	got, err := s.GetMerchant(ctx, "acme")
	if err != nil {
		t.Fatalf("GetMerchant: %v", err)
	}
	if got.SweepDay != "15" || !got.FractionalPoints || got.Broker != "alpaca" {
		t.Errorf("merchant round trip mismatch: %+v", got)
	}
	if got.Immediate() {
		t.Error("merchant with sweep day 15 should not be immediate")
	}
}

func TestLedgerArchive(t *testing.T) {
	dir := t.TempDir()
	a := NewLedgerArchive(dir)
	ctx := context.Background()

	entries := []domain.LedgerEntry{
		{
			ClientTxID: "m-1:bk-1:100",
			MemberID:   "m-1",
			MerchantID: "acme",
			Broker:     "alpaca",
			TxType:     domain.TxTypeRedeemPoints,
			Points:     dec("100"),
			Note:       "first",
			Timestamp:  time.Date(2024, 11, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			ClientTxID: "m-2:bk-2:200",
			MemberID:   "m-2",
			MerchantID: "acme",
			Broker:     "alpaca",
			TxType:     domain.TxTypeRedeemPoints,
			Points:     dec("25.50"),
			Note:       "second",
			Timestamp:  time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		},
	}

	if err := a.ArchiveEntries(ctx, entries); err != nil {
		t.Fatalf("ArchiveEntries: %v", err)
	}
	// Archiving the same entries again must not duplicate.
	if err := a.ArchiveEntries(ctx, entries); err != nil {
		t.Fatalf("ArchiveEntries rerun: %v", err)
	}

	y2024, err := a.ReadYear(ctx, 2024)
	if err != nil {
		t.Fatalf("ReadYear(2024): %v", err)
	}
	if len(y2024) != 1 || y2024[0].ClientTxID != "m-1:bk-1:100" {
		t.Errorf("2024 archive = %+v, want the single first entry", y2024)
	}

	y2025, err := a.ReadYear(ctx, 2025)
	if err != nil {
		t.Fatalf("ReadYear(2025): %v", err)
	}
	if len(y2025) != 1 || !y2025[0].Points.Equal(dec("25.50")) {
		t.Errorf("2025 archive = %+v, want the single second entry", y2025)
	}

	empty, err := a.ReadYear(ctx, 2020)
	if err != nil {
		t.Fatalf("ReadYear(2020): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d entries for empty year, want 0", len(empty))
	}
}
