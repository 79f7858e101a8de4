// Package store defines storage contracts for order lines, wallets, ledger
// entries, and merchant settlement settings, plus the SQLite implementation
// and the Parquet reconciliation archive.
package store

import (
	"context"
	"errors"
	"time"

	"pointstrade/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// OrderStore persists and retrieves order lines.
type OrderStore interface {
	// PlaceOrderLine inserts a new order line and returns its id.
	PlaceOrderLine(ctx context.Context, line *domain.OrderLine) (int64, error)

	// GetOrderLines returns all lines belonging to a basket, in insertion order.
	GetOrderLines(ctx context.Context, basketID string) ([]domain.OrderLine, error)

	// ListOrderLinesByMember returns the member's most recent lines, up to limit.
	ListOrderLinesByMember(ctx context.Context, memberID string, limit int) ([]domain.OrderLine, error)

	// AdvanceBasketStatus moves every line of a basket currently in status
	// from to status to, returning the number of lines updated. Backward
	// transitions are rejected.
	AdvanceBasketStatus(ctx context.Context, basketID string, from, to domain.OrderStatus) (int64, error)
}

// WalletStore owns member wallet balances.
type WalletStore interface {
	// GetWallet returns the member's current balances.
	GetWallet(ctx context.Context, memberID string) (*domain.WalletBalances, error)

	// UpdateBalances overwrites the member's balances.
	UpdateBalances(ctx context.Context, balances *domain.WalletBalances) error
}

// LedgerStore appends and reads immutable redemption audit records.
type LedgerStore interface {
	// AppendEntry writes a ledger entry. Appends are idempotent on
	// ClientTxID: re-appending an existing id is a no-op, not an error.
	AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error

	// ListEntries returns entries with a timestamp at or after since, oldest
	// first.
	ListEntries(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error)
}

// MerchantStore resolves merchant settlement settings.
type MerchantStore interface {
	// GetMerchant returns the merchant's settings, or ErrNotFound.
	GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error)

	// SaveMerchant inserts or replaces a merchant record. Used for seeding;
	// merchant administration is handled elsewhere.
	SaveMerchant(ctx context.Context, m *domain.Merchant) error
}
