// Package ledger implements the transaction ledger client that records one
// idempotent audit entry per redemption event.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
	"pointstrade/internal/store"
)

// Client appends redemption entries to the ledger store.
type Client struct {
	store store.LedgerStore
}

// NewClient creates a ledger client backed by the given store.
func NewClient(s store.LedgerStore) *Client {
	return &Client{store: s}
}

// ClientTxID derives the idempotency key for a redemption attempt. It is
// deterministic from member, basket, and the submission's creation time, so
// a retried submission carrying the same basket id maps to the same entry.
func ClientTxID(memberID, basketID string, createdAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", memberID, basketID, createdAt.UTC().Unix())
}

// RecordRedemption appends the redemption entry for a basket submission.
// The store treats the client transaction id as advisory idempotency: a
// duplicate append is a no-op.
func (c *Client) RecordRedemption(ctx context.Context, basket domain.Basket, basketID, broker string, createdAt time.Time) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		ClientTxID: ClientTxID(basket.MemberID, basketID, createdAt),
		MemberID:   basket.MemberID,
		MerchantID: basket.MerchantID,
		Broker:     broker,
		TxType:     domain.TxTypeRedeemPoints,
		Points:     basket.PointsUsed,
		Note: fmt.Sprintf("redeemed %s points for %s across %d instruments",
			basket.PointsUsed, formatAmount(basket.TotalAmount), len(basket.Lines)),
		Timestamp: createdAt.UTC(),
	}

	if err := c.store.AppendEntry(ctx, &entry); err != nil {
		return entry, fmt.Errorf("recording redemption %s: %w", entry.ClientTxID, err)
	}
	return entry, nil
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
