// Package wallet implements the wallet ledger client: balance reads with a
// read-through fallback cache, post-redemption balance arithmetic, and
// balance writes against the wallet store.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
	"pointstrade/internal/store"
)

// ErrUnavailable is returned when balances can be neither read from the
// store nor served from the last-known cache.
var ErrUnavailable = errors.New("wallet unavailable")

// Client reads and writes member balances. The wallet store stays the single
// source of truth; the in-memory cache only serves reads when the store is
// down and is refreshed on every successful store call.
type Client struct {
	store store.WalletStore
	log   *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.WalletBalances
}

// NewClient creates a wallet client backed by the given store.
func NewClient(s store.WalletStore, log *slog.Logger) *Client {
	return &Client{
		store: s,
		log:   log,
		cache: make(map[string]domain.WalletBalances),
	}
}

// FetchBalances returns the member's current balances. A store failure falls
// back to the last-known snapshot; without one, ErrUnavailable is returned.
func (c *Client) FetchBalances(ctx context.Context, memberID string) (domain.WalletBalances, error) {
	w, err := c.store.GetWallet(ctx, memberID)
	if err != nil {
		c.mu.Lock()
		cached, ok := c.cache[memberID]
		c.mu.Unlock()
		if ok {
			c.log.Warn("wallet read failed, serving cached balances",
				"member_id", memberID, "error", err)
			return cached, nil
		}
		return domain.WalletBalances{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.mu.Lock()
	c.cache[memberID] = *w
	c.mu.Unlock()
	return *w, nil
}

// ApplyDelta writes the given balances to the store and refreshes the cache.
func (c *Client) ApplyDelta(ctx context.Context, balances domain.WalletBalances) error {
	if err := c.store.UpdateBalances(ctx, &balances); err != nil {
		return fmt.Errorf("wallet write for %s: %w", balances.MemberID, err)
	}

	c.mu.Lock()
	c.cache[balances.MemberID] = balances
	c.mu.Unlock()
	return nil
}

// PostRedemption computes the balances after a redemption of pointsUsed and
// totalAmount against the current snapshot. Points and cash clamp at zero so
// a stale read can never drive a balance negative; the portfolio value grows
// by the amount moved into brokerage orders.
func PostRedemption(current domain.WalletBalances, pointsUsed, totalAmount decimal.Decimal, fractionalPoints bool) domain.WalletBalances {
	pointScale := int32(0)
	if fractionalPoints {
		pointScale = 2
	}

	newPoints := current.Points.Sub(pointsUsed).Round(pointScale)
	if newPoints.IsNegative() {
		newPoints = decimal.Zero
	}
	newCash := current.CashBalance.Sub(totalAmount).Round(2)
	if newCash.IsNegative() {
		newCash = decimal.Zero
	}

	return domain.WalletBalances{
		MemberID:       current.MemberID,
		Points:         newPoints,
		CashBalance:    newCash,
		PortfolioValue: current.PortfolioValue.Add(totalAmount).Round(2),
	}
}
