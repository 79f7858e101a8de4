// Package domain defines the core types shared across the pointstrade
// system: baskets, order lines, wallet balances, ledger entries, and
// merchant settlement settings.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a single order line.
type OrderStatus string

const (
	// OrderStatusQueued marks a line waiting for a monthly batch sweep.
	OrderStatusQueued OrderStatus = "queued"
	// OrderStatusPending marks a line written but not yet acknowledged by
	// the broker (stage 1 of immediate processing).
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPlaced marks a line acknowledged by the broker (stage 2).
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusConfirmed marks a line confirmed by the broker (stage 3).
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCancelled marks a line cancelled out-of-band.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusRank orders statuses along the queued/pending → placed → confirmed
// progression. Higher rank means further along; transitions never go back.
// Cancelled shares the terminal rank with confirmed, so a confirmed line can
// never be cancelled and a cancelled line never advances.
var statusRank = map[OrderStatus]int{
	OrderStatusQueued:    0,
	OrderStatusPending:   0,
	OrderStatusPlaced:    1,
	OrderStatusConfirmed: 2,
	OrderStatusCancelled: 2,
}

// CanTransition reports whether moving from s to next is a forward move in
// the order-line state machine.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ProcessingStage identifies one step of the broker acknowledgment protocol.
type ProcessingStage string

const (
	// StageAcknowledge asks the broker to acknowledge pending lines (stage 2).
	StageAcknowledge ProcessingStage = "acknowledge"
	// StageConfirm asks the broker to confirm placed lines (stage 3).
	StageConfirm ProcessingStage = "confirm"
)

// OrderType values. Only market orders are produced by redemption baskets.
const OrderTypeMarket = "market"

// TxTypeRedeemPoints is the ledger transaction type for a points redemption.
const TxTypeRedeemPoints = "redeem_points"

// BasketLine is one instrument the member selected for purchase.
type BasketLine struct {
	Symbol string
	Shares decimal.Decimal
	Price  decimal.Decimal
}

// Basket is the caller-supplied redemption request. It is consumed once by
// the orchestrator and never persisted as a unit; only its derived order
// lines are.
type Basket struct {
	MemberID    string
	MerchantID  string
	Lines       []BasketLine
	TotalAmount decimal.Decimal
	PointsUsed  decimal.Decimal
}

// NewBasketID generates the token that groups all order lines and the ledger
// entry of one submission: a UTC timestamp plus a random suffix.
func NewBasketID(now time.Time) string {
	return fmt.Sprintf("bk-%s-%s", now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// OrderLine is one persisted instrument purchase intent derived from a
// basket entry.
type OrderLine struct {
	ID              int64
	MemberID        string
	MerchantID      string
	BasketID        string
	Symbol          string
	Shares          decimal.Decimal
	PointsAllocated decimal.Decimal
	CashAllocated   decimal.Decimal
	OrderType       string
	Broker          string
	Status          OrderStatus
	SweepDay        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WalletBalances is a snapshot of a member's wallet.
type WalletBalances struct {
	MemberID       string
	Points         decimal.Decimal
	CashBalance    decimal.Decimal
	PortfolioValue decimal.Decimal
}

// LedgerEntry is the immutable audit record of one redemption event.
// ClientTxID is deterministic from member, basket, and creation time so a
// retried submission does not double-log.
type LedgerEntry struct {
	ClientTxID string
	MemberID   string
	MerchantID string
	Broker     string
	TxType     string
	Points     decimal.Decimal
	Note       string
	Timestamp  time.Time
}

// Merchant holds the settlement settings controlling how a member's
// redemptions are processed.
type Merchant struct {
	ID     string
	Name   string
	Broker string
	// SweepDay is "" or "T+1" for immediate processing, or a day-of-month
	// ("1".."28") for monthly batch settlement.
	SweepDay string
	// FractionalPoints selects the cent-exact decimal allocation path
	// instead of whole-point allocation.
	FractionalPoints bool
}

// Immediate reports whether orders for this merchant settle immediately
// rather than waiting for a batch sweep.
func (m Merchant) Immediate() bool {
	return m.SweepDay == "" || m.SweepDay == "T+1"
}
