package pointstrade

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker processing stages accepted by ConfirmStage.
const (
	StageAcknowledge = "acknowledge"
	StageConfirm     = "confirm"
)

// RedemptionLine is one instrument purchase in a submission request.
type RedemptionLine struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price,omitempty"`
}

// RedemptionRequest is the body of POST /api/redemptions.
type RedemptionRequest struct {
	MemberID    string           `json:"member_id"`
	MerchantID  string           `json:"merchant_id"`
	Lines       []RedemptionLine `json:"lines"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	PointsUsed  decimal.Decimal  `json:"points_used"`
}

// RedemptionResponse is the confirmation summary returned to the submitter.
type RedemptionResponse struct {
	BasketID         string   `json:"basket_id"`
	Mode             string   `json:"mode"`
	Status           string   `json:"status"`
	OrderIDs         []int64  `json:"order_ids"`
	PointsPerLine    []string `json:"points_per_line"`
	CashPerLine      []string `json:"cash_per_line"`
	WalletUpdated    bool     `json:"wallet_updated"`
	LedgerLogged     bool     `json:"ledger_logged"`
	MerchantNotified bool     `json:"merchant_notified"`
	BrokerNotified   bool     `json:"broker_notified"`
	ConfirmScheduled bool     `json:"confirm_scheduled"`
	NextSweepDate    string   `json:"next_sweep_date,omitempty"`
}

// Wallet is a member's balances from GET /api/wallet/{member_id}.
type Wallet struct {
	MemberID       string          `json:"member_id"`
	Points         decimal.Decimal `json:"points"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// OrderLine is one persisted order line from GET /api/orders.
type OrderLine struct {
	ID              int64           `json:"id"`
	MemberID        string          `json:"member_id"`
	MerchantID      string          `json:"merchant_id"`
	BasketID        string          `json:"basket_id"`
	Symbol          string          `json:"symbol"`
	Shares          decimal.Decimal `json:"shares"`
	PointsAllocated decimal.Decimal `json:"points_allocated"`
	CashAllocated   decimal.Decimal `json:"cash_allocated"`
	OrderType       string          `json:"order_type"`
	Broker          string          `json:"broker"`
	Status          string          `json:"status"`
	SweepDay        string          `json:"sweep_day,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ordersResponse struct {
	Orders []OrderLine `json:"orders"`
}

// ConfirmRequest is the body of POST /api/broker/confirm: the broker side
// reports one completed processing stage for a basket.
type ConfirmRequest struct {
	MemberID        string `json:"member_id"`
	BasketID        string `json:"basket_id"`
	ProcessingStage string `json:"processing_stage"`
}

// ConfirmResponse reports how many lines the stage advanced.
type ConfirmResponse struct {
	BasketID     string `json:"basket_id"`
	Status       string `json:"status"`
	LinesUpdated int64  `json:"lines_updated"`
}

type healthResponse struct {
	Status string `json:"status"`
}
