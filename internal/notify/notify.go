// Package notify defines the merchant and broker notification sinks and the
// best-effort dispatcher in front of them. Notification failures are logged
// and reported as flags; they never fail an order.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
	"pointstrade/internal/util"
)

// MerchantEvent is the payload sent to the merchant sink after a redemption.
type MerchantEvent struct {
	MemberID        string          `json:"member_id"`
	MerchantID      string          `json:"merchant_id"`
	PointsRedeemed  decimal.Decimal `json:"points_redeemed"`
	CashValue       decimal.Decimal `json:"cash_value"`
	BasketID        string          `json:"basket_id"`
	TransactionType string          `json:"transaction_type"`
	Timestamp       time.Time       `json:"timestamp"`
}

// BrokerOrder is one order line inside a broker event.
type BrokerOrder struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
	Points decimal.Decimal `json:"points_used"`
	Amount decimal.Decimal `json:"amount"`
}

// BrokerEvent is the payload sent to the broker sink at each processing
// stage of immediate settlement.
type BrokerEvent struct {
	EventType       string                 `json:"event_type"`
	MemberID        string                 `json:"member_id"`
	MerchantID      string                 `json:"merchant_id"`
	Broker          string                 `json:"broker"`
	BasketID        string                 `json:"basket_id"`
	Amount          decimal.Decimal        `json:"amount"`
	PointsUsed      decimal.Decimal        `json:"points_used"`
	Orders          []BrokerOrder          `json:"orders"`
	Timestamp       time.Time              `json:"timestamp"`
	ProcessingStage domain.ProcessingStage `json:"processing_stage"`
}

// MerchantNotifier delivers redemption events to the merchant system.
type MerchantNotifier interface {
	NotifyMerchant(ctx context.Context, event MerchantEvent) error
}

// BrokerNotifier delivers staged order events to the broker system.
type BrokerNotifier interface {
	// Name returns the sink identifier (e.g. "webhook", "alpaca").
	Name() string

	NotifyBroker(ctx context.Context, event BrokerEvent, stage domain.ProcessingStage) error
}

// Dispatcher fans redemption events out to the merchant and broker sinks.
// Every delivery is fire-and-forget with respect to order success: errors
// are logged and surfaced only as a false return.
type Dispatcher struct {
	merchant MerchantNotifier
	broker   BrokerNotifier
	limiter  *util.RateLimiter
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given sinks. ratePerMin bounds
// outbound deliveries across both sinks.
func NewDispatcher(merchant MerchantNotifier, broker BrokerNotifier, ratePerMin int, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		merchant: merchant,
		broker:   broker,
		limiter:  util.NewRateLimiter(ratePerMin),
		log:      log,
	}
}

// NotifyMerchant delivers the event to the merchant sink and reports whether
// delivery succeeded.
func (d *Dispatcher) NotifyMerchant(ctx context.Context, event MerchantEvent) bool {
	if err := d.limiter.Wait(ctx); err != nil {
		d.log.Warn("merchant notification skipped", "basket_id", event.BasketID, "error", err)
		return false
	}
	if err := d.merchant.NotifyMerchant(ctx, event); err != nil {
		d.log.Warn("merchant notification failed",
			"basket_id", event.BasketID, "merchant_id", event.MerchantID, "error", err)
		return false
	}
	d.log.Info("merchant notified", "basket_id", event.BasketID, "merchant_id", event.MerchantID)
	return true
}

// NotifyBroker delivers the event for one processing stage to the broker
// sink and reports whether delivery succeeded.
func (d *Dispatcher) NotifyBroker(ctx context.Context, event BrokerEvent, stage domain.ProcessingStage) bool {
	event.ProcessingStage = stage
	if err := d.limiter.Wait(ctx); err != nil {
		d.log.Warn("broker notification skipped",
			"basket_id", event.BasketID, "stage", stage, "error", err)
		return false
	}
	if err := d.broker.NotifyBroker(ctx, event, stage); err != nil {
		d.log.Warn("broker notification failed",
			"basket_id", event.BasketID, "stage", stage, "sink", d.broker.Name(), "error", err)
		return false
	}
	d.log.Info("broker notified",
		"basket_id", event.BasketID, "stage", stage, "sink", d.broker.Name())
	return true
}
