package notify

import (
	"context"
	"log/slog"

	"pointstrade/internal/domain"
)

// Compile-time interface checks.
var _ MerchantNotifier = (*LogNotifier)(nil)
var _ BrokerNotifier = (*LogNotifier)(nil)

// LogNotifier is a sink that only records events in the log. Used when no
// webhook endpoint or brokerage credentials are configured, and for local
// development.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-only sink.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Name returns "log".
func (n *LogNotifier) Name() string {
	return "log"
}

// NotifyMerchant logs the merchant event.
func (n *LogNotifier) NotifyMerchant(_ context.Context, event MerchantEvent) error {
	n.log.Info("merchant event",
		"basket_id", event.BasketID,
		"member_id", event.MemberID,
		"points_redeemed", event.PointsRedeemed.String(),
		"cash_value", event.CashValue.String())
	return nil
}

// NotifyBroker logs the broker event.
func (n *LogNotifier) NotifyBroker(_ context.Context, event BrokerEvent, stage domain.ProcessingStage) error {
	n.log.Info("broker event",
		"basket_id", event.BasketID,
		"stage", string(stage),
		"orders", len(event.Orders),
		"amount", event.Amount.String())
	return nil
}
