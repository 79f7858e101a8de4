package notify

import (
	"context"
	"fmt"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"pointstrade/internal/domain"
)

// Compile-time interface check.
var _ BrokerNotifier = (*AlpacaNotifier)(nil)

// AlpacaNotifier implements the broker sink against the Alpaca trading API.
// The acknowledge stage submits one fractional notional market buy per order
// line; the confirm stage verifies those orders exist at the brokerage.
type AlpacaNotifier struct {
	client *alpacaapi.Client
}

// NewAlpacaNotifier creates an Alpaca-backed broker notifier.
func NewAlpacaNotifier(apiKey, apiSecret, baseURL string) *AlpacaNotifier {
	return &AlpacaNotifier{
		client: alpacaapi.NewClient(alpacaapi.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// Name returns "alpaca".
func (n *AlpacaNotifier) Name() string {
	return "alpaca"
}

// NotifyBroker handles one processing stage for the basket's orders.
func (n *AlpacaNotifier) NotifyBroker(_ context.Context, event BrokerEvent, stage domain.ProcessingStage) error {
	switch stage {
	case domain.StageAcknowledge:
		return n.submitOrders(event)
	case domain.StageConfirm:
		return n.verifyOrders(event)
	default:
		return fmt.Errorf("unknown processing stage %q", stage)
	}
}

// submitOrders places a notional market buy for every order line. The client
// order id ties each brokerage order back to its basket line so retries and
// the confirm stage can find it.
func (n *AlpacaNotifier) submitOrders(event BrokerEvent) error {
	for _, o := range event.Orders {
		notional := o.Amount
		req := alpacaapi.PlaceOrderRequest{
			Symbol:        o.Symbol,
			Notional:      &notional,
			Side:          alpacaapi.Buy,
			Type:          alpacaapi.Market,
			TimeInForce:   alpacaapi.Day,
			ClientOrderID: clientOrderID(event.BasketID, o.Symbol),
		}
		if _, err := n.client.PlaceOrder(req); err != nil {
			return fmt.Errorf("placing %s for basket %s: %w", o.Symbol, event.BasketID, err)
		}
	}
	return nil
}

// verifyOrders checks that every order line from the acknowledge stage is
// known to the brokerage.
func (n *AlpacaNotifier) verifyOrders(event BrokerEvent) error {
	for _, o := range event.Orders {
		id := clientOrderID(event.BasketID, o.Symbol)
		if _, err := n.client.GetOrderByClientOrderID(id); err != nil {
			return fmt.Errorf("confirming %s for basket %s: %w", o.Symbol, event.BasketID, err)
		}
	}
	return nil
}

func clientOrderID(basketID, symbol string) string {
	return basketID + ":" + symbol
}
