package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
	"pointstrade/internal/util"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testBrokerEvent() BrokerEvent {
	return BrokerEvent{
		EventType:  "points_redemption",
		MemberID:   "m-1",
		MerchantID: "acme",
		Broker:     "alpaca",
		BasketID:   "bk-1",
		Amount:     dec("100.00"),
		PointsUsed: dec("333"),
		Orders: []BrokerOrder{
			{Symbol: "AAPL", Shares: dec("0.5"), Points: dec("167"), Amount: dec("50.00")},
			{Symbol: "MSFT", Shares: dec("0.2"), Points: dec("166"), Amount: dec("50.00")},
		},
		Timestamp: time.Now().UTC(),
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var gotMerchant MerchantEvent
	var gotBroker BrokerEvent

	merchantSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotMerchant); err != nil {
			t.Errorf("decoding merchant payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer merchantSrv.Close()

	brokerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBroker); err != nil {
			t.Errorf("decoding broker payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer brokerSrv.Close()

	n := NewWebhookNotifier(merchantSrv.URL, brokerSrv.URL, 5*time.Second)
	ctx := context.Background()

	err := n.NotifyMerchant(ctx, MerchantEvent{
		MemberID:        "m-1",
		MerchantID:      "acme",
		PointsRedeemed:  dec("333"),
		CashValue:       dec("100.00"),
		BasketID:        "bk-1",
		TransactionType: domain.TxTypeRedeemPoints,
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("NotifyMerchant: %v", err)
	}
	if gotMerchant.BasketID != "bk-1" || !gotMerchant.PointsRedeemed.Equal(dec("333")) {
		t.Errorf("merchant payload mismatch: %+v", gotMerchant)
	}

	ev := testBrokerEvent()
	ev.ProcessingStage = domain.StageAcknowledge
	if err := n.NotifyBroker(ctx, ev, domain.StageAcknowledge); err != nil {
		t.Fatalf("NotifyBroker: %v", err)
	}
	if gotBroker.ProcessingStage != domain.StageAcknowledge || len(gotBroker.Orders) != 2 {
		t.Errorf("broker payload mismatch: %+v", gotBroker)
	}
}

func TestWebhookNotifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.URL, 5*time.Second)

	if err := n.NotifyMerchant(context.Background(), MerchantEvent{BasketID: "bk-1"}); err == nil {
		t.Error("5xx response should surface as an error")
	}

	unconfigured := NewWebhookNotifier("", "", 5*time.Second)
	if err := unconfigured.NotifyMerchant(context.Background(), MerchantEvent{}); err == nil {
		t.Error("missing endpoint should surface as an error")
	}
}

// flakySink fails a fixed number of deliveries before succeeding.
type flakySink struct {
	failures  int
	merchants []MerchantEvent
	brokers   []BrokerEvent
}

func (f *flakySink) Name() string { return "flaky" }

func (f *flakySink) NotifyMerchant(_ context.Context, event MerchantEvent) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("sink down")
	}
	f.merchants = append(f.merchants, event)
	return nil
}

func (f *flakySink) NotifyBroker(_ context.Context, event BrokerEvent, _ domain.ProcessingStage) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("sink down")
	}
	f.brokers = append(f.brokers, event)
	return nil
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	sink := &flakySink{failures: 2}
	d := NewDispatcher(sink, sink, 600, util.NewLogger("error"))
	ctx := context.Background()

	// Failures are reported as false, never as an error or panic.
	if d.NotifyMerchant(ctx, MerchantEvent{BasketID: "bk-1"}) {
		t.Error("NotifyMerchant should report false while the sink is down")
	}
	if d.NotifyBroker(ctx, testBrokerEvent(), domain.StageAcknowledge) {
		t.Error("NotifyBroker should report false while the sink is down")
	}

	if !d.NotifyMerchant(ctx, MerchantEvent{BasketID: "bk-1"}) {
		t.Error("NotifyMerchant should report true once the sink recovers")
	}
	if !d.NotifyBroker(ctx, testBrokerEvent(), domain.StageConfirm) {
		t.Error("NotifyBroker should report true once the sink recovers")
	}

	if len(sink.brokers) != 1 || sink.brokers[0].ProcessingStage != domain.StageConfirm {
		t.Errorf("dispatcher should stamp the stage onto the event: %+v", sink.brokers)
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(util.NewLogger("error"))
	ctx := context.Background()

	if err := n.NotifyMerchant(ctx, MerchantEvent{BasketID: "bk-1"}); err != nil {
		t.Errorf("NotifyMerchant: %v", err)
	}
	if err := n.NotifyBroker(ctx, testBrokerEvent(), domain.StageAcknowledge); err != nil {
		t.Errorf("NotifyBroker: %v", err)
	}
}
