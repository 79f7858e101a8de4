// Package engine implements the order orchestrator: it turns a finalized
// basket into persisted order lines, wallet and ledger updates, and merchant
// and broker notifications, selecting immediate or batched settlement per
// merchant.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pointstrade/internal/allocate"
	"pointstrade/internal/domain"
	"pointstrade/internal/ledger"
	"pointstrade/internal/notify"
	"pointstrade/internal/store"
	"pointstrade/internal/util"
	"pointstrade/internal/wallet"
)

// ErrInvalidSubmission marks a basket rejected before any side effect.
var ErrInvalidSubmission = errors.New("invalid submission")

// PlacementError reports the order line whose persistence failed. Lines
// written before it stay in the store; there is no compensation.
type PlacementError struct {
	Symbol string
	Err    error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("placing order line for %s: %v", e.Symbol, e.Err)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// Mode names for Result.Mode.
const (
	ModeImmediate = "immediate"
	ModeBatched   = "batched"
)

// Result summarizes one basket submission. The boolean flags report the
// best-effort steps; a false flag means the step failed and was logged, not
// that the order failed.
type Result struct {
	BasketID         string
	Mode             string
	InitialStatus    domain.OrderStatus
	OrderIDs         []int64
	PointsPerLine    []string
	CashPerLine      []string
	WalletUpdated    bool
	LedgerLogged     bool
	MerchantNotified bool
	BrokerNotified   bool
	ConfirmScheduled bool
	// NextSweepDate is set for batched mode when the sweep day parses.
	NextSweepDate time.Time
}

// Orchestrator sequences allocation, persistence, wallet debiting, ledger
// logging, and notifications for one basket submission at a time.
type Orchestrator struct {
	orders        store.OrderStore
	merchants     store.MerchantStore
	wallet        *wallet.Client
	ledger        *ledger.Client
	dispatcher    *notify.Dispatcher
	scheduler     *StageScheduler
	checker       *SubmissionChecker
	defaultBroker string
	log           *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewOrchestrator creates an Orchestrator wired with the given dependencies.
func NewOrchestrator(
	orders store.OrderStore,
	merchants store.MerchantStore,
	walletClient *wallet.Client,
	ledgerClient *ledger.Client,
	dispatcher *notify.Dispatcher,
	scheduler *StageScheduler,
	checker *SubmissionChecker,
	defaultBroker string,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		orders:        orders,
		merchants:     merchants,
		wallet:        walletClient,
		ledger:        ledgerClient,
		dispatcher:    dispatcher,
		scheduler:     scheduler,
		checker:       checker,
		defaultBroker: defaultBroker,
		log:           log,
		now:           time.Now,
	}
}

// SubmitBasket runs one redemption end to end and returns the confirmation
// summary. Only invalid input, allocation failure, and order-line
// persistence failure abort the submission; every later step degrades to a
// flag on the result.
func (o *Orchestrator) SubmitBasket(ctx context.Context, basket domain.Basket) (*Result, error) {
	if err := o.validate(basket); err != nil {
		return nil, err
	}

	merchant := o.lookupMerchant(ctx, basket.MerchantID)

	alloc, err := allocate.Split(basket.TotalAmount, basket.PointsUsed, len(basket.Lines), merchant.FractionalPoints)
	if err != nil {
		return nil, err
	}

	createdAt := o.now().UTC()
	basketID := domain.NewBasketID(createdAt)
	immediate := merchant.Immediate()

	// The initial status is decided once for the whole basket, before any
	// line is written.
	initialStatus := domain.OrderStatusQueued
	mode := ModeBatched
	if immediate {
		initialStatus = domain.OrderStatusPending
		mode = ModeImmediate
	}

	res := &Result{
		BasketID:      basketID,
		Mode:          mode,
		InitialStatus: initialStatus,
	}
	for i := range basket.Lines {
		res.PointsPerLine = append(res.PointsPerLine, alloc.PointsPerLine[i].String())
		res.CashPerLine = append(res.CashPerLine, alloc.CashPerLine[i].StringFixed(2))
	}

	// Stage 1: persist every line. This is the critical path; the first
	// failure aborts the submission and earlier lines stay as written.
	for i, bl := range basket.Lines {
		line := &domain.OrderLine{
			MemberID:        basket.MemberID,
			MerchantID:      basket.MerchantID,
			BasketID:        basketID,
			Symbol:          bl.Symbol,
			Shares:          bl.Shares,
			PointsAllocated: alloc.PointsPerLine[i],
			CashAllocated:   alloc.CashPerLine[i],
			OrderType:       domain.OrderTypeMarket,
			Broker:          merchant.Broker,
			Status:          initialStatus,
			SweepDay:        merchant.SweepDay,
			CreatedAt:       createdAt,
		}
		id, err := o.orders.PlaceOrderLine(ctx, line)
		if err != nil {
			o.log.Error("order line placement failed, aborting submission",
				"basket_id", basketID, "symbol", bl.Symbol, "written", i, "error", err)
			return nil, &PlacementError{Symbol: bl.Symbol, Err: err}
		}
		res.OrderIDs = append(res.OrderIDs, id)
	}

	res.WalletUpdated = o.updateWallet(ctx, basket, merchant.FractionalPoints)
	res.LedgerLogged = o.appendLedger(ctx, basket, basketID, merchant.Broker, createdAt)
	res.MerchantNotified = o.dispatcher.NotifyMerchant(ctx, notify.MerchantEvent{
		MemberID:        basket.MemberID,
		MerchantID:      basket.MerchantID,
		PointsRedeemed:  basket.PointsUsed,
		CashValue:       basket.TotalAmount,
		BasketID:        basketID,
		TransactionType: domain.TxTypeRedeemPoints,
		Timestamp:       createdAt,
	})

	if immediate {
		event := o.brokerEvent(basket, basketID, merchant.Broker, alloc, createdAt)
		res.BrokerNotified = o.runAcknowledgeStage(ctx, basketID, event)
		o.scheduleConfirmStage(basketID, event)
		res.ConfirmScheduled = true
	} else if next, err := util.NextSweepDate(merchant.SweepDay, createdAt); err == nil {
		res.NextSweepDate = next
	}

	o.log.Info("basket submitted",
		"basket_id", basketID,
		"member_id", basket.MemberID,
		"mode", mode,
		"lines", len(basket.Lines),
		"wallet_updated", res.WalletUpdated,
		"ledger_logged", res.LedgerLogged)
	return res, nil
}

// validate fails fast before any side effect.
func (o *Orchestrator) validate(basket domain.Basket) error {
	if basket.MemberID == "" {
		return fmt.Errorf("%w: missing member id", ErrInvalidSubmission)
	}
	if len(basket.Lines) == 0 {
		return fmt.Errorf("%w: empty basket", ErrInvalidSubmission)
	}
	return o.checker.Check(basket)
}

// lookupMerchant resolves settlement settings. A missing merchant record
// behaves like an absent sweep day: immediate processing on the default
// broker.
func (o *Orchestrator) lookupMerchant(ctx context.Context, merchantID string) domain.Merchant {
	m, err := o.merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		o.log.Warn("merchant lookup failed, defaulting to immediate settlement",
			"merchant_id", merchantID, "error", err)
		return domain.Merchant{ID: merchantID, Broker: o.defaultBroker}
	}
	if m.Broker == "" {
		m.Broker = o.defaultBroker
	}
	return *m
}

// updateWallet reads current balances, computes the post-redemption
// balances, and writes them back. Every failure is non-fatal.
func (o *Orchestrator) updateWallet(ctx context.Context, basket domain.Basket, fractional bool) bool {
	current, err := o.wallet.FetchBalances(ctx, basket.MemberID)
	if err != nil {
		o.log.Warn("wallet fetch failed, skipping balance update",
			"member_id", basket.MemberID, "error", err)
		return false
	}

	next := wallet.PostRedemption(current, basket.PointsUsed, basket.TotalAmount, fractional)
	if err := o.wallet.ApplyDelta(ctx, next); err != nil {
		o.log.Warn("wallet update failed", "member_id", basket.MemberID, "error", err)
		return false
	}
	return true
}

// appendLedger records the redemption audit entry. Non-fatal; a false
// return tells the caller to reconcile later.
func (o *Orchestrator) appendLedger(ctx context.Context, basket domain.Basket, basketID, broker string, createdAt time.Time) bool {
	if _, err := o.ledger.RecordRedemption(ctx, basket, basketID, broker, createdAt); err != nil {
		o.log.Warn("ledger append failed", "basket_id", basketID, "error", err)
		return false
	}
	return true
}

func (o *Orchestrator) brokerEvent(basket domain.Basket, basketID, broker string, alloc allocate.Result, createdAt time.Time) notify.BrokerEvent {
	event := notify.BrokerEvent{
		EventType:  "points_redemption",
		MemberID:   basket.MemberID,
		MerchantID: basket.MerchantID,
		Broker:     broker,
		BasketID:   basketID,
		Amount:     basket.TotalAmount,
		PointsUsed: basket.PointsUsed,
		Timestamp:  createdAt,
	}
	for i, bl := range basket.Lines {
		event.Orders = append(event.Orders, notify.BrokerOrder{
			Symbol: bl.Symbol,
			Shares: bl.Shares,
			Points: alloc.PointsPerLine[i],
			Amount: alloc.CashPerLine[i],
		})
	}
	return event
}

// runAcknowledgeStage dispatches stage 2. On successful delivery the
// basket's lines move from pending to placed.
func (o *Orchestrator) runAcknowledgeStage(ctx context.Context, basketID string, event notify.BrokerEvent) bool {
	if !o.dispatcher.NotifyBroker(ctx, event, domain.StageAcknowledge) {
		return false
	}
	n, err := o.orders.AdvanceBasketStatus(ctx, basketID, domain.OrderStatusPending, domain.OrderStatusPlaced)
	if err != nil {
		o.log.Warn("advancing lines to placed failed", "basket_id", basketID, "error", err)
		return true // delivery itself succeeded
	}
	o.log.Info("basket acknowledged", "basket_id", basketID, "lines_placed", n)
	return true
}

// scheduleConfirmStage queues stage 3 on the scheduler, detached from the
// submitting request. It runs whether or not the acknowledge delivery
// succeeded; the two stages are independent.
func (o *Orchestrator) scheduleConfirmStage(basketID string, event notify.BrokerEvent) {
	o.scheduler.Schedule(basketID, func(ctx context.Context) error {
		if !o.dispatcher.NotifyBroker(ctx, event, domain.StageConfirm) {
			return fmt.Errorf("confirm delivery failed for basket %s", basketID)
		}
		if _, err := o.orders.AdvanceBasketStatus(ctx, basketID, domain.OrderStatusPlaced, domain.OrderStatusConfirmed); err != nil {
			o.log.Warn("advancing lines to confirmed failed", "basket_id", basketID, "error", err)
		}
		return nil
	})
}
