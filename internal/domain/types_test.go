package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPlaced, true},
		{OrderStatusPlaced, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusPlaced, false},
		{OrderStatusPlaced, OrderStatusPending, false},
		{OrderStatusConfirmed, OrderStatusConfirmed, false},
		{OrderStatusQueued, OrderStatusQueued, false},
		{OrderStatusPlaced, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusCancelled, OrderStatusPlaced, false},
		{OrderStatus("bogus"), OrderStatusPlaced, false},
		{OrderStatusPending, OrderStatus("bogus"), false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%q -> %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestMerchantImmediate(t *testing.T) {
	if !(Merchant{}).Immediate() {
		t.Error("merchant without sweep day should be immediate")
	}
	if !(Merchant{SweepDay: "T+1"}).Immediate() {
		t.Error(`sweep day "T+1" should be immediate`)
	}
	if (Merchant{SweepDay: "15"}).Immediate() {
		t.Error(`sweep day "15" should be batched`)
	}
	if (Merchant{SweepDay: "5"}).Immediate() {
		t.Error(`sweep day "5" should be batched`)
	}
}

func TestNewBasketID(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	a := NewBasketID(now)
	b := NewBasketID(now)

	if !strings.HasPrefix(a, "bk-20250314T092653-") {
		t.Errorf("basket id %q missing timestamp prefix", a)
	}
	if a == b {
		t.Error("two basket ids generated at the same instant should differ")
	}
}

func TestZeroValueOrderLine(t *testing.T) {
	var line OrderLine
	if line.Status != "" || line.Symbol != "" {
		t.Error("zero-value OrderLine should have empty status and symbol")
	}
	if !line.PointsAllocated.Equal(decimal.Zero) {
		t.Error("zero-value decimal should equal zero")
	}
}
