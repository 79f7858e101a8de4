// Package allocate splits a redemption's total cash amount and point count
// across the lines of a basket. Points are distributed exact-sum with the
// remainder front-loaded onto the earliest lines; cash is an even per-line
// share rounded to the cent.
package allocate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when the allocation preconditions do not hold.
var ErrInvalidInput = errors.New("invalid allocation input")

var hundred = decimal.NewFromInt(100)

// Result holds the per-line shares produced by Split. Both slices have the
// same length as the requested line count.
type Result struct {
	CashPerLine   []decimal.Decimal
	PointsPerLine []decimal.Decimal
}

// Split divides totalAmount and pointsUsed across lineCount lines.
//
// The points split is exact: the per-line shares always sum back to
// pointsUsed, to the whole point when fractional is false and to the cent
// when it is true. The cash split is the same rounded share on every line
// and is intentionally not remainder-corrected, so the cash shares may sum
// to a few cents off totalAmount for non-divisible inputs. Downstream
// reconciliation depends on this behaviour; do not correct it here.
func Split(totalAmount, pointsUsed decimal.Decimal, lineCount int, fractional bool) (Result, error) {
	if lineCount < 1 {
		return Result{}, fmt.Errorf("%w: line count %d", ErrInvalidInput, lineCount)
	}
	if totalAmount.IsNegative() {
		return Result{}, fmt.Errorf("%w: negative total amount %s", ErrInvalidInput, totalAmount)
	}
	if pointsUsed.IsNegative() {
		return Result{}, fmt.Errorf("%w: negative points %s", ErrInvalidInput, pointsUsed)
	}
	if !fractional && !pointsUsed.IsInteger() {
		return Result{}, fmt.Errorf("%w: non-integral points %s on whole-point split", ErrInvalidInput, pointsUsed)
	}

	n := decimal.NewFromInt(int64(lineCount))
	cashShare := totalAmount.Div(n).Round(2)

	res := Result{
		CashPerLine:   make([]decimal.Decimal, lineCount),
		PointsPerLine: make([]decimal.Decimal, lineCount),
	}
	for i := range res.CashPerLine {
		res.CashPerLine[i] = cashShare
	}

	if fractional {
		res.PointsPerLine = splitFractional(pointsUsed, lineCount)
	} else {
		res.PointsPerLine = splitWhole(pointsUsed, lineCount)
	}
	return res, nil
}

// splitWhole distributes an integral point count: every line gets
// floor(points/n), and the leftover points go one each to the earliest lines.
func splitWhole(points decimal.Decimal, lineCount int) []decimal.Decimal {
	total := points.IntPart()
	n := int64(lineCount)
	base := total / n
	leftover := total - base*n

	out := make([]decimal.Decimal, lineCount)
	for i := range out {
		share := base
		if int64(i) < leftover {
			share++
		}
		out[i] = decimal.NewFromInt(share)
	}
	return out
}

// splitFractional distributes a currency-like point amount tracked to the
// cent: every line gets the raw share floored to the cent, and the leftover
// whole cents go one each to the earliest lines.
func splitFractional(points decimal.Decimal, lineCount int) []decimal.Decimal {
	n := int64(lineCount)
	totalCents := points.Mul(hundred).IntPart()
	baseCents := totalCents / n
	leftover := totalCents - baseCents*n

	out := make([]decimal.Decimal, lineCount)
	for i := range out {
		cents := baseCents
		if int64(i) < leftover {
			cents++
		}
		out[i] = decimal.New(cents, -2)
	}
	return out
}
