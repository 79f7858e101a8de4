package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pointstrade/internal/domain"
)

// SubmissionChecker enforces pre-placement limits on a basket, such as the
// maximum number of lines and the maximum points spent in one submission.
type SubmissionChecker struct {
	maxLines  int
	maxPoints decimal.Decimal
}

// NewSubmissionChecker creates a SubmissionChecker with the specified
// limits.
//
//   - maxLines: maximum number of basket lines per submission.
//   - maxPoints: maximum points redeemable in one submission; zero disables
//     the check.
func NewSubmissionChecker(maxLines int, maxPoints int64) *SubmissionChecker {
	return &SubmissionChecker{
		maxLines:  maxLines,
		maxPoints: decimal.NewFromInt(maxPoints),
	}
}

// Check evaluates whether the basket complies with the configured limits.
// Violations are fatal and reported as invalid submissions.
func (c *SubmissionChecker) Check(basket domain.Basket) error {
	if c.maxLines > 0 && len(basket.Lines) > c.maxLines {
		return fmt.Errorf("%w: %d lines exceeds limit of %d",
			ErrInvalidSubmission, len(basket.Lines), c.maxLines)
	}
	if c.maxPoints.IsPositive() && basket.PointsUsed.GreaterThan(c.maxPoints) {
		return fmt.Errorf("%w: %s points exceeds limit of %s",
			ErrInvalidSubmission, basket.PointsUsed, c.maxPoints)
	}
	return nil
}
