package util

import (
	"fmt"
	"strconv"
	"time"
)

// NextSweepDate returns the next batch settlement date for a day-of-month
// sweep day, strictly after t. Sweep days are capped at 28 so every month
// has the configured day. Immediate sweep values ("" or "T+1") are not
// valid inputs here; callers decide the processing mode first.
func NextSweepDate(sweepDay string, t time.Time) (time.Time, error) {
	day, err := strconv.Atoi(sweepDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing sweep day %q: %w", sweepDay, err)
	}
	if day < 1 || day > 28 {
		return time.Time{}, fmt.Errorf("sweep day %d out of range 1-28", day)
	}

	next := time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 1, 0)
	}
	return next, nil
}
