package util

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should not block or fail: %v", err)
	}
}

func TestNextSweepDate(t *testing.T) {
	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		day  string
		want time.Time
	}{
		{"15", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"5", time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)},
		{"10", time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)}, // midnight of the 10th already passed
		{"28", time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		got, err := NextSweepDate(c.day, base)
		if err != nil {
			t.Fatalf("NextSweepDate(%q): %v", c.day, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("NextSweepDate(%q) = %v, want %v", c.day, got, c.want)
		}
	}
}

func TestNextSweepDateInvalid(t *testing.T) {
	base := time.Now()
	for _, day := range []string{"", "T+1", "0", "29", "abc"} {
		if _, err := NextSweepDate(day, base); err == nil {
			t.Errorf("NextSweepDate(%q) should fail", day)
		}
	}
}
