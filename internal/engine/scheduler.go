package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// StageScheduler runs the delayed broker-confirm stage. Each task fires
// after a fixed delay on its own goroutine with exponential-backoff retries,
// detached from the request that scheduled it. Closing the scheduler
// cancels pending tasks; skipped confirms are safe because pending and
// placed lines stay valid for reconciliation.
type StageScheduler struct {
	delay      time.Duration
	maxRetries uint
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStageScheduler creates a scheduler firing tasks after delay, retrying
// each up to maxRetries times.
func NewStageScheduler(delay time.Duration, maxRetries int, log *slog.Logger) *StageScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &StageScheduler{
		delay:      delay,
		maxRetries: uint(maxRetries),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Schedule queues a task to run after the configured delay. The basket id
// is only used for logging.
func (s *StageScheduler) Schedule(basketID string, task func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			s.log.Info("scheduled stage cancelled", "basket_id", basketID)
			return
		case <-timer.C:
		}

		_, err := backoff.Retry(s.ctx, func() (struct{}, error) {
			return struct{}{}, task(s.ctx)
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(s.maxRetries))
		if err != nil {
			s.log.Warn("scheduled stage gave up", "basket_id", basketID, "error", err)
			return
		}
		s.log.Info("scheduled stage completed", "basket_id", basketID)
	}()
}

// Close cancels pending tasks and waits for running ones to finish.
func (s *StageScheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
