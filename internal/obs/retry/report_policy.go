package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ReportPolicy governs the poller's result posts back to the API. A result
// that never lands leaves its monitor in-progress until the sweeper reclaims
// it, so posting is worth a few attempts.
func ReportPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "report_result",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("report retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("report retries exhausted", zap.Error(err))
			}
		},
	}
}
