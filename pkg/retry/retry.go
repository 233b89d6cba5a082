// Package retry implements the bounded fixed-delay retry policy used for
// cache refreshes: up to N attempts, fixed delay between them, and an
// immediate stop on definitive client errors (401/403/404).
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/metrics"
)

// Policy describes a bounded retry loop
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs fn until it succeeds, the attempts are exhausted, the error is
// definitive, or ctx is cancelled. The last error is returned on failure;
// definitive errors are returned as-is so callers can inspect the status.
func Do(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			logger.Warn("retrying operation",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}

		err := fn(ctx)
		if err == nil {
			metrics.RetryAttemptsTotal.WithLabelValues(operation, "success").Inc()
			return nil
		}
		lastErr = err

		if errors.IsDefinitive(err) {
			metrics.RetryAttemptsTotal.WithLabelValues(operation, "definitive").Inc()
			logger.Info("operation failed definitively, not retrying",
				zap.String("operation", operation),
				zap.Error(err),
			)
			return err
		}
		metrics.RetryAttemptsTotal.WithLabelValues(operation, "retryable").Inc()

		if attempt == p.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(errors.ErrCodeNetwork, "retry cancelled", ctx.Err())
		case <-time.After(p.Delay):
		}
	}

	return errors.Wrap(errors.ErrCodeRetryExceeded,
		fmt.Sprintf("%s failed after %d attempts", operation, p.Attempts), lastErr)
}
