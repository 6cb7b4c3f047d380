package postgres

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryConfig controls the retry/backoff policy for store operations.
// Attempt 1 runs immediately; attempt n waits
// InitialDelay * Multiplier^(n-2), capped at MaxDelay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// delay returns the backoff before retry attempt n (n >= 2).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 2; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// Transient SQLSTATE codes: connection exceptions (class 08), insufficient
// resources (class 53), and serialization/deadlock conflicts that resolve on
// replay.
func transientSQLState(code string) bool {
	if strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") {
		return true
	}
	switch code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

// isTransient classifies an error as retryable infrastructure failure.
// Constraint violations, syntax errors, and business errors returned from a
// transaction body are never transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// withRetry runs op up to cfg.MaxAttempts times, sleeping the configured
// backoff between attempts. Non-transient errors propagate immediately;
// exhaustion returns the last observed error.
func withRetry(ctx context.Context, cfg RetryConfig, logger *slog.Logger, op func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.delay(attempt)):
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if logger != nil && attempt < cfg.MaxAttempts {
			logger.WarnContext(ctx, "postgres: transient error, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", cfg.MaxAttempts),
				slog.Duration("next_delay", cfg.delay(attempt+1)),
				slog.String("error", err.Error()),
			)
		}
	}
	return err
}
