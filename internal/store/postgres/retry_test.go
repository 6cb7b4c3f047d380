package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfigDelay(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.delay(2))
	assert.Equal(t, 200*time.Millisecond, cfg.delay(3))
	assert.Equal(t, 400*time.Millisecond, cfg.delay(4))
	assert.Equal(t, 800*time.Millisecond, cfg.delay(5))
	// Capped from here on.
	assert.Equal(t, 1*time.Second, cfg.delay(6))
	assert.Equal(t, 1*time.Second, cfg.delay(10))
}

func TestRetryConfigDelayInitialAboveCap(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}
	assert.Equal(t, 1*time.Second, cfg.delay(2))
}

func TestTransientSQLState(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"08000", true}, // connection_exception
		{"08006", true}, // connection_failure
		{"53300", true}, // too_many_connections
		{"53200", true}, // out_of_memory
		{"40001", true}, // serialization_failure
		{"40P01", true}, // deadlock_detected
		{"23505", false}, // unique_violation
		{"23503", false}, // foreign_key_violation
		{"42601", false}, // syntax_error
		{"22P02", false}, // invalid_text_representation
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transientSQLState(tt.code), "code %s", tt.code)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"wrapped pg error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "53300"}), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("down")}, true},
		{"plain error", errors.New("business rule violated"), false},
		{"context canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(5), nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	transient := &pgconn.PgError{Code: "08006"}
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(4), nil, func(context.Context) error {
		attempts++
		return transient
	})
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 4, attempts)
}

func TestWithRetryNonTransientFailsFast(t *testing.T) {
	permanent := &pgconn.PgError{Code: "23505"}
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(5), nil, func(context.Context) error {
		attempts++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryBusinessErrorPassthrough(t *testing.T) {
	sentinel := errors.New("insufficient position")
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(5), nil, func(context.Context) error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, fastRetryConfig(5), nil, func(context.Context) error {
		attempts++
		cancel()
		return &pgconn.PgError{Code: "08006"}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
