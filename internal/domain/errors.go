package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidTradeSize = errors.New("trade size must be positive")
	ErrNoPositionToSell = errors.New("no open position to sell")
)

// InsufficientPositionError is returned when a sell exceeds the open size.
// It is a business-rule violation: the enclosing transaction is rolled back
// and the error is never retried.
type InsufficientPositionError struct {
	Requested float64
	Available float64
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("insufficient position: requested %v, available %v",
		e.Requested, e.Available)
}

// TPSLCreationError reports a failed take-profit/stop-loss setup after any
// already-placed legs were cancelled best-effort.
type TPSLCreationError struct {
	PositionID string
	Cause      error
}

func (e *TPSLCreationError) Error() string {
	return fmt.Sprintf("tp/sl creation failed for position %s: %v", e.PositionID, e.Cause)
}

func (e *TPSLCreationError) Unwrap() error {
	return e.Cause
}
