package domain

import (
	"context"
	"io"
	"time"
)

// PositionStore persists positions.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Update(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	GetByUserToken(ctx context.Context, userID, tokenAddress string) (Position, error)
	// GetByUserTokenForUpdate locks the row for the remainder of the
	// enclosing transaction so concurrent trades on one pair serialize.
	// Outside a transaction it behaves like GetByUserToken.
	GetByUserTokenForUpdate(ctx context.Context, userID, tokenAddress string) (Position, error)
	// ListOpenByUser returns only positions with open size.
	ListOpenByUser(ctx context.Context, userID string) ([]Position, error)
}

// TradeStore persists the append-only trade log.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByPosition(ctx context.Context, positionID string) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// LinkedOrderStore persists TP/SL order links.
type LinkedOrderStore interface {
	// Upsert replaces any prior link for the same position.
	Upsert(ctx context.Context, link LinkedOrder) error
	GetByPosition(ctx context.Context, positionID string) (LinkedOrder, error)
	// FindByOrderID locates the link referencing orderID as either leg.
	FindByOrderID(ctx context.Context, orderID string) (LinkedOrder, error)
	// DeleteByPosition removes the link, returning ErrNotFound when no row
	// existed (callers treat that as already handled).
	DeleteByPosition(ctx context.Context, positionID string) error
	ExistsByPosition(ctx context.Context, positionID string) (bool, error)
}

// Store bundles the entity stores bound to one execution scope (either the
// shared pool or a single transaction).
type Store interface {
	Positions() PositionStore
	Trades() TradeStore
	Links() LinkedOrderStore
}

// TxRunner executes store operations with automatic retry on transient
// infrastructure errors.
type TxRunner interface {
	// Do runs fn against the shared scope with retry. Each statement commits
	// independently.
	Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error

	// InTx runs fn inside a single transaction: every statement commits
	// together or the whole body is rolled back. Transient failures retry
	// the entire body; errors returned by fn propagate unchanged after an
	// explicit rollback.
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// EventBus publishes lifecycle events for monitoring consumers. Publish is
// ephemeral fan-out; StreamAppend is durable and ordered.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
