package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// TradeStore implements domain.TradeStore.
type TradeStore struct {
	q querier
}

// NewTradeStore creates a TradeStore bound to the given querier.
func NewTradeStore(q querier) *TradeStore {
	return &TradeStore{q: q}
}

const tradeSelectCols = `id, position_id, side, price, size, created_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.PositionID, &side, &t.Price, &t.Size, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = domain.TradeSide(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends a trade to the log.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (position_id, side, price, size, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.q.Exec(ctx, query,
		t.PositionID, string(t.Side), t.Price, t.Size, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade for position %s: %w", t.PositionID, err)
	}
	return nil
}

// ListByPosition returns all trades for a position in fill order.
func (s *TradeStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Trade, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE position_id = $1 ORDER BY created_at ASC, id ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for position %s: %w", positionID, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for position %s: %w", positionID, err)
	}
	return trades, nil
}

// ListBefore returns all trades recorded strictly before the cutoff, oldest
// first (used for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE created_at < $1 ORDER BY created_at ASC, id ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades before: %w", err)
	}
	return trades, nil
}

// DeleteBefore deletes trades recorded before the cutoff and returns the
// number removed.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM trades WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
