// Package ledger maintains the off-chain record of positions and the trade
// stream that feeds them.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// Service owns the Position/Trade aggregate: it computes the running
// weighted-average entry price and open size from recorded fills, and
// enforces that a user can never sell more than they hold.
type Service struct {
	db     domain.TxRunner
	bus    domain.EventBus
	logger *slog.Logger
}

// New creates a ledger Service. bus may be nil when no event fan-out is
// configured.
func New(db domain.TxRunner, bus domain.EventBus, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With(slog.String("component", "ledger")),
	}
}

// RecordTrade applies one fill to the (userID, tokenAddress) position and
// appends the trade row, atomically. The position row is locked for the
// duration of the transaction so concurrent fills on the same pair serialize
// at the store.
//
// A BUY on an unknown pair opens a fresh position; a SELL on an unknown or
// settled pair fails with domain.ErrNoPositionToSell, and a SELL larger than
// the open size fails with *domain.InsufficientPositionError, leaving all
// state unchanged.
func (s *Service) RecordTrade(ctx context.Context, userID, tokenAddress string, side domain.TradeSide, price, size float64) (domain.Position, error) {
	if size <= 0 {
		return domain.Position{}, fmt.Errorf("ledger: record trade: %w", domain.ErrInvalidTradeSize)
	}

	var updated domain.Position
	err := s.db.InTx(ctx, func(ctx context.Context, st domain.Store) error {
		now := time.Now().UTC()

		pos, err := st.Positions().GetByUserTokenForUpdate(ctx, userID, tokenAddress)
		created := false
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if side == domain.TradeSideSell {
				return domain.ErrNoPositionToSell
			}
			pos = domain.Position{
				ID:           uuid.New().String(),
				UserID:       userID,
				TokenAddress: tokenAddress,
				CreatedAt:    now,
			}
			created = true
		case err != nil:
			return err
		}

		switch side {
		case domain.TradeSideBuy:
			newSize := pos.Size + size
			pos.EntryPrice = (pos.EntryPrice*pos.Size + price*size) / newSize
			pos.Size = newSize

		case domain.TradeSideSell:
			// A retained zero-size row is "no open position", same as an
			// absent one.
			if pos.Size <= domain.SizeEpsilon {
				return domain.ErrNoPositionToSell
			}
			newSize := pos.Size - size
			if newSize < -domain.SizeEpsilon {
				return &domain.InsufficientPositionError{
					Requested: size,
					Available: pos.Size,
				}
			}
			if math.Abs(newSize) < domain.SizeEpsilon {
				newSize = 0
			}
			pos.Size = newSize
			if newSize == 0 {
				pos.EntryPrice = 0
			}

		default:
			return fmt.Errorf("ledger: unknown trade side %q", side)
		}

		if created {
			if err := st.Positions().Create(ctx, pos); err != nil {
				return err
			}
		} else {
			if err := st.Positions().Update(ctx, pos); err != nil {
				return err
			}
		}

		if err := st.Trades().Insert(ctx, domain.Trade{
			PositionID: pos.ID,
			Side:       side,
			Price:      price,
			Size:       size,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		updated = pos
		return nil
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("ledger: record trade: %w", err)
	}

	s.publish(ctx, "trade_recorded", map[string]any{
		"position_id": updated.ID,
		"user_id":     updated.UserID,
		"token":       updated.TokenAddress,
		"side":        string(side),
		"price":       price,
		"size":        size,
		"entry_price": updated.EntryPrice,
		"open_size":   updated.Size,
	})

	s.logger.InfoContext(ctx, "ledger: trade recorded",
		slog.String("position_id", updated.ID),
		slog.String("side", string(side)),
		slog.Float64("price", price),
		slog.Float64("size", size),
		slog.Float64("open_size", updated.Size),
	)

	return updated, nil
}

// GetPosition returns the position for a pair only while it has open size;
// settled rows report domain.ErrNotFound.
func (s *Service) GetPosition(ctx context.Context, userID, tokenAddress string) (domain.Position, error) {
	var pos domain.Position
	err := s.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		p, err := st.Positions().GetByUserToken(ctx, userID, tokenAddress)
		if err != nil {
			return err
		}
		pos = p
		return nil
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("ledger: get position %s/%s: %w", userID, tokenAddress, err)
	}
	if !pos.IsOpen() {
		return domain.Position{}, fmt.Errorf("ledger: get position %s/%s: %w", userID, tokenAddress, domain.ErrNotFound)
	}
	return pos, nil
}

// GetAllUserPositions returns every open position for the user.
func (s *Service) GetAllUserPositions(ctx context.Context, userID string) ([]domain.Position, error) {
	var positions []domain.Position
	err := s.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		ps, err := st.Positions().ListOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		positions = ps
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: list positions for %s: %w", userID, err)
	}
	return positions, nil
}

// GetTrades returns the fill history of a position, oldest first.
func (s *Service) GetTrades(ctx context.Context, positionID string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := s.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		ts, err := st.Trades().ListByPosition(ctx, positionID)
		if err != nil {
			return err
		}
		trades = ts
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: list trades for position %s: %w", positionID, err)
	}
	return trades, nil
}

// publish sends a lifecycle event; failures are logged, never surfaced.
func (s *Service) publish(ctx context.Context, event string, detail map[string]any) {
	if s.bus == nil {
		return
	}
	detail["event"] = event
	payload, _ := json.Marshal(detail)
	if err := s.bus.Publish(ctx, "positions", payload); err != nil {
		s.logger.WarnContext(ctx, "ledger: publish event failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, "stream:positions", payload); err != nil {
		s.logger.WarnContext(ctx, "ledger: stream append failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
