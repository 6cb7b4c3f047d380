package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// LinkedOrderStore implements domain.LinkedOrderStore.
type LinkedOrderStore struct {
	q querier
}

// NewLinkedOrderStore creates a LinkedOrderStore bound to the given querier.
func NewLinkedOrderStore(q querier) *LinkedOrderStore {
	return &LinkedOrderStore{q: q}
}

const linkSelectCols = `position_id, tp_order_id, sl_order_id, order_kind, created_at, updated_at`

func scanLinkRow(row pgx.Row) (domain.LinkedOrder, error) {
	var l domain.LinkedOrder
	var kind string
	err := row.Scan(&l.PositionID, &l.TPOrderID, &l.SLOrderID, &kind, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return domain.LinkedOrder{}, err
	}
	l.Kind = domain.OrderKind(kind)
	return l, nil
}

// Upsert writes the link for a position, replacing any prior row.
func (s *LinkedOrderStore) Upsert(ctx context.Context, link domain.LinkedOrder) error {
	const query = `
		INSERT INTO linked_orders (position_id, tp_order_id, sl_order_id, order_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (position_id) DO UPDATE SET
			tp_order_id = EXCLUDED.tp_order_id,
			sl_order_id = EXCLUDED.sl_order_id,
			order_kind  = EXCLUDED.order_kind,
			updated_at  = NOW()`

	_, err := s.q.Exec(ctx, query,
		link.PositionID, link.TPOrderID, link.SLOrderID, string(link.Kind),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert linked order for position %s: %w", link.PositionID, err)
	}
	return nil
}

// GetByPosition retrieves the link for a position.
func (s *LinkedOrderStore) GetByPosition(ctx context.Context, positionID string) (domain.LinkedOrder, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+linkSelectCols+` FROM linked_orders WHERE position_id = $1`, positionID)

	l, err := scanLinkRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.LinkedOrder{}, domain.ErrNotFound
		}
		return domain.LinkedOrder{}, fmt.Errorf("postgres: get linked order for position %s: %w", positionID, err)
	}
	return l, nil
}

// FindByOrderID locates the link referencing orderID as either leg.
func (s *LinkedOrderStore) FindByOrderID(ctx context.Context, orderID string) (domain.LinkedOrder, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+linkSelectCols+` FROM linked_orders
		 WHERE tp_order_id = $1 OR sl_order_id = $1`, orderID)

	l, err := scanLinkRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.LinkedOrder{}, domain.ErrNotFound
		}
		return domain.LinkedOrder{}, fmt.Errorf("postgres: find linked order by order %s: %w", orderID, err)
	}
	return l, nil
}

// DeleteByPosition removes the link row. Returns domain.ErrNotFound when no
// row existed, which cleanup paths treat as already handled.
func (s *LinkedOrderStore) DeleteByPosition(ctx context.Context, positionID string) error {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM linked_orders WHERE position_id = $1`, positionID)
	if err != nil {
		return fmt.Errorf("postgres: delete linked order for position %s: %w", positionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExistsByPosition reports whether a link exists for the position.
func (s *LinkedOrderStore) ExistsByPosition(ctx context.Context, positionID string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM linked_orders WHERE position_id = $1)`, positionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: linked order exists for position %s: %w", positionID, err)
	}
	return exists, nil
}

// Compile-time interface check.
var _ domain.LinkedOrderStore = (*LinkedOrderStore)(nil)
