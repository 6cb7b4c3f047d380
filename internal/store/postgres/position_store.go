package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// PositionStore implements domain.PositionStore.
type PositionStore struct {
	q querier
}

// NewPositionStore creates a PositionStore bound to the given querier.
func NewPositionStore(q querier) *PositionStore {
	return &PositionStore{q: q}
}

const positionSelectCols = `id, user_id, token_address, entry_price, size, created_at, updated_at`

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID, &p.UserID, &p.TokenAddress,
		&p.EntryPrice, &p.Size,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// Create inserts a new position row.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (id, user_id, token_address, entry_price, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := s.q.Exec(ctx, query,
		p.ID, p.UserID, p.TokenAddress, p.EntryPrice, p.Size, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

// Update replaces the mutable fields of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			entry_price = $2,
			size        = $3,
			updated_at  = NOW()
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, p.ID, p.EntryPrice, p.Size)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single position by id.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPositionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// GetByUserToken retrieves the position for a (user, token) pair regardless
// of open size.
func (s *PositionStore) GetByUserToken(ctx context.Context, userID, tokenAddress string) (domain.Position, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE user_id = $1 AND token_address = $2`, userID, tokenAddress)

	p, err := scanPositionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s: %w", userID, tokenAddress, err)
	}
	return p, nil
}

// GetByUserTokenForUpdate locks the position row until the enclosing
// transaction ends, serializing concurrent trades on the same pair.
func (s *PositionStore) GetByUserTokenForUpdate(ctx context.Context, userID, tokenAddress string) (domain.Position, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE user_id = $1 AND token_address = $2
		 FOR UPDATE`, userID, tokenAddress)

	p, err := scanPositionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: lock position %s/%s: %w", userID, tokenAddress, err)
	}
	return p, nil
}

// ListOpenByUser returns the user's positions with open size, newest first.
// Rows whose size has settled to zero are retained for audit but excluded
// here.
func (s *PositionStore) ListOpenByUser(ctx context.Context, userID string) ([]domain.Position, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE user_id = $1 AND size > $2
		 ORDER BY created_at DESC`, userID, domain.SizeEpsilon)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.TokenAddress,
			&p.EntryPrice, &p.Size,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan open positions: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
