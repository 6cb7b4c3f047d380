package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// querier is the subset of pgx operations the stores need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same store code runs against
// the shared pool and inside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the entity stores bound to one querier.
type Stores struct {
	positions *PositionStore
	trades    *TradeStore
	links     *LinkedOrderStore
}

// NewStores creates a Stores bundle bound to q.
func NewStores(q querier) *Stores {
	return &Stores{
		positions: NewPositionStore(q),
		trades:    NewTradeStore(q),
		links:     NewLinkedOrderStore(q),
	}
}

func (s *Stores) Positions() domain.PositionStore { return s.positions }
func (s *Stores) Trades() domain.TradeStore       { return s.trades }
func (s *Stores) Links() domain.LinkedOrderStore  { return s.links }

// Runner implements domain.TxRunner on a pgx connection pool with retry and
// exponential backoff on transient errors.
type Runner struct {
	pool   *pgxpool.Pool
	stores *Stores
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRunner creates a Runner. A zero-valued cfg falls back to
// DefaultRetryConfig.
func NewRunner(pool *pgxpool.Pool, cfg RetryConfig, logger *slog.Logger) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &Runner{
		pool:   pool,
		stores: NewStores(pool),
		cfg:    cfg,
		logger: logger,
	}
}

// Stores returns the pool-bound store bundle for non-transactional access.
func (r *Runner) Stores() domain.Store {
	return r.stores
}

// Do runs fn against the pool-bound stores, retrying transient failures.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, s domain.Store) error) error {
	return withRetry(ctx, r.cfg, r.logger, func(ctx context.Context) error {
		return fn(ctx, r.stores)
	})
}

// InTx runs fn inside a single transaction. The body either commits as a
// whole or is rolled back; transient failures retry the entire body with
// backoff, while errors returned by fn roll back and propagate unchanged.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context, s domain.Store) error) error {
	return withRetry(ctx, r.cfg, r.logger, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("postgres: begin tx: %w", err)
		}

		if err := fn(ctx, NewStores(tx)); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				r.logger.WarnContext(ctx, "postgres: rollback failed",
					slog.String("error", rbErr.Error()))
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("postgres: commit tx: %w", err)
		}
		return nil
	})
}

// Compile-time interface check.
var _ domain.TxRunner = (*Runner)(nil)
