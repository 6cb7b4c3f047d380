// Package tpsl coordinates paired take-profit/stop-loss sell orders against
// open positions. Orders live on an external execution backend that cannot
// commit atomically with the database, so setup uses best-effort
// compensation: legs already placed are cancelled when a later step fails.
package tpsl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

const (
	// DefaultTokenDecimals is assumed when token metadata is unavailable.
	DefaultTokenDecimals = 9

	// DefaultSlippageBps is the slippage tolerance for protective orders.
	DefaultSlippageBps = 250
)

// Params selects the target prices for the two legs. A fixed price takes
// priority over its percent counterpart; zero means unset. Percent targets
// are derived from the position's entry price.
type Params struct {
	TPPrice   float64
	TPPercent float64
	SLPrice   float64
	SLPercent float64
}

// Result reports the orders created by CreateTPSLOrders. Unplaced legs have
// empty ids and zero prices.
type Result struct {
	TPOrderID string
	TPPrice   float64
	SLOrderID string
	SLPrice   float64
}

// Coordinator creates, links, and tears down TP/SL order pairs. Fill
// reconciliation is single-flight per order id: concurrent duplicate
// notifications share one execution, and cross-process duplicates are
// absorbed because the second cleanup finds nothing to do.
type Coordinator struct {
	db     domain.TxRunner
	exec   domain.OrderExecutor
	meta   domain.TokenMetaSource
	bus    domain.EventBus
	logger *slog.Logger
	flight singleflight.Group
}

// New creates a Coordinator. bus may be nil when no event fan-out is
// configured.
func New(db domain.TxRunner, exec domain.OrderExecutor, meta domain.TokenMetaSource, bus domain.EventBus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		db:     db,
		exec:   exec,
		meta:   meta,
		bus:    bus,
		logger: logger.With(slog.String("component", "tpsl")),
	}
}

// resolvePrice picks the target for one leg: fixed price wins, otherwise the
// percent offset from entry (positive direction for TP, negative for SL). A
// percent offset that lands at or below zero (a stop of 100% or more) cannot
// be priced and leaves the leg unresolved.
func resolvePrice(fixed, percent, entryPrice, direction float64) float64 {
	if fixed > 0 {
		return fixed
	}
	if percent > 0 {
		if target := entryPrice * (1 + direction*percent/100); target > 0 {
			return target
		}
	}
	return 0
}

// baseUnits converts a human-readable size to the token's integer base units.
func baseUnits(size float64, decimals int) uint64 {
	return uint64(math.Round(size * math.Pow10(decimals)))
}

// CreateTPSLOrders places sell orders for each resolved leg, then persists
// the link in one transaction, replacing any prior link for the position.
// When neither leg resolves it is a no-op. On any failure after a leg was
// placed, placed legs are cancelled best-effort and a single
// *domain.TPSLCreationError is returned.
func (c *Coordinator) CreateTPSLOrders(ctx context.Context, pos domain.Position, p Params) (Result, error) {
	tpPrice := resolvePrice(p.TPPrice, p.TPPercent, pos.EntryPrice, +1)
	slPrice := resolvePrice(p.SLPrice, p.SLPercent, pos.EntryPrice, -1)
	if tpPrice == 0 && slPrice == 0 {
		return Result{}, nil
	}

	decimals, err := c.meta.Decimals(ctx, pos.TokenAddress)
	if err != nil {
		c.logger.WarnContext(ctx, "tpsl: token decimals lookup failed, using default",
			slog.String("token", pos.TokenAddress),
			slog.Int("default", DefaultTokenDecimals),
			slog.String("error", err.Error()),
		)
		decimals = DefaultTokenDecimals
	}
	amount := baseUnits(pos.Size, decimals)

	res := Result{TPPrice: tpPrice, SLPrice: slPrice}
	var placed []string

	fail := func(cause error) (Result, error) {
		c.cancelPlaced(ctx, placed)
		return Result{}, &domain.TPSLCreationError{PositionID: pos.ID, Cause: cause}
	}

	if tpPrice > 0 {
		orderID, err := c.exec.CreateOrder(ctx, domain.OrderRequest{
			TokenAddress: pos.TokenAddress,
			Side:         domain.TradeSideSell,
			Amount:       amount,
			Price:        tpPrice,
			SlippageBps:  DefaultSlippageBps,
		})
		if err != nil {
			return fail(fmt.Errorf("create take-profit order: %w", err))
		}
		res.TPOrderID = orderID
		placed = append(placed, orderID)
	}

	if slPrice > 0 {
		orderID, err := c.exec.CreateOrder(ctx, domain.OrderRequest{
			TokenAddress: pos.TokenAddress,
			Side:         domain.TradeSideSell,
			Amount:       amount,
			Price:        slPrice,
			SlippageBps:  DefaultSlippageBps,
		})
		if err != nil {
			return fail(fmt.Errorf("create stop-loss order: %w", err))
		}
		res.SLOrderID = orderID
		placed = append(placed, orderID)
	}

	link := domain.LinkedOrder{
		PositionID: pos.ID,
		Kind:       c.exec.Kind(),
	}
	if res.TPOrderID != "" {
		link.TPOrderID = &res.TPOrderID
	}
	if res.SLOrderID != "" {
		link.SLOrderID = &res.SLOrderID
	}

	err = c.db.InTx(ctx, func(ctx context.Context, st domain.Store) error {
		return st.Links().Upsert(ctx, link)
	})
	if err != nil {
		return fail(fmt.Errorf("persist order link: %w", err))
	}

	c.publish(ctx, "tpsl_created", map[string]any{
		"position_id": pos.ID,
		"tp_order_id": res.TPOrderID,
		"tp_price":    tpPrice,
		"sl_order_id": res.SLOrderID,
		"sl_price":    slPrice,
		"kind":        string(link.Kind),
	})

	c.logger.InfoContext(ctx, "tpsl: orders created",
		slog.String("position_id", pos.ID),
		slog.String("tp_order_id", res.TPOrderID),
		slog.Float64("tp_price", tpPrice),
		slog.String("sl_order_id", res.SLOrderID),
		slog.Float64("sl_price", slPrice),
	)

	return res, nil
}

// OnOrderFilled reconciles a fill notification: cancel the sibling leg and
// remove the link. Duplicate concurrent notifications for the same order id
// await the in-flight reconciliation instead of starting another; the
// in-flight marker is dropped once it settles either way.
func (c *Coordinator) OnOrderFilled(ctx context.Context, orderID string) error {
	_, err, _ := c.flight.Do(orderID, func() (any, error) {
		return nil, c.reconcileFill(ctx, orderID)
	})
	return err
}

func (c *Coordinator) reconcileFill(ctx context.Context, orderID string) error {
	var link domain.LinkedOrder
	err := c.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		l, err := st.Links().FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		link = l
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		// Not part of a TP/SL pair, or another worker already cleaned up.
		c.logger.DebugContext(ctx, "tpsl: filled order has no link",
			slog.String("order_id", orderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("tpsl: lookup link for order %s: %w", orderID, err)
	}

	if opposite := link.Opposite(orderID); opposite != nil {
		if err := c.exec.CancelOrder(ctx, *opposite); err != nil {
			// Cancellation is best-effort: the backend tolerates cancels on
			// terminal orders, so a failure here never aborts the cleanup.
			c.logger.WarnContext(ctx, "tpsl: cancel opposite leg failed",
				slog.String("filled_order_id", orderID),
				slog.String("opposite_order_id", *opposite),
				slog.String("error", err.Error()),
			)
		}
	}

	err = c.db.InTx(ctx, func(ctx context.Context, st domain.Store) error {
		return st.Links().DeleteByPosition(ctx, link.PositionID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("tpsl: delete link for position %s: %w", link.PositionID, err)
	}

	c.publish(ctx, "tpsl_cleaned", map[string]any{
		"position_id":     link.PositionID,
		"filled_order_id": orderID,
	})

	c.logger.InfoContext(ctx, "tpsl: fill reconciled",
		slog.String("position_id", link.PositionID),
		slog.String("filled_order_id", orderID),
	)
	return nil
}

// CancelRelatedOrders best-effort-cancels both legs of a position's link and
// removes the row. Each cancellation is attempted independently; a missing
// link is a no-op.
func (c *Coordinator) CancelRelatedOrders(ctx context.Context, positionID string) error {
	var link domain.LinkedOrder
	err := c.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		l, err := st.Links().GetByPosition(ctx, positionID)
		if err != nil {
			return err
		}
		link = l
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tpsl: lookup link for position %s: %w", positionID, err)
	}

	for _, leg := range []*string{link.TPOrderID, link.SLOrderID} {
		if leg == nil {
			continue
		}
		if err := c.exec.CancelOrder(ctx, *leg); err != nil {
			c.logger.WarnContext(ctx, "tpsl: cancel leg failed",
				slog.String("position_id", positionID),
				slog.String("order_id", *leg),
				slog.String("error", err.Error()),
			)
		}
	}

	err = c.db.InTx(ctx, func(ctx context.Context, st domain.Store) error {
		return st.Links().DeleteByPosition(ctx, positionID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("tpsl: delete link for position %s: %w", positionID, err)
	}

	c.publish(ctx, "tpsl_cancelled", map[string]any{
		"position_id": positionID,
	})
	return nil
}

// HasActiveOrders reports whether the position has a live TP/SL link.
func (c *Coordinator) HasActiveOrders(ctx context.Context, positionID string) (bool, error) {
	var exists bool
	err := c.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		ok, err := st.Links().ExistsByPosition(ctx, positionID)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("tpsl: check active orders for position %s: %w", positionID, err)
	}
	return exists, nil
}

// cancelPlaced undoes already-placed legs after a setup failure. Failures
// are logged only; they never mask the primary error.
func (c *Coordinator) cancelPlaced(ctx context.Context, orderIDs []string) {
	for _, id := range orderIDs {
		if err := c.exec.CancelOrder(ctx, id); err != nil {
			c.logger.ErrorContext(ctx, "tpsl: compensation cancel failed",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// publish sends a lifecycle event; failures are logged, never surfaced.
func (c *Coordinator) publish(ctx context.Context, event string, detail map[string]any) {
	if c.bus == nil {
		return
	}
	detail["event"] = event
	payload, _ := json.Marshal(detail)
	if err := c.bus.Publish(ctx, "orders", payload); err != nil {
		c.logger.WarnContext(ctx, "tpsl: publish event failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
	if err := c.bus.StreamAppend(ctx, "stream:orders", payload); err != nil {
		c.logger.WarnContext(ctx, "tpsl: stream append failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
