// Package exec provides order-execution backends. The paper executor keeps
// orders in memory for local runs and tests; real backends live behind the
// same domain.OrderExecutor interface.
package exec

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

type paperOrderStatus string

const (
	paperOrderOpen      paperOrderStatus = "open"
	paperOrderCancelled paperOrderStatus = "cancelled"
	paperOrderFilled    paperOrderStatus = "filled"
)

type paperOrder struct {
	req    domain.OrderRequest
	status paperOrderStatus
}

// PaperExecutor is an in-memory domain.OrderExecutor and
// domain.TokenMetaSource for paper-trading mode. It is safe for concurrent
// use.
type PaperExecutor struct {
	mu       sync.Mutex
	orders   map[string]*paperOrder
	decimals map[string]int
}

// NewPaperExecutor creates an empty PaperExecutor.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{
		orders:   make(map[string]*paperOrder),
		decimals: make(map[string]int),
	}
}

// CreateOrder records the order and returns a generated id.
func (p *PaperExecutor) CreateOrder(_ context.Context, req domain.OrderRequest) (string, error) {
	if req.Amount == 0 {
		return "", fmt.Errorf("paper: order amount must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New().String()
	p.orders[id] = &paperOrder{req: req, status: paperOrderOpen}
	return id, nil
}

// CancelOrder marks an open order cancelled. Cancelling an unknown or
// terminal order is a no-op, matching the backend contract.
func (p *PaperExecutor) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok || o.status != paperOrderOpen {
		return nil
	}
	o.status = paperOrderCancelled
	return nil
}

// Kind identifies the backend for order-link tagging.
func (p *PaperExecutor) Kind() domain.OrderKind {
	return domain.OrderKindPaper
}

// Decimals returns the registered precision for a token, or the ledger
// default when the token is unknown.
func (p *PaperExecutor) Decimals(_ context.Context, tokenAddress string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.decimals[tokenAddress]; ok {
		return d, nil
	}
	return 9, nil
}

// SetDecimals registers a token precision.
func (p *PaperExecutor) SetDecimals(tokenAddress string, decimals int) {
	p.mu.Lock()
	p.decimals[tokenAddress] = decimals
	p.mu.Unlock()
}

// MarkFilled transitions an open order to filled. Used by paper-mode
// simulations driving fill notifications.
func (p *PaperExecutor) MarkFilled(orderID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok || o.status != paperOrderOpen {
		return false
	}
	o.status = paperOrderFilled
	return true
}

// OpenOrders returns the ids of all open orders.
func (p *PaperExecutor) OpenOrders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []string
	for id, o := range p.orders {
		if o.status == paperOrderOpen {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsCancelled reports whether the order is in the cancelled state.
func (p *PaperExecutor) IsCancelled(orderID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	return ok && o.status == paperOrderCancelled
}

// Compile-time interface checks.
var (
	_ domain.OrderExecutor   = (*PaperExecutor)(nil)
	_ domain.TokenMetaSource = (*PaperExecutor)(nil)
)
