package domain

import "context"

// OrderKind tags which execution backend produced a set of orders. The tag is
// supplied by the executor itself, never inferred from its concrete type.
type OrderKind string

const (
	OrderKindJupiter OrderKind = "jupiter"
	OrderKindPumpFun OrderKind = "pumpfun"
	OrderKindPaper   OrderKind = "paper"
)

// OrderRequest describes a single order to be placed on the execution
// backend. Amount is expressed in the token's base units.
type OrderRequest struct {
	TokenAddress string
	Side         TradeSide
	Amount       uint64
	Price        float64
	SlippageBps  int
}

// OrderExecutor is the external order-execution backend. Implementations are
// expected to retry their own transport errors internally; callers do not
// wrap these operations in additional retry loops.
type OrderExecutor interface {
	// CreateOrder places an order and returns the backend-assigned order id.
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)

	// CancelOrder cancels an order. Cancelling an order that is already in a
	// terminal state (filled, cancelled, unknown) must not return an error.
	CancelOrder(ctx context.Context, orderID string) error

	// Kind identifies the backend for tagging persisted order links.
	Kind() OrderKind
}

// TokenMetaSource resolves token metadata needed to convert human-readable
// sizes into base units.
type TokenMetaSource interface {
	Decimals(ctx context.Context, tokenAddress string) (int, error)
}
