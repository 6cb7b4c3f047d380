package domain

import "time"

// TradeSide indicates whether a fill increased or decreased the position.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an immutable fill record contributing to a position's running
// totals. Trades are append-only and owned by the position that created them.
type Trade struct {
	ID         int64
	PositionID string
	Side       TradeSide
	Price      float64
	Size       float64
	CreatedAt  time.Time
}
