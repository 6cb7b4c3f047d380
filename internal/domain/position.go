package domain

import "time"

// SizeEpsilon absorbs floating-point drift from repeated weighted-average
// updates. Sizes within this tolerance of zero are treated as zero.
const SizeEpsilon = 1e-9

// Position is the running open-quantity / average-cost record for one
// (user, token) pair. A position whose Size has settled to zero is kept for
// audit history; query helpers treat it as "no open position".
type Position struct {
	ID           string
	UserID       string
	TokenAddress string
	EntryPrice   float64 // weighted-average cost, zero when Size is zero
	Size         float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOpen reports whether the position has any open quantity.
func (p Position) IsOpen() bool {
	return p.Size > SizeEpsilon
}

// PNL is the profit-and-loss of a position at a given mark price.
type PNL struct {
	USD     float64
	Percent float64
}
