package ledger

import "github.com/Vegass027/50-daily-baby-sub002/internal/domain"

// CalculatePNL marks a position against currentPrice. It returns a zero PNL
// when the position has no entry price or no open size, so callers never see
// a division by zero.
func CalculatePNL(pos domain.Position, currentPrice float64) domain.PNL {
	if pos.EntryPrice <= 0 || pos.Size <= 0 {
		return domain.PNL{}
	}
	usd := (currentPrice - pos.EntryPrice) * pos.Size
	return domain.PNL{
		USD:     usd,
		Percent: usd / (pos.EntryPrice * pos.Size) * 100,
	}
}
