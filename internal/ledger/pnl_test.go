package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

func TestCalculatePNL(t *testing.T) {
	tests := []struct {
		name         string
		pos          domain.Position
		currentPrice float64
		wantUSD      float64
		wantPercent  float64
	}{
		{
			name:         "gain",
			pos:          domain.Position{EntryPrice: 0.50, Size: 100},
			currentPrice: 0.75,
			wantUSD:      25,
			wantPercent:  50,
		},
		{
			name:         "loss",
			pos:          domain.Position{EntryPrice: 0.50, Size: 100},
			currentPrice: 0.40,
			wantUSD:      -10,
			wantPercent:  -20,
		},
		{
			name:         "flat",
			pos:          domain.Position{EntryPrice: 0.50, Size: 100},
			currentPrice: 0.50,
		},
		{
			name:         "zero entry price",
			pos:          domain.Position{EntryPrice: 0, Size: 100},
			currentPrice: 0.50,
		},
		{
			name:         "zero size",
			pos:          domain.Position{EntryPrice: 0.50, Size: 0},
			currentPrice: 0.75,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pnl := CalculatePNL(tt.pos, tt.currentPrice)
			assert.InDelta(t, tt.wantUSD, pnl.USD, 1e-9)
			assert.InDelta(t, tt.wantPercent, pnl.Percent, 1e-9)
		})
	}
}
