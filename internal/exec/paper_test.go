package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

func testOrderRequest() domain.OrderRequest {
	return domain.OrderRequest{
		TokenAddress: "mint1",
		Side:         domain.TradeSideSell,
		Amount:       1_000_000,
		Price:        0.75,
		SlippageBps:  250,
	}
}

func TestPaperCreateAndCancel(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	id, err := p.CreateOrder(ctx, testOrderRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Contains(t, p.OpenOrders(), id)

	require.NoError(t, p.CancelOrder(ctx, id))
	assert.True(t, p.IsCancelled(id))
	assert.Empty(t, p.OpenOrders())
}

func TestPaperCreateRejectsZeroAmount(t *testing.T) {
	p := NewPaperExecutor()
	req := testOrderRequest()
	req.Amount = 0

	_, err := p.CreateOrder(context.Background(), req)
	require.Error(t, err)
}

func TestPaperCancelIsIdempotent(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	// Unknown order id.
	require.NoError(t, p.CancelOrder(ctx, "does-not-exist"))

	id, err := p.CreateOrder(ctx, testOrderRequest())
	require.NoError(t, err)

	require.NoError(t, p.CancelOrder(ctx, id))
	require.NoError(t, p.CancelOrder(ctx, id))
	assert.True(t, p.IsCancelled(id))
}

func TestPaperCancelAfterFillIsNoop(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	id, err := p.CreateOrder(ctx, testOrderRequest())
	require.NoError(t, err)
	require.True(t, p.MarkFilled(id))

	require.NoError(t, p.CancelOrder(ctx, id))
	assert.False(t, p.IsCancelled(id))
}

func TestPaperMarkFilled(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	id, err := p.CreateOrder(ctx, testOrderRequest())
	require.NoError(t, err)

	assert.True(t, p.MarkFilled(id))
	assert.False(t, p.MarkFilled(id), "second fill must not transition again")
	assert.False(t, p.MarkFilled("does-not-exist"))
	assert.Empty(t, p.OpenOrders())
}

func TestPaperDecimals(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	d, err := p.Decimals(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 9, d)

	p.SetDecimals("mint1", 6)
	d, err = p.Decimals(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 6, d)
}

func TestPaperKind(t *testing.T) {
	assert.Equal(t, domain.OrderKindPaper, NewPaperExecutor().Kind())
}
