package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
	"github.com/Vegass027/50-daily-baby-sub002/internal/tpsl"
)

type fakeLedger struct {
	position  domain.Position
	positions []domain.Position
	trades    []domain.Trade
	err       error

	recorded []recordTradeRequest
}

func (f *fakeLedger) GetPosition(_ context.Context, userID, tokenAddress string) (domain.Position, error) {
	if f.err != nil {
		return domain.Position{}, f.err
	}
	return f.position, nil
}

func (f *fakeLedger) GetAllUserPositions(_ context.Context, userID string) ([]domain.Position, error) {
	return f.positions, f.err
}

func (f *fakeLedger) GetTrades(_ context.Context, positionID string) ([]domain.Trade, error) {
	return f.trades, f.err
}

func (f *fakeLedger) RecordTrade(_ context.Context, userID, tokenAddress string, side domain.TradeSide, price, size float64) (domain.Position, error) {
	if f.err != nil {
		return domain.Position{}, f.err
	}
	f.recorded = append(f.recorded, recordTradeRequest{
		UserID:       userID,
		TokenAddress: tokenAddress,
		Side:         string(side),
		Price:        price,
		Size:         size,
	})
	return f.position, nil
}

type fakeTPSL struct {
	result    tpsl.Result
	active    bool
	err       error
	cancelled []string
	fills     []string
}

func (f *fakeTPSL) CreateTPSLOrders(_ context.Context, pos domain.Position, p tpsl.Params) (tpsl.Result, error) {
	return f.result, f.err
}

func (f *fakeTPSL) CancelRelatedOrders(_ context.Context, positionID string) error {
	f.cancelled = append(f.cancelled, positionID)
	return f.err
}

func (f *fakeTPSL) HasActiveOrders(_ context.Context, positionID string) (bool, error) {
	return f.active, f.err
}

func (f *fakeTPSL) OnOrderFilled(_ context.Context, orderID string) error {
	f.fills = append(f.fills, orderID)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testPosition() domain.Position {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	return domain.Position{
		ID:           "pos-1",
		UserID:       "u1",
		TokenAddress: "mint1",
		EntryPrice:   0.50,
		Size:         100,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newMux(ledger *fakeLedger, orders *fakeTPSL) *http.ServeMux {
	positions := NewPositionHandler(ledger, testLogger())
	trades := NewTradeHandler(ledger, testLogger())
	tpslH := NewTPSLHandler(ledger, orders, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/{user_id}/positions", positions.ListPositions)
	mux.HandleFunc("GET /api/users/{user_id}/positions/{token}", positions.GetPosition)
	mux.HandleFunc("GET /api/positions/{position_id}/trades", positions.ListTrades)
	mux.HandleFunc("POST /api/trades", trades.RecordTrade)
	mux.HandleFunc("POST /api/tpsl", tpslH.CreateTPSL)
	mux.HandleFunc("GET /api/positions/{position_id}/tpsl", tpslH.GetTPSL)
	mux.HandleFunc("DELETE /api/positions/{position_id}/tpsl", tpslH.CancelTPSL)
	mux.HandleFunc("POST /api/fills", tpslH.NotifyFill)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetPosition(t *testing.T) {
	mux := newMux(&fakeLedger{position: testPosition()}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodGet, "/api/users/u1/positions/mint1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pos-1", resp.ID)
	assert.InDelta(t, 0.50, resp.EntryPrice, 1e-9)
	assert.Nil(t, resp.PNL)
}

func TestGetPositionWithMarkPrice(t *testing.T) {
	mux := newMux(&fakeLedger{position: testPosition()}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodGet, "/api/users/u1/positions/mint1?mark_price=0.75", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.PNL)
	assert.InDelta(t, 25, resp.PNL.USD, 1e-9)
	assert.InDelta(t, 50, resp.PNL.Percent, 1e-9)
}

func TestGetPositionBadMarkPrice(t *testing.T) {
	mux := newMux(&fakeLedger{position: testPosition()}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodGet, "/api/users/u1/positions/mint1?mark_price=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPositionNotFound(t *testing.T) {
	mux := newMux(&fakeLedger{err: domain.ErrNotFound}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodGet, "/api/users/u1/positions/mint1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPositions(t *testing.T) {
	mux := newMux(&fakeLedger{positions: []domain.Position{testPosition()}}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodGet, "/api/users/u1/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Positions []positionResponse `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 1)
	assert.Equal(t, "pos-1", resp.Positions[0].ID)
}

func TestRecordTrade(t *testing.T) {
	ledger := &fakeLedger{position: testPosition()}
	mux := newMux(ledger, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodPost, "/api/trades",
		`{"user_id":"u1","token_address":"mint1","side":"buy","price":0.5,"size":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "buy", ledger.recorded[0].Side)
	assert.InDelta(t, 100, ledger.recorded[0].Size, 1e-9)
}

func TestRecordTradeValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown field", `{"user_id":"u1","token_address":"m","side":"buy","price":1,"size":1,"bogus":true}`},
		{"missing user", `{"token_address":"m","side":"buy","price":1,"size":1}`},
		{"bad side", `{"user_id":"u1","token_address":"m","side":"hold","price":1,"size":1}`},
		{"bad price", `{"user_id":"u1","token_address":"m","side":"buy","price":0,"size":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(&fakeLedger{}, &fakeTPSL{})
			rec := doRequest(t, mux, http.MethodPost, "/api/trades", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRecordTradeBusinessErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no position", domain.ErrNoPositionToSell, http.StatusConflict},
		{"oversell", &domain.InsufficientPositionError{Requested: 20, Available: 10}, http.StatusConflict},
		{"invalid size", domain.ErrInvalidTradeSize, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(&fakeLedger{err: tt.err}, &fakeTPSL{})
			rec := doRequest(t, mux, http.MethodPost, "/api/trades",
				`{"user_id":"u1","token_address":"m","side":"sell","price":1,"size":20}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCreateTPSL(t *testing.T) {
	orders := &fakeTPSL{result: tpsl.Result{
		TPOrderID: "tp-1", TPPrice: 0.75,
		SLOrderID: "sl-1", SLPrice: 0.40,
	}}
	mux := newMux(&fakeLedger{position: testPosition()}, orders)

	rec := doRequest(t, mux, http.MethodPost, "/api/tpsl",
		`{"user_id":"u1","token_address":"mint1","tp_percent":50,"sl_percent":20}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createTPSLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pos-1", resp.PositionID)
	assert.Equal(t, "tp-1", resp.TPOrderID)
	assert.Equal(t, "sl-1", resp.SLOrderID)
}

func TestCreateTPSLValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative tp price", `{"user_id":"u1","token_address":"mint1","tp_price":-0.5}`},
		{"negative sl percent", `{"user_id":"u1","token_address":"mint1","sl_percent":-20}`},
		{"sl percent at 100", `{"user_id":"u1","token_address":"mint1","sl_percent":100}`},
		{"sl percent above 100", `{"user_id":"u1","token_address":"mint1","sl_percent":150}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(&fakeLedger{position: testPosition()}, &fakeTPSL{})
			rec := doRequest(t, mux, http.MethodPost, "/api/tpsl", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateTPSLNoPosition(t *testing.T) {
	mux := newMux(&fakeLedger{err: domain.ErrNotFound}, &fakeTPSL{})

	rec := doRequest(t, mux, http.MethodPost, "/api/tpsl",
		`{"user_id":"u1","token_address":"mint1","tp_percent":50}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTPSLBackendFailure(t *testing.T) {
	orders := &fakeTPSL{err: &domain.TPSLCreationError{PositionID: "pos-1"}}
	mux := newMux(&fakeLedger{position: testPosition()}, orders)

	rec := doRequest(t, mux, http.MethodPost, "/api/tpsl",
		`{"user_id":"u1","token_address":"mint1","tp_percent":50}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetTPSL(t *testing.T) {
	mux := newMux(&fakeLedger{}, &fakeTPSL{active: true})

	rec := doRequest(t, mux, http.MethodGet, "/api/positions/pos-1/tpsl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":true`)
}

func TestCancelTPSL(t *testing.T) {
	orders := &fakeTPSL{}
	mux := newMux(&fakeLedger{}, orders)

	rec := doRequest(t, mux, http.MethodDelete, "/api/positions/pos-1/tpsl", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"pos-1"}, orders.cancelled)
}

func TestNotifyFill(t *testing.T) {
	orders := &fakeTPSL{}
	mux := newMux(&fakeLedger{}, orders)

	rec := doRequest(t, mux, http.MethodPost, "/api/fills", `{"order_id":"ord-1"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"ord-1"}, orders.fills)

	rec = doRequest(t, mux, http.MethodPost, "/api/fills", `{"order_id":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
