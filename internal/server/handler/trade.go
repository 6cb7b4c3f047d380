package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// TradeService records fills into the ledger.
type TradeService interface {
	RecordTrade(ctx context.Context, userID, tokenAddress string, side domain.TradeSide, price, size float64) (domain.Position, error)
}

// TradeHandler serves the trade-recording endpoint.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

type recordTradeRequest struct {
	UserID       string  `json:"user_id"`
	TokenAddress string  `json:"token_address"`
	Side         string  `json:"side"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
}

// RecordTrade applies one fill to the user's position and returns the
// updated position.
// POST /api/trades
func (h *TradeHandler) RecordTrade(w http.ResponseWriter, r *http.Request) {
	var req recordTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.TokenAddress == "" {
		writeError(w, http.StatusBadRequest, "user_id and token_address are required")
		return
	}

	var side domain.TradeSide
	switch req.Side {
	case string(domain.TradeSideBuy):
		side = domain.TradeSideBuy
	case string(domain.TradeSideSell):
		side = domain.TradeSideSell
	default:
		writeError(w, http.StatusBadRequest, `side must be "buy" or "sell"`)
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	pos, err := h.trades.RecordTrade(r.Context(), req.UserID, req.TokenAddress, side, req.Price, req.Size)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: record trade rejected",
			slog.String("user_id", req.UserID),
			slog.String("token", req.TokenAddress),
			slog.String("side", req.Side),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPositionResponse(pos))
}
