package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
	"github.com/Vegass027/50-daily-baby-sub002/internal/tpsl"
)

// TPSLService manages protective order pairs for positions.
type TPSLService interface {
	CreateTPSLOrders(ctx context.Context, pos domain.Position, p tpsl.Params) (tpsl.Result, error)
	CancelRelatedOrders(ctx context.Context, positionID string) error
	HasActiveOrders(ctx context.Context, positionID string) (bool, error)
	OnOrderFilled(ctx context.Context, orderID string) error
}

// TPSLHandler serves the TP/SL lifecycle endpoints.
type TPSLHandler struct {
	positions PositionService
	orders    TPSLService
	logger    *slog.Logger
}

// NewTPSLHandler creates a TPSLHandler.
func NewTPSLHandler(positions PositionService, orders TPSLService, logger *slog.Logger) *TPSLHandler {
	return &TPSLHandler{positions: positions, orders: orders, logger: logger}
}

type createTPSLRequest struct {
	UserID       string  `json:"user_id"`
	TokenAddress string  `json:"token_address"`
	TPPrice      float64 `json:"tp_price"`
	TPPercent    float64 `json:"tp_percent"`
	SLPrice      float64 `json:"sl_price"`
	SLPercent    float64 `json:"sl_percent"`
}

type createTPSLResponse struct {
	PositionID string  `json:"position_id"`
	TPOrderID  string  `json:"tp_order_id,omitempty"`
	TPPrice    float64 `json:"tp_price,omitempty"`
	SLOrderID  string  `json:"sl_order_id,omitempty"`
	SLPrice    float64 `json:"sl_price,omitempty"`
}

// CreateTPSL places TP/SL orders for the user's open position on a token.
// POST /api/tpsl
func (h *TPSLHandler) CreateTPSL(w http.ResponseWriter, r *http.Request) {
	var req createTPSLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.TokenAddress == "" {
		writeError(w, http.StatusBadRequest, "user_id and token_address are required")
		return
	}
	if req.TPPrice < 0 || req.SLPrice < 0 || req.TPPercent < 0 || req.SLPercent < 0 {
		writeError(w, http.StatusBadRequest, "prices and percents must be non-negative")
		return
	}
	// A stop of 100% or more would target a price at or below zero.
	if req.SLPercent >= 100 {
		writeError(w, http.StatusBadRequest, "sl_percent must be below 100")
		return
	}

	pos, err := h.positions.GetPosition(r.Context(), req.UserID, req.TokenAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.orders.CreateTPSLOrders(r.Context(), pos, tpsl.Params{
		TPPrice:   req.TPPrice,
		TPPercent: req.TPPercent,
		SLPrice:   req.SLPrice,
		SLPercent: req.SLPercent,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create tp/sl failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "tp/sl order creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, createTPSLResponse{
		PositionID: pos.ID,
		TPOrderID:  res.TPOrderID,
		TPPrice:    res.TPPrice,
		SLOrderID:  res.SLOrderID,
		SLPrice:    res.SLPrice,
	})
}

// GetTPSL reports whether a position has a live TP/SL pair.
// GET /api/positions/{position_id}/tpsl
func (h *TPSLHandler) GetTPSL(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("position_id")

	active, err := h.orders.HasActiveOrders(r.Context(), positionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check tp/sl state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"position_id": positionID,
		"active":      active,
	})
}

// CancelTPSL tears down both legs of a position's TP/SL pair.
// DELETE /api/positions/{position_id}/tpsl
func (h *TPSLHandler) CancelTPSL(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("position_id")

	if err := h.orders.CancelRelatedOrders(r.Context(), positionID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel tp/sl orders")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fillRequest struct {
	OrderID string `json:"order_id"`
}

// NotifyFill reconciles a fill notification delivered over HTTP instead of
// the WebSocket feed.
// POST /api/fills
func (h *TPSLHandler) NotifyFill(w http.ResponseWriter, r *http.Request) {
	var req fillRequest
	if err := decodeJSON(r, &req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	if err := h.orders.OnOrderFilled(r.Context(), req.OrderID); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: fill reconciliation failed",
			slog.String("order_id", req.OrderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "fill reconciliation failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
