package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
	"github.com/Vegass027/50-daily-baby-sub002/internal/ledger"
)

// PositionService is the slice of the ledger the position handler needs.
type PositionService interface {
	GetPosition(ctx context.Context, userID, tokenAddress string) (domain.Position, error)
	GetAllUserPositions(ctx context.Context, userID string) ([]domain.Position, error)
	GetTrades(ctx context.Context, positionID string) ([]domain.Trade, error)
}

// PositionHandler serves position and trade-history endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

type pnlResponse struct {
	USD     float64 `json:"usd"`
	Percent float64 `json:"percent"`
}

type positionResponse struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	TokenAddress string       `json:"token_address"`
	EntryPrice   float64      `json:"entry_price"`
	Size         float64      `json:"size"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	PNL          *pnlResponse `json:"pnl,omitempty"`
}

func toPositionResponse(p domain.Position) positionResponse {
	return positionResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		TokenAddress: p.TokenAddress,
		EntryPrice:   p.EntryPrice,
		Size:         p.Size,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ListPositions returns all open positions for a user.
// GET /api/users/{user_id}/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	positions, err := h.positions.GetAllUserPositions(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out})
}

// GetPosition returns the open position for one (user, token) pair. When a
// mark_price query parameter is given the response includes unrealized PNL.
// GET /api/users/{user_id}/positions/{token}?mark_price=0.75
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	token := r.PathValue("token")

	pos, err := h.positions.GetPosition(r.Context(), userID, token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := toPositionResponse(pos)
	if v := r.URL.Query().Get("mark_price"); v != "" {
		mark, err := strconv.ParseFloat(v, 64)
		if err != nil || mark <= 0 {
			writeError(w, http.StatusBadRequest, "mark_price must be a positive number")
			return
		}
		pnl := ledger.CalculatePNL(pos, mark)
		resp.PNL = &pnlResponse{USD: pnl.USD, Percent: pnl.Percent}
	}
	writeJSON(w, http.StatusOK, resp)
}

type tradeResponse struct {
	ID         int64     `json:"id"`
	PositionID string    `json:"position_id"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListTrades returns the trade history of a position.
// GET /api/positions/{position_id}/trades
func (h *PositionHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("position_id")

	trades, err := h.positions.GetTrades(r.Context(), positionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeResponse{
			ID:         t.ID,
			PositionID: t.PositionID,
			Side:       string(t.Side),
			Price:      t.Price,
			Size:       t.Size,
			CreatedAt:  t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": out})
}
