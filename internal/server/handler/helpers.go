// Package handler contains the HTTP handlers for the trading API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// writeJSON marshals v and writes it with the given status code. A marshal
// failure falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps ledger business errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var insuff *domain.InsufficientPositionError
	switch {
	case errors.Is(err, domain.ErrInvalidTradeSize):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoPositionToSell):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insuff):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient position",
			"requested": insuff.Requested,
			"available": insuff.Available,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
