package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parley-chat/parley/internal/store"
)

// Handler contains shared dependencies for the HTTP observability
// surface.
type Handler struct {
	store store.DataStore
}

// NewHandler creates a new Handler backed by the given store.
func NewHandler(st store.DataStore) *Handler {
	return &Handler{store: st}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
