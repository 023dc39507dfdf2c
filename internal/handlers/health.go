package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string           `json:"status"` // "healthy" or "degraded"
	Version      string           `json:"version"`
	Checks       map[string]Check `json:"checks"`
	LastActivity string           `json:"last_activity,omitempty"`
	Timestamp    string           `json:"timestamp"`
}

// Health handles the health check endpoint: store connectivity with
// latency, plus the creation time of the newest room as a
// last-activity marker.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	dbStart := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		checks["database"] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks["database"] = Check{Status: "pass", Latency: time.Since(dbStart).String()}
	}

	var lastActivity string
	if allHealthy {
		if last, err := h.store.MostRecentRoomCreatedAt(ctx); err == nil && last != nil {
			lastActivity = last.UTC().Format(time.RFC3339)
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:       status,
		Version:      version,
		Checks:       checks,
		LastActivity: lastActivity,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "parley",
		Version: version,
	})
}
