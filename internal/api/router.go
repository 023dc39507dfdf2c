package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/api/middleware"
	"github.com/parley-chat/parley/internal/handlers"
	"github.com/parley-chat/parley/internal/service"
	"github.com/parley-chat/parley/internal/store"
)

// NewRouter creates and configures the HTTP router. Identity arrives in
// headers set by the fronting session layer; authentication is outside
// this core.
func NewRouter(logger zerolog.Logger, st store.DataStore, rooms *service.RoomService, receipts *service.ReadReceiptService) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	h := handlers.NewHandler(st)
	rh := handlers.NewRoomHandler(h, rooms, receipts)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Get("/rooms", rh.ListRooms)
	r.Post("/rooms", rh.CreateRoom)
	r.Post("/rooms/{id}/join", rh.JoinRoom)
	r.Post("/messages/read", rh.MarkMessagesRead)

	return r
}
