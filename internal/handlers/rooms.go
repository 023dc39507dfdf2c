package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/service"
)

// Identity headers injected by the fronting session layer.
// Authentication itself happens outside this core.
const (
	headerUserEmail = "X-User-Email"
	headerUserID    = "X-User-Id"
)

// RoomHandler adapts the room and read-receipt services to HTTP.
type RoomHandler struct {
	*Handler
	rooms    *service.RoomService
	receipts *service.ReadReceiptService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(base *Handler, rooms *service.RoomService, receipts *service.ReadReceiptService) *RoomHandler {
	return &RoomHandler{Handler: base, rooms: rooms, receipts: receipts}
}

// ListRooms handles the paginated room listing.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := models.PageRequest{
		Page:      atoiOr(query.Get("page"), 0),
		PageSize:  atoiOr(query.Get("page_size"), 0),
		SortField: query.Get("sort_field"),
		SortOrder: query.Get("sort_order"),
		Search:    query.Get("search"),
	}

	list, err := h.rooms.ListRooms(r.Context(), req, r.Header.Get(headerUserEmail))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	h.JSON(w, http.StatusOK, list)
}

// CreateRoom handles room creation.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get(headerUserEmail)
	if actor == "" {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	var req service.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), req, actor)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			h.Error(w, http.StatusUnauthorized, "unknown user")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.JSON(w, http.StatusCreated, room)
}

// joinRequest carries the optional room password.
type joinRequest struct {
	Password string `json:"password,omitempty"`
}

// JoinRoom handles joining a room.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get(headerUserEmail)
	if actor == "" {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	roomID := chi.URLParam(r, "id")

	var req joinRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	room, err := h.rooms.JoinRoom(r.Context(), roomID, req.Password, actor)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRoomNotFound):
			h.Error(w, http.StatusNotFound, "room not found")
		case errors.Is(err, models.ErrWrongPassword):
			h.Error(w, http.StatusForbidden, "wrong password")
		case errors.Is(err, models.ErrUserNotFound):
			h.Error(w, http.StatusUnauthorized, "unknown user")
		default:
			h.Error(w, http.StatusInternalServerError, "failed to join room")
		}
		return
	}

	h.JSON(w, http.StatusOK, room)
}

// markReadRequest carries the message IDs to mark as read.
type markReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// MarkMessagesRead handles the bulk read-receipt update. Always
// responds 204: read receipts are best-effort and never fail the
// caller.
func (h *RoomHandler) MarkMessagesRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.receipts.MarkMessagesRead(r.Context(), req.MessageIDs, userID)
	w.WriteHeader(http.StatusNoContent)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
