package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomreserve/internal/model"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
)

// RoomHandler holds the HTTP handlers for the room catalog.
type RoomHandler struct {
	svc *service.RoomService
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{svc: svc}
}

// CreateRoom handles POST /api/rooms (admin only).
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// ListRooms handles GET /api/rooms
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if rooms == nil {
		rooms = []model.Room{}
	}

	writeJSON(w, http.StatusOK, rooms)
}

// GetRoom handles GET /api/rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	room, err := h.svc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get room")
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// UpdateRoom handles PATCH /api/rooms/{id} (admin only).
func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	room, err := h.svc.UpdateRoom(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, room)
}
