package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomreserve/internal/auth"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
)

// ReservationHandler holds the HTTP handlers for the reservation engine.
type ReservationHandler struct {
	svc *service.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// Reserve handles POST /api/reservations
// Performs a concurrency-safe admission for the authenticated caller.
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req model.ReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resv, err := h.svc.Admit(r.Context(), caller.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, repository.ErrInvalidSlot):
			writeError(w, http.StatusBadRequest, "slot is not offered by this room")
		case errors.Is(err, repository.ErrSlotFull):
			// Expected business outcome: the slot is full, not a failure.
			writeError(w, http.StatusConflict, "room capacity full for this time slot")
		case errors.Is(err, repository.ErrDuplicateReservation):
			writeError(w, http.StatusConflict, "you already hold a reservation for this slot")
		case errors.Is(err, repository.ErrBusy):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "slot is busy, retry shortly")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, resv)
}

// Cancel handles PATCH /api/reservations/{id}/cancel
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	id := chi.URLParam(r, "id")

	resv, err := h.svc.Cancel(r.Context(), caller.ID, caller.Admin, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "reservation not found")
		case errors.Is(err, repository.ErrAlreadyCancelled):
			writeError(w, http.StatusConflict, "reservation is already cancelled")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "not allowed to cancel this reservation")
		case errors.Is(err, service.ErrCancelWindowClosed):
			writeError(w, http.StatusConflict, "slot has already started, cancellation window closed")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, resv)
}

// AvailableSlots handles GET /api/rooms/{id}/available-slots?date=YYYY-MM-DD
func (h *ReservationHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")

	slots, err := h.svc.AvailableSlots(r.Context(), id, date)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, slots)
}

// ListMine handles GET /api/reservations/mine
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	views, err := h.svc.ListMine(r.Context(), caller.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}

	if views == nil {
		views = []model.ReservationView{}
	}

	writeJSON(w, http.StatusOK, views)
}

// ListAll handles GET /api/reservations (admin only).
func (h *ReservationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}

	if views == nil {
		views = []model.ReservationView{}
	}

	writeJSON(w, http.StatusOK, views)
}
