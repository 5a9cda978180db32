// Package model defines the core domain types for the room reservation system.
package model

import "time"

// Status is the closed set of reservation states. A reservation is created
// Confirmed and may transition to Cancelled exactly once; there is no way
// back.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Room is a bookable resource. Capacity is the maximum number of concurrent
// Confirmed reservations per (room, date, slot) tuple — every slot of a room
// shares the same ceiling. Slots holds the bookable slot labels in catalog
// order, e.g. "09:00-10:00".
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomType  string    `json:"room_type"`
	Capacity  int       `json:"capacity"`
	Slots     []string  `json:"slots"`
	CreatedAt time.Time `json:"created_at"`
}

// HasSlot reports whether label is in the room's current slot catalog.
func (r *Room) HasSlot(label string) bool {
	for _, s := range r.Slots {
		if s == label {
			return true
		}
	}
	return false
}

// Reservation is one row of the reservation ledger.
type Reservation struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	RequesterID string    `json:"requester_id"`
	Date        string    `json:"date"`
	Slot        string    `json:"slot"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReservationView is the read-side projection used by the listing endpoints:
// a reservation joined with the minimal room fields needed for display.
type ReservationView struct {
	Reservation
	RoomName string `json:"room_name"`
	RoomType string `json:"room_type"`
}

// CreateRoomRequest is the payload for creating a room (admin only).
type CreateRoomRequest struct {
	Name     string   `json:"name" validate:"required"`
	RoomType string   `json:"room_type" validate:"required"`
	Capacity int      `json:"capacity" validate:"required,gt=0,lte=1000"`
	Slots    []string `json:"slots" validate:"required,min=1,unique,dive,required"`
}

// UpdateRoomRequest is the payload for editing a room's catalog fields.
// Nil fields are left unchanged; the merged result is validated with the
// CreateRoomRequest rules.
type UpdateRoomRequest struct {
	Name     *string   `json:"name"`
	RoomType *string   `json:"room_type"`
	Capacity *int      `json:"capacity"`
	Slots    *[]string `json:"slots"`
}

// ReserveRequest is the payload for requesting a reservation. The requester
// identity comes from the authenticated caller, not the body.
type ReserveRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	Date   string `json:"date" validate:"required"`
	Slot   string `json:"slot" validate:"required"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AdmissionOutcome summarises one attempt in the storm load tool.
type AdmissionOutcome struct {
	Requester string
	Admitted  bool
	Err       error
}
