package repository

import "errors"

// Domain errors shared by the Postgres and in-memory stores. Services and
// handlers match on these with errors.Is; anything else is a system failure.
var (
	// ErrRoomNotFound is returned when the referenced room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotFound is returned when a requested reservation does not exist.
	ErrNotFound = errors.New("reservation not found")

	// ErrInvalidSlot is returned when the requested slot label is not in the
	// room's current catalog.
	ErrInvalidSlot = errors.New("slot is not offered by this room")

	// ErrSlotFull is returned when a (room, date, slot) tuple already holds
	// capacity confirmed reservations. Expected business outcome, not a
	// system failure.
	ErrSlotFull = errors.New("room capacity full for this time slot")

	// ErrDuplicateReservation is returned when the requester already holds a
	// confirmed reservation for the tuple and the single-reservation policy
	// is in force.
	ErrDuplicateReservation = errors.New("requester already holds this slot")

	// ErrAlreadyCancelled is returned when cancelling a reservation that is
	// already cancelled. Reported, never silently swallowed, so callers can
	// tell "cancelled now" from "nothing happened".
	ErrAlreadyCancelled = errors.New("reservation is already cancelled")

	// ErrBusy is returned when the per-tuple admission lock could not be
	// acquired within the configured wait. Retryable.
	ErrBusy = errors.New("slot is busy, retry")
)
