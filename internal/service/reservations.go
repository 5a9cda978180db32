package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// ErrForbidden is returned when the caller is neither the reservation's
// requester nor an administrator. Never retried.
var ErrForbidden = errors.New("not allowed to cancel this reservation")

// ErrCancelWindowClosed is returned when the slot's start time has passed
// and the cancellation cutoff is in force.
var ErrCancelWindowClosed = errors.New("slot has already started, cancellation window closed")

// dateLayout is the calendar-date wire format. Dates are otherwise opaque
// strings with no time-zone semantics.
const dateLayout = "2006-01-02"

// ReservationStore is the ledger persistence contract. Satisfied by
// repository.ReservationRepository and repository.MemoryStore.
type ReservationStore interface {
	Admit(ctx context.Context, p repository.AdmitParams) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	SlotCounts(ctx context.Context, roomID, date string) (map[string]int, error)
	ListByRequester(ctx context.Context, requesterID string) ([]model.ReservationView, error)
	ListAll(ctx context.Context) ([]model.ReservationView, error)
}

// Policy holds the configurable business rules of the reservation engine.
type Policy struct {
	// AllowMultiplePerRequester permits one requester to hold several
	// confirmed reservations for the same tuple. Defaults to true, matching
	// the historical behavior, though most deployments will want it off.
	AllowMultiplePerRequester bool

	// EnforceCancelCutoff re-validates server-side that a reservation's slot
	// has not started yet before allowing a non-admin cancellation. The
	// display layer applies the same rule, but only this check cannot be
	// bypassed by a crafted request.
	EnforceCancelCutoff bool
}

// DefaultPolicy matches the historical application behavior.
func DefaultPolicy() Policy {
	return Policy{AllowMultiplePerRequester: true, EnforceCancelCutoff: true}
}

// ReservationService orchestrates admission, availability, cancellation, and
// the listing projections.
type ReservationService struct {
	rooms  RoomStore
	ledger ReservationStore
	policy Policy
	now    func() time.Time
}

// NewReservationService constructs a ReservationService with its
// dependencies.
func NewReservationService(rooms RoomStore, ledger ReservationStore, policy Policy) *ReservationService {
	return &ReservationService{
		rooms:  rooms,
		ledger: ledger,
		policy: policy,
		now:    time.Now,
	}
}

// Admit validates the request shape and delegates the concurrency-safe
// admission to the ledger. Room existence, slot membership, the capacity
// check, and the per-requester policy are all evaluated inside the ledger's
// atomic section; a failed admission leaves no record.
func (s *ReservationService) Admit(ctx context.Context, requesterID string, req model.ReserveRequest) (*model.Reservation, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("requester id is required")
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.Date = strings.TrimSpace(req.Date)
	req.Slot = strings.TrimSpace(req.Slot)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid reservation request: %w", err)
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("date must be formatted %s", dateLayout)
	}

	resv, err := s.ledger.Admit(ctx, repository.AdmitParams{
		RoomID:        req.RoomID,
		Date:          req.Date,
		Slot:          req.Slot,
		RequesterID:   requesterID,
		AllowMultiple: s.policy.AllowMultiplePerRequester,
	})
	if err != nil {
		// Surface domain errors directly so handlers can set correct HTTP
		// status.
		if errors.Is(err, repository.ErrRoomNotFound) ||
			errors.Is(err, repository.ErrInvalidSlot) ||
			errors.Is(err, repository.ErrSlotFull) ||
			errors.Is(err, repository.ErrDuplicateReservation) ||
			errors.Is(err, repository.ErrBusy) {
			return nil, err
		}
		return nil, fmt.Errorf("admit reservation: %w", err)
	}
	return resv, nil
}

// AvailableSlots returns the room's catalog slots whose confirmed count for
// the date is below the room's capacity, in catalog order. Pure read; it
// reflects the most recently committed admission or cancellation because it
// reads the same store the admission path writes.
func (s *ReservationService) AvailableSlots(ctx context.Context, roomID, date string) ([]string, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("date must be formatted %s", dateLayout)
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	counts, err := s.ledger.SlotCounts(ctx, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("slot counts: %w", err)
	}

	available := make([]string, 0, len(room.Slots))
	for _, slot := range room.Slots {
		if counts[slot] < room.Capacity {
			available = append(available, slot)
		}
	}
	return available, nil
}

// Cancel transitions a reservation to Cancelled on behalf of callerID. Only
// the original requester or an administrator may cancel; non-admins are also
// held to the cancellation cutoff when the policy enforces it. The freed
// capacity unit is visible to Admit and AvailableSlots as soon as Cancel
// returns.
func (s *ReservationService) Cancel(ctx context.Context, callerID string, admin bool, reservationID string) (*model.Reservation, error) {
	if reservationID == "" {
		return nil, fmt.Errorf("reservation id is required")
	}

	resv, err := s.ledger.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !admin && resv.RequesterID != callerID {
		return nil, ErrForbidden
	}
	if !admin && s.policy.EnforceCancelCutoff {
		if start, ok := slotStart(resv.Date, resv.Slot); ok && !s.now().Before(start) {
			return nil, ErrCancelWindowClosed
		}
	}

	cancelled, err := s.ledger.Cancel(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	return cancelled, nil
}

// ListMine returns the caller's reservations, most recent first.
func (s *ReservationService) ListMine(ctx context.Context, requesterID string) ([]model.ReservationView, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("requester id is required")
	}
	return s.ledger.ListByRequester(ctx, requesterID)
}

// ListAll returns every reservation, most recent first. The handler layer
// restricts this to administrators.
func (s *ReservationService) ListAll(ctx context.Context) ([]model.ReservationView, error) {
	return s.ledger.ListAll(ctx)
}

// slotStart resolves the wall-clock start of a slot like "09:00-10:00" on
// the given date, in server-local time. Labels that don't carry a parseable
// HH:MM prefix are exempt from the cutoff (ok == false).
func slotStart(date, slot string) (time.Time, bool) {
	start, _, found := strings.Cut(slot, "-")
	if !found {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout+" 15:04", date+" "+strings.TrimSpace(start), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
