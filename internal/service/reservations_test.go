package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

func newFixture(t *testing.T, policy Policy) (*ReservationService, *repository.MemoryStore, *model.Room) {
	t.Helper()
	store := repository.NewMemoryStore(0)
	room, err := store.Create(context.Background(), model.CreateRoomRequest{
		Name:     "Study Room A",
		RoomType: "Study Room",
		Capacity: 2,
		Slots:    []string{"09:00-10:00", "10:00-11:00"},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return NewReservationService(store, store, policy), store, room
}

func reserve(roomID, slot string) model.ReserveRequest {
	return model.ReserveRequest{RoomID: roomID, Date: "2099-06-01", Slot: slot}
}

func TestAdmitValidation(t *testing.T) {
	svc, _, room := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	cases := []struct {
		name string
		id   string
		req  model.ReserveRequest
	}{
		{"empty requester", "", reserve(room.ID, "09:00-10:00")},
		{"missing room", "user-1", model.ReserveRequest{Date: "2099-06-01", Slot: "09:00-10:00"}},
		{"missing date", "user-1", model.ReserveRequest{RoomID: room.ID, Slot: "09:00-10:00"}},
		{"bad date format", "user-1", model.ReserveRequest{RoomID: room.ID, Date: "01/06/2099", Slot: "09:00-10:00"}},
		{"missing slot", "user-1", model.ReserveRequest{RoomID: room.ID, Date: "2099-06-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Admit(ctx, tc.id, tc.req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	// Domain errors surface unwrapped so handlers can map status codes.
	if _, err := svc.Admit(ctx, "user-1", reserve(room.ID, "13:00-14:00")); !errors.Is(err, repository.ErrInvalidSlot) {
		t.Fatalf("got %v, want ErrInvalidSlot", err)
	}
	if _, err := svc.Admit(ctx, "user-1", reserve("missing", "09:00-10:00")); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}

// Availability mirrors the ledger exactly: a slot leaves the list when it
// reaches capacity and returns once a reservation is cancelled, always in
// catalog order.
func TestAvailableSlotsReflectLedger(t *testing.T) {
	svc, _, room := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, room.ID, "2099-06-01")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 || slots[0] != "09:00-10:00" || slots[1] != "10:00-11:00" {
		t.Fatalf("fresh availability = %v", slots)
	}

	// Fill 09:00-10:00 (capacity 2).
	first, err := svc.Admit(ctx, "user-1", reserve(room.ID, "09:00-10:00"))
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := svc.Admit(ctx, "user-2", reserve(room.ID, "09:00-10:00")); err != nil {
		t.Fatalf("admit: %v", err)
	}

	slots, err = svc.AvailableSlots(ctx, room.ID, "2099-06-01")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 1 || slots[0] != "10:00-11:00" {
		t.Fatalf("availability with one slot full = %v, want [10:00-11:00]", slots)
	}

	// Another date is unaffected.
	slots, err = svc.AvailableSlots(ctx, room.ID, "2099-06-02")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("availability on other date = %v, want both slots", slots)
	}

	// Cancelling one brings the slot back.
	if _, err := svc.Cancel(ctx, "user-1", false, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	slots, err = svc.AvailableSlots(ctx, room.ID, "2099-06-01")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 || slots[0] != "09:00-10:00" {
		t.Fatalf("availability after cancel = %v, want both slots in catalog order", slots)
	}
}

func TestAvailableSlotsValidation(t *testing.T) {
	svc, _, room := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	if _, err := svc.AvailableSlots(ctx, "missing", "2099-06-01"); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
	if _, err := svc.AvailableSlots(ctx, room.ID, "June 1st"); err == nil {
		t.Fatal("expected date format error")
	}
}

// Only the requester or an admin may cancel.
func TestCancelAuthorization(t *testing.T) {
	svc, _, room := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	resv, err := svc.Admit(ctx, "user-1", reserve(room.ID, "09:00-10:00"))
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	if _, err := svc.Cancel(ctx, "user-2", false, resv.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Cancel(ctx, "admin-1", true, resv.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if _, err := svc.Cancel(ctx, "user-1", false, resv.ID); !errors.Is(err, repository.ErrAlreadyCancelled) {
		t.Fatalf("owner re-cancel: got %v, want ErrAlreadyCancelled", err)
	}
	if _, err := svc.Cancel(ctx, "user-1", false, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// With the cutoff enforced, a non-admin cannot cancel once the slot has
// started; admins and unparsable slot labels are exempt.
func TestCancelCutoff(t *testing.T) {
	svc, store, room := newFixture(t, Policy{AllowMultiplePerRequester: true, EnforceCancelCutoff: true})
	ctx := context.Background()

	date := "2026-03-10"
	resv, err := svc.Admit(ctx, "user-1", model.ReserveRequest{RoomID: room.ID, Date: date, Slot: "09:00-10:00"})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	at := func(clock string) func() time.Time {
		ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
		if err != nil {
			t.Fatalf("parse clock: %v", err)
		}
		return func() time.Time { return ts }
	}

	svc.now = at("09:30")
	if _, err := svc.Cancel(ctx, "user-1", false, resv.ID); !errors.Is(err, ErrCancelWindowClosed) {
		t.Fatalf("cancel after start: got %v, want ErrCancelWindowClosed", err)
	}

	// An admin is not bound by the cutoff.
	if _, err := svc.Cancel(ctx, "admin-1", true, resv.ID); err != nil {
		t.Fatalf("admin cancel after start: %v", err)
	}

	// Before the start, the owner may cancel.
	resv2, err := svc.Admit(ctx, "user-1", model.ReserveRequest{RoomID: room.ID, Date: date, Slot: "10:00-11:00"})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	svc.now = at("09:59")
	if _, err := svc.Cancel(ctx, "user-1", false, resv2.ID); err != nil {
		t.Fatalf("cancel before start: %v", err)
	}

	// A slot label without a time prefix is exempt from the cutoff.
	freeform, err := store.Update(ctx, &model.Room{
		ID: room.ID, Name: room.Name, RoomType: room.RoomType, Capacity: room.Capacity,
		Slots: []string{"all-day"},
	})
	if err != nil {
		t.Fatalf("update room: %v", err)
	}
	resv3, err := svc.Admit(ctx, "user-1", model.ReserveRequest{RoomID: freeform.ID, Date: date, Slot: "all-day"})
	if err != nil {
		t.Fatalf("admit freeform slot: %v", err)
	}
	svc.now = at("23:00")
	if _, err := svc.Cancel(ctx, "user-1", false, resv3.ID); err != nil {
		t.Fatalf("cancel freeform slot: %v", err)
	}
}

// The per-requester policy flows through to the ledger.
func TestAdmitDuplicatePolicyPassthrough(t *testing.T) {
	svc, _, room := newFixture(t, Policy{AllowMultiplePerRequester: false, EnforceCancelCutoff: false})
	ctx := context.Background()

	if _, err := svc.Admit(ctx, "user-1", reserve(room.ID, "09:00-10:00")); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if _, err := svc.Admit(ctx, "user-1", reserve(room.ID, "09:00-10:00")); !errors.Is(err, repository.ErrDuplicateReservation) {
		t.Fatalf("got %v, want ErrDuplicateReservation", err)
	}
	// A different slot is fine.
	if _, err := svc.Admit(ctx, "user-1", reserve(room.ID, "10:00-11:00")); err != nil {
		t.Fatalf("other slot: %v", err)
	}
}

func TestListMineRequiresRequester(t *testing.T) {
	svc, _, _ := newFixture(t, DefaultPolicy())
	if _, err := svc.ListMine(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty requester id")
	}
}
