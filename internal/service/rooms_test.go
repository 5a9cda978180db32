package service

import (
	"context"
	"errors"
	"testing"

	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

func validRoomRequest() model.CreateRoomRequest {
	return model.CreateRoomRequest{
		Name:     "Study Room A",
		RoomType: "Study Room",
		Capacity: 4,
		Slots:    []string{"09:00-10:00", "10:00-11:00"},
	}
}

func TestCreateRoomValidation(t *testing.T) {
	svc := NewRoomService(repository.NewMemoryStore(0))
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, validRoomRequest())
	if err != nil {
		t.Fatalf("valid room rejected: %v", err)
	}
	if room.ID == "" {
		t.Fatal("room has no id")
	}

	mutate := []struct {
		name string
		fn   func(*model.CreateRoomRequest)
	}{
		{"empty name", func(r *model.CreateRoomRequest) { r.Name = "  " }},
		{"empty type", func(r *model.CreateRoomRequest) { r.RoomType = "" }},
		{"zero capacity", func(r *model.CreateRoomRequest) { r.Capacity = 0 }},
		{"negative capacity", func(r *model.CreateRoomRequest) { r.Capacity = -1 }},
		{"huge capacity", func(r *model.CreateRoomRequest) { r.Capacity = 10_000 }},
		{"no slots", func(r *model.CreateRoomRequest) { r.Slots = nil }},
		{"duplicate slots", func(r *model.CreateRoomRequest) { r.Slots = []string{"09:00-10:00", "09:00-10:00"} }},
		{"blank slot", func(r *model.CreateRoomRequest) { r.Slots = []string{"09:00-10:00", "  "} }},
	}
	for _, tc := range mutate {
		t.Run(tc.name, func(t *testing.T) {
			req := validRoomRequest()
			tc.fn(&req)
			if _, err := svc.CreateRoom(ctx, req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestUpdateRoomPartial(t *testing.T) {
	store := repository.NewMemoryStore(0)
	svc := NewRoomService(store)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, validRoomRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	capacity := 10
	updated, err := svc.UpdateRoom(ctx, room.ID, model.UpdateRoomRequest{Capacity: &capacity})
	if err != nil {
		t.Fatalf("update capacity: %v", err)
	}
	if updated.Capacity != 10 {
		t.Fatalf("capacity = %d, want 10", updated.Capacity)
	}
	if updated.Name != room.Name || len(updated.Slots) != len(room.Slots) {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	slots := []string{"14:00-15:00"}
	updated, err = svc.UpdateRoom(ctx, room.ID, model.UpdateRoomRequest{Slots: &slots})
	if err != nil {
		t.Fatalf("update slots: %v", err)
	}
	if len(updated.Slots) != 1 || updated.Slots[0] != "14:00-15:00" {
		t.Fatalf("slots = %v", updated.Slots)
	}

	bad := 0
	if _, err := svc.UpdateRoom(ctx, room.ID, model.UpdateRoomRequest{Capacity: &bad}); err == nil {
		t.Fatal("expected validation error for zero capacity")
	}

	if _, err := svc.UpdateRoom(ctx, "missing", model.UpdateRoomRequest{Capacity: &capacity}); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}

func TestGetRoom(t *testing.T) {
	svc := NewRoomService(repository.NewMemoryStore(0))
	ctx := context.Background()

	if _, err := svc.GetRoom(ctx, ""); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := svc.GetRoom(ctx, "missing"); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}
