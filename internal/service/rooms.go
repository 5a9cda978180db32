// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the store layer.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"roomreserve/internal/model"
)

// validate checks the struct tags on request payloads.
var validate = validator.New()

// RoomStore is the catalog persistence contract. Satisfied by
// repository.RoomRepository and repository.MemoryStore.
type RoomStore interface {
	Create(ctx context.Context, req model.CreateRoomRequest) (*model.Room, error)
	List(ctx context.Context) ([]model.Room, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) (*model.Room, error)
}

// RoomService orchestrates room-catalog operations. Authorization (admin
// only for writes) is enforced at the handler layer; the service assumes a
// pre-authorized caller.
type RoomService struct {
	rooms RoomStore
}

// NewRoomService constructs a RoomService.
func NewRoomService(rooms RoomStore) *RoomService {
	return &RoomService{rooms: rooms}
}

// CreateRoom validates the request and delegates to the store.
func (s *RoomService) CreateRoom(ctx context.Context, req model.CreateRoomRequest) (*model.Room, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RoomType = strings.TrimSpace(req.RoomType)
	for i, slot := range req.Slots {
		req.Slots[i] = strings.TrimSpace(slot)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid room: %w", err)
	}
	return s.rooms.Create(ctx, req)
}

// ListRooms returns all rooms.
func (s *RoomService) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.rooms.List(ctx)
}

// GetRoom returns a single room by ID.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, fmt.Errorf("room id is required")
	}
	return s.rooms.GetByID(ctx, id)
}

// UpdateRoom applies a partial catalog edit: nil request fields keep the
// stored value. The merged result is validated through the same rules as
// room creation. An edit racing an in-flight admission may leave that one
// admission on the previous slot list; the capacity ceiling itself is always
// re-read inside the admission transaction.
func (s *RoomService) UpdateRoom(ctx context.Context, id string, req model.UpdateRoomRequest) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.RoomType != nil {
		room.RoomType = strings.TrimSpace(*req.RoomType)
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Slots != nil {
		room.Slots = append([]string(nil), (*req.Slots)...)
		for i, slot := range room.Slots {
			room.Slots[i] = strings.TrimSpace(slot)
		}
	}
	merged := model.CreateRoomRequest{
		Name:     room.Name,
		RoomType: room.RoomType,
		Capacity: room.Capacity,
		Slots:    room.Slots,
	}
	if err := validate.Struct(merged); err != nil {
		return nil, fmt.Errorf("invalid room update: %w", err)
	}

	updated, err := s.rooms.Update(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	return updated, nil
}
