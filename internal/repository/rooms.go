// Package repository implements the durable stores for the reservation
// system: the room catalog and the reservation ledger. It uses pgx directly
// (no ORM) for transparency and performance; an in-memory implementation of
// the same contracts lives in memory.go.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomreserve/internal/model"
)

// RoomRepository handles persistence for the room catalog.
type RoomRepository struct {
	db *pgxpool.Pool
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a new room and returns it with a generated UUID.
func (r *RoomRepository) Create(ctx context.Context, req model.CreateRoomRequest) (*model.Room, error) {
	room := &model.Room{
		ID:        uuid.New().String(),
		Name:      req.Name,
		RoomType:  req.RoomType,
		Capacity:  req.Capacity,
		Slots:     req.Slots,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO rooms (id, name, room_type, capacity, slots, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.Name, room.RoomType, room.Capacity, room.Slots, room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

// List returns all rooms ordered by creation time descending.
func (r *RoomRepository) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, room_type, capacity, slots, created_at
		 FROM rooms
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.RoomType, &room.Capacity, &room.Slots, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// GetByID returns a single room or ErrRoomNotFound.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.QueryRow(ctx,
		`SELECT id, name, room_type, capacity, slots, created_at
		 FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.ID, &room.Name, &room.RoomType, &room.Capacity, &room.Slots, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// Update overwrites the room's catalog fields and returns the stored row.
// The caller (service layer) resolves partial updates into a full room value
// before this runs; edits racing an in-flight admission are acceptable — the
// admission path re-reads the catalog inside its own transaction.
func (r *RoomRepository) Update(ctx context.Context, room *model.Room) (*model.Room, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET name = $2, room_type = $3, capacity = $4, slots = $5
		 WHERE id = $1`,
		room.ID, room.Name, room.RoomType, room.Capacity, room.Slots,
	)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRoomNotFound
	}
	return room, nil
}
