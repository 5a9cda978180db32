package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"roomreserve/internal/database"
	"roomreserve/internal/model"
)

// testPool connects to the database named by ROOMRESERVE_TEST_DATABASE_URL
// and applies the schema, or skips the test when the variable is unset.
// Every test creates its own rooms, so runs are independent even against a
// shared database.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("ROOMRESERVE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROOMRESERVE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

func createPGRoom(t *testing.T, rooms *RoomRepository, capacity int) *model.Room {
	t.Helper()
	room, err := rooms.Create(context.Background(), model.CreateRoomRequest{
		Name:     "Integration Room",
		RoomType: "Study Room",
		Capacity: capacity,
		Slots:    []string{"09:00-10:00", "10:00-11:00"},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

// The advisory-lock admission path must admit exactly capacity of 2C
// concurrent attempts on one tuple.
func TestPostgresAdmitStorm(t *testing.T) {
	pool := testPool(t)
	rooms := NewRoomRepository(pool)
	ledger := NewReservationRepository(pool, 10*time.Second)

	const capacity = 4
	room := createPGRoom(t, rooms, capacity)

	results := make([]error, 2*capacity)
	g := new(errgroup.Group)
	for i := range results {
		i := i
		g.Go(func() error {
			_, err := ledger.Admit(context.Background(), AdmitParams{
				RoomID:        room.ID,
				Date:          "2026-09-01",
				Slot:          "09:00-10:00",
				RequesterID:   fmt.Sprintf("user-%d", i),
				AllowMultiple: true,
			})
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	admitted, full := 0, 0
	for i, err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrSlotFull):
			full++
		default:
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if admitted != capacity || full != capacity {
		t.Fatalf("want %d admitted and %d full, got %d/%d", capacity, capacity, admitted, full)
	}

	counts, err := ledger.SlotCounts(context.Background(), room.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("SlotCounts: %v", err)
	}
	if counts["09:00-10:00"] != capacity {
		t.Fatalf("confirmed count = %d, want %d", counts["09:00-10:00"], capacity)
	}
}

// Cancellation must free capacity immediately and report double cancels.
func TestPostgresCancelFreesCapacity(t *testing.T) {
	pool := testPool(t)
	rooms := NewRoomRepository(pool)
	ledger := NewReservationRepository(pool, 0)
	ctx := context.Background()

	room := createPGRoom(t, rooms, 1)
	p := AdmitParams{
		RoomID: room.ID, Date: "2026-09-02", Slot: "10:00-11:00",
		RequesterID: "user-1", AllowMultiple: true,
	}

	held, err := ledger.Admit(ctx, p)
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if _, err := ledger.Admit(ctx, p); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("admit on full tuple: got %v, want ErrSlotFull", err)
	}

	if _, err := ledger.Cancel(ctx, held.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := ledger.Cancel(ctx, held.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}

	if _, err := ledger.Admit(ctx, p); err != nil {
		t.Fatalf("admit after cancel: %v", err)
	}
}

// Unknown rooms and catalog-foreign slots are rejected without rows.
func TestPostgresAdmitValidation(t *testing.T) {
	pool := testPool(t)
	rooms := NewRoomRepository(pool)
	ledger := NewReservationRepository(pool, 0)
	ctx := context.Background()

	if _, err := ledger.Admit(ctx, AdmitParams{
		RoomID: "00000000-0000-0000-0000-000000000000", Date: "2026-09-01",
		Slot: "09:00-10:00", RequesterID: "user-1", AllowMultiple: true,
	}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}

	room := createPGRoom(t, rooms, 2)
	if _, err := ledger.Admit(ctx, AdmitParams{
		RoomID: room.ID, Date: "2026-09-01", Slot: "23:00-23:30",
		RequesterID: "user-1", AllowMultiple: true,
	}); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("got %v, want ErrInvalidSlot", err)
	}

	counts, err := ledger.SlotCounts(ctx, room.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("SlotCounts: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("counts = %v, want empty after rejected admits", counts)
	}
}
