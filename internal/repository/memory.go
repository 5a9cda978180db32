package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomreserve/internal/model"
)

// MemoryStore implements the room catalog and reservation ledger contracts
// in process memory. It backs unit tests and --dev runs without Postgres.
//
// Admission takes a per-tuple lock (a 1-slot channel per tuple key) with the
// same bounded wait as the Postgres ledger's lock_timeout, so contended
// tuples fail with ErrBusy here too. The interior maps are guarded by a
// single mutex; the tuple locks exist to serialise the multi-step
// check-then-insert per tuple without queueing unrelated tuples behind it.
type MemoryStore struct {
	lockWait time.Duration

	mu           sync.Mutex
	rooms        map[string]*model.Room
	roomOrder    []string
	reservations map[string]*model.Reservation
	resvOrder    []string
	locks        map[string]chan struct{}
}

// NewMemoryStore constructs an empty MemoryStore. lockWait <= 0 selects
// DefaultLockWait.
func NewMemoryStore(lockWait time.Duration) *MemoryStore {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &MemoryStore{
		lockWait:     lockWait,
		rooms:        make(map[string]*model.Room),
		reservations: make(map[string]*model.Reservation),
		locks:        make(map[string]chan struct{}),
	}
}

// ─── Room catalog ─────────────────────────────────────────────────────────

// Create inserts a new room and returns it with a generated UUID.
func (m *MemoryStore) Create(ctx context.Context, req model.CreateRoomRequest) (*model.Room, error) {
	room := &model.Room{
		ID:        uuid.New().String(),
		Name:      req.Name,
		RoomType:  req.RoomType,
		Capacity:  req.Capacity,
		Slots:     append([]string(nil), req.Slots...),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = room
	m.roomOrder = append(m.roomOrder, room.ID)
	out := *room
	return &out, nil
}

// List returns all rooms, most recently created first.
func (m *MemoryStore) List(ctx context.Context) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rooms []model.Room
	for i := len(m.roomOrder) - 1; i >= 0; i-- {
		rooms = append(rooms, *m.rooms[m.roomOrder[i]])
	}
	return rooms, nil
}

// GetByID returns a single room or ErrRoomNotFound.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := *room
	out.Slots = append([]string(nil), room.Slots...)
	return &out, nil
}

// Update overwrites the room's catalog fields.
func (m *MemoryStore) Update(ctx context.Context, room *model.Room) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rooms[room.ID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	stored.Name = room.Name
	stored.RoomType = room.RoomType
	stored.Capacity = room.Capacity
	stored.Slots = append([]string(nil), room.Slots...)
	out := *stored
	return &out, nil
}

// ─── Reservation ledger ───────────────────────────────────────────────────

// acquireTuple takes the 1-slot channel for the tuple key, waiting at most
// lockWait. The returned release must be called exactly once.
func (m *MemoryStore) acquireTuple(ctx context.Context, key string) (release func(), err error) {
	m.mu.Lock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	m.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	default:
	}

	timer := time.NewTimer(m.lockWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Admit performs the atomic check-then-insert for one tuple under its lock.
func (m *MemoryStore) Admit(ctx context.Context, p AdmitParams) (*model.Reservation, error) {
	release, err := m.acquireTuple(ctx, tupleKey(p.RoomID, p.Date, p.Slot))
	if err != nil {
		return nil, err
	}
	defer release()

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[p.RoomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if !room.HasSlot(p.Slot) {
		return nil, ErrInvalidSlot
	}

	confirmed := 0
	for _, resv := range m.reservations {
		if resv.RoomID == p.RoomID && resv.Date == p.Date && resv.Slot == p.Slot &&
			resv.Status == model.StatusConfirmed {
			confirmed++
			if !p.AllowMultiple && resv.RequesterID == p.RequesterID {
				return nil, ErrDuplicateReservation
			}
		}
	}
	if confirmed >= room.Capacity {
		return nil, ErrSlotFull
	}

	resv := &model.Reservation{
		ID:          uuid.New().String(),
		RoomID:      p.RoomID,
		RequesterID: p.RequesterID,
		Date:        p.Date,
		Slot:        p.Slot,
		Status:      model.StatusConfirmed,
		CreatedAt:   time.Now().UTC(),
	}
	m.reservations[resv.ID] = resv
	m.resvOrder = append(m.resvOrder, resv.ID)
	out := *resv
	return &out, nil
}

// GetReservation returns a single reservation or ErrNotFound.
func (m *MemoryStore) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resv, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *resv
	return &out, nil
}

// Cancel flips Confirmed to Cancelled; exactly one of two racing cancels
// wins, the rest get ErrAlreadyCancelled.
func (m *MemoryStore) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resv, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if resv.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	resv.Status = model.StatusCancelled
	out := *resv
	return &out, nil
}

// SlotCounts returns confirmed reservations per slot for one room and date.
func (m *MemoryStore) SlotCounts(ctx context.Context, roomID, date string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, resv := range m.reservations {
		if resv.RoomID == roomID && resv.Date == date && resv.Status == model.StatusConfirmed {
			counts[resv.Slot]++
		}
	}
	return counts, nil
}

// ListByRequester returns the requester's reservations, most recent first.
func (m *MemoryStore) ListByRequester(ctx context.Context, requesterID string) ([]model.ReservationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var views []model.ReservationView
	for i := len(m.resvOrder) - 1; i >= 0; i-- {
		resv := m.reservations[m.resvOrder[i]]
		if resv.RequesterID == requesterID {
			views = append(views, m.viewLocked(resv))
		}
	}
	return views, nil
}

// ListAll returns every reservation, most recent first.
func (m *MemoryStore) ListAll(ctx context.Context) ([]model.ReservationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var views []model.ReservationView
	for i := len(m.resvOrder) - 1; i >= 0; i-- {
		views = append(views, m.viewLocked(m.reservations[m.resvOrder[i]]))
	}
	return views, nil
}

func (m *MemoryStore) viewLocked(resv *model.Reservation) model.ReservationView {
	v := model.ReservationView{Reservation: *resv}
	if room, ok := m.rooms[resv.RoomID]; ok {
		v.RoomName = room.Name
		v.RoomType = room.RoomType
	}
	return v
}

// ConfirmedCount reports the confirmed total for one tuple. Test and storm
// tooling helper; not part of the store contracts.
func (m *MemoryStore) ConfirmedCount(roomID, date, slot string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, resv := range m.reservations {
		if resv.RoomID == roomID && resv.Date == date && resv.Slot == slot &&
			resv.Status == model.StatusConfirmed {
			n++
		}
	}
	return n
}
