package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomreserve/internal/model"
)

// AdmitParams carries one admission attempt. AllowMultiple is the
// per-requester policy resolved by the service layer; it must be enforced
// inside the same atomic section as the capacity check.
type AdmitParams struct {
	RoomID        string
	Date          string
	Slot          string
	RequesterID   string
	AllowMultiple bool
}

// DefaultLockWait bounds how long an admission waits for the per-tuple lock
// before failing with ErrBusy.
const DefaultLockWait = 3 * time.Second

// ReservationRepository handles persistence for the reservation ledger.
type ReservationRepository struct {
	db       *pgxpool.Pool
	lockWait time.Duration
}

// NewReservationRepository constructs a ReservationRepository. lockWait <= 0
// selects DefaultLockWait.
func NewReservationRepository(db *pgxpool.Pool, lockWait time.Duration) *ReservationRepository {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &ReservationRepository{db: db, lockWait: lockWait}
}

// tupleKey is the composite identity over which capacity is serialized.
func tupleKey(roomID, date, slot string) string {
	return roomID + "|" + date + "|" + slot
}

// Admit performs a concurrency-safe admission for one (room, date, slot)
// tuple inside a single transaction.
//
// The naive read-count-then-insert sequence is a race: two transactions can
// both observe count == capacity-1 and both insert, overbooking the slot.
// Instead the transaction first takes pg_advisory_xact_lock on a hash of the
// tuple key, which serialises all admissions for that exact tuple while
// leaving other tuples — other slots of the same room included — free to
// proceed. The lock is released automatically at COMMIT/ROLLBACK.
//
// SET LOCAL lock_timeout bounds the wait on a contended tuple; expiry is
// surfaced as ErrBusy, which callers may retry.
func (r *ReservationRepository) Admit(ctx context.Context, p AdmitParams) (*model.Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// lock_timeout applies to the advisory-lock acquisition below. SET does
	// not accept bind parameters; lockWait is server-controlled config, not
	// caller input.
	_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockWait.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	// Step 1: serialise on the tuple. hashtextextended maps the composite
	// key onto the bigint advisory-lock space.
	_, err = tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		tupleKey(p.RoomID, p.Date, p.Slot),
	)
	if err != nil {
		if isLockTimeout(err) {
			err = ErrBusy
		}
		return nil, err
	}

	// Step 2: validate against the current catalog. A catalog edit committed
	// after this read may make the slot list stale for this one admission;
	// that staleness is bounded and does not touch the capacity invariant.
	var capacity int
	var slots []string
	err = tx.QueryRow(ctx,
		`SELECT capacity, slots FROM rooms WHERE id = $1`,
		p.RoomID,
	).Scan(&capacity, &slots)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrRoomNotFound
		}
		return nil, err
	}
	room := model.Room{Slots: slots}
	if !room.HasSlot(p.Slot) {
		err = ErrInvalidSlot
		return nil, err
	}

	// Step 3: count confirmed holders of the tuple. Served by the
	// (room_id, date, slot, status) index.
	var confirmed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE room_id = $1 AND date = $2 AND slot = $3 AND status = $4`,
		p.RoomID, p.Date, p.Slot, model.StatusConfirmed,
	).Scan(&confirmed)
	if err != nil {
		return nil, fmt.Errorf("count confirmed: %w", err)
	}

	// Step 4: per-requester policy, checked under the same lock.
	if !p.AllowMultiple {
		var held bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (
			   SELECT 1 FROM reservations
			   WHERE room_id = $1 AND date = $2 AND slot = $3
			     AND requester_id = $4 AND status = $5
			 )`,
			p.RoomID, p.Date, p.Slot, p.RequesterID, model.StatusConfirmed,
		).Scan(&held)
		if err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if held {
			err = ErrDuplicateReservation
			return nil, err
		}
	}

	// Step 5: guard against overbooking.
	if confirmed >= capacity {
		err = ErrSlotFull
		return nil, err
	}

	// Step 6: record the admission.
	resv := &model.Reservation{
		ID:          uuid.New().String(),
		RoomID:      p.RoomID,
		RequesterID: p.RequesterID,
		Date:        p.Date,
		Slot:        p.Slot,
		Status:      model.StatusConfirmed,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO reservations (id, room_id, requester_id, date, slot, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resv.ID, resv.RoomID, resv.RequesterID, resv.Date, resv.Slot, resv.Status, resv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	// Step 7: commit — only now do other transactions observe the new row.
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return resv, nil
}

// isLockTimeout reports whether err is Postgres SQLSTATE 55P03
// (lock_not_available), raised when lock_timeout expires.
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// GetReservation returns a single reservation or ErrNotFound.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.QueryRow(ctx,
		`SELECT id, room_id, requester_id, date, slot, status, created_at
		 FROM reservations WHERE id = $1`,
		id,
	).Scan(&resv.ID, &resv.RoomID, &resv.RequesterID, &resv.Date, &resv.Slot, &resv.Status, &resv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &resv, nil
}

// Cancel flips a reservation from Confirmed to Cancelled. The status
// predicate in the UPDATE makes the flip conditional, so of two racing
// cancels exactly one wins; the loser (and any later attempt) gets
// ErrAlreadyCancelled. The freed capacity unit is visible to Admit and the
// availability query the moment the UPDATE commits.
func (r *ReservationRepository) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.QueryRow(ctx,
		`UPDATE reservations SET status = $2
		 WHERE id = $1 AND status = $3
		 RETURNING id, room_id, requester_id, date, slot, status, created_at`,
		id, model.StatusCancelled, model.StatusConfirmed,
	).Scan(&resv.ID, &resv.RoomID, &resv.RequesterID, &resv.Date, &resv.Slot, &resv.Status, &resv.CreatedAt)
	if err == nil {
		return &resv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	// No row updated: distinguish missing from already cancelled.
	existing, err := r.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	return nil, fmt.Errorf("cancel reservation %s: unexpected status %q", id, existing.Status)
}

// SlotCounts returns the number of confirmed reservations per slot label for
// one room and date. Slots with no confirmed reservations are absent from
// the map.
func (r *ReservationRepository) SlotCounts(ctx context.Context, roomID, date string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT slot, COUNT(*) FROM reservations
		 WHERE room_id = $1 AND date = $2 AND status = $3
		 GROUP BY slot`,
		roomID, date, model.StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("count slots: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts[slot] = n
	}
	return counts, rows.Err()
}

// ListByRequester returns the requester's reservations, most recent first,
// joined with the room fields the listing pages display.
func (r *ReservationRepository) ListByRequester(ctx context.Context, requesterID string) ([]model.ReservationView, error) {
	return r.listViews(ctx,
		`SELECT rv.id, rv.room_id, rv.requester_id, rv.date, rv.slot, rv.status, rv.created_at,
		        COALESCE(rm.name, ''), COALESCE(rm.room_type, '')
		 FROM reservations rv
		 LEFT JOIN rooms rm ON rm.id = rv.room_id
		 WHERE rv.requester_id = $1
		 ORDER BY rv.created_at DESC`,
		requesterID,
	)
}

// ListAll returns every reservation, most recent first, with the same room
// projection. Administrator-only at the service layer.
func (r *ReservationRepository) ListAll(ctx context.Context) ([]model.ReservationView, error) {
	return r.listViews(ctx,
		`SELECT rv.id, rv.room_id, rv.requester_id, rv.date, rv.slot, rv.status, rv.created_at,
		        COALESCE(rm.name, ''), COALESCE(rm.room_type, '')
		 FROM reservations rv
		 LEFT JOIN rooms rm ON rm.id = rv.room_id
		 ORDER BY rv.created_at DESC`,
	)
}

func (r *ReservationRepository) listViews(ctx context.Context, query string, args ...any) ([]model.ReservationView, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var views []model.ReservationView
	for rows.Next() {
		var v model.ReservationView
		if err := rows.Scan(
			&v.ID, &v.RoomID, &v.RequesterID, &v.Date, &v.Slot, &v.Status, &v.CreatedAt,
			&v.RoomName, &v.RoomType,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
