package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/campushq/campus-reservation/internal/database"
    "github.com/campushq/campus-reservation/internal/model"
)

// BookingRepo provides CRUD operations for room bookings plus the
// durable overlap probes that are the true arbiter of double booking.
// All interval tests use half-open semantics: two windows conflict when
// a.starts_at < b.ends_at AND a.ends_at > b.starts_at, so back-to-back
// bookings touching at a single instant do not collide.  Timestamps are
// stored in UTC ("2006-01-02 15:04:05", parseTime=true on the DSN).
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, room_id, teacher_id, branch, capacity, starts_at, ends_at, status, created_at, updated_at`

const dbTime = "2006-01-02 15:04:05"

func scanBooking(row interface{ Scan(...any) error }) (*model.RoomBooking, error) {
    var b model.RoomBooking
    if err := row.Scan(
        &b.ID, &b.RoomID, &b.TeacherID, &b.Branch, &b.Capacity,
        &b.StartsAt, &b.EndsAt, &b.Status, &b.CreatedAt, &b.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    return &b, nil
}

// Create inserts a new booking in NOT_STARTED status and reads the row
// back so timestamps and defaults are populated.
func (r *BookingRepo) Create(ctx context.Context, b *model.RoomBooking) error {
    const qInsert = `INSERT INTO room_bookings (room_id, teacher_id, branch, capacity, starts_at, ends_at, status)
                     VALUES (?, ?, ?, ?, ?, ?, 'NOT_STARTED')`
    res, err := r.db.ExecContext(ctx, qInsert,
        b.RoomID, b.TeacherID, b.Branch, b.Capacity,
        b.StartsAt.UTC().Format(dbTime), b.EndsAt.UTC().Format(dbTime),
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    const qSelect = `SELECT ` + bookingColumns + ` FROM room_bookings WHERE id = ?`
    fresh, err := scanBooking(r.db.QueryRowContext(ctx, qSelect, b.ID))
    if err != nil {
        return err
    }
    *b = *fresh
    return nil
}

// GetByID retrieves a booking by id.  Returns ErrBookingNotFound when no
// row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.RoomBooking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM room_bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrBookingNotFound
    }
    return b, err
}

// HasOverlap reports whether any booking for the room with status in
// {NOT_STARTED, ONGOING} intersects the half-open window [start, end).
func (r *BookingRepo) HasOverlap(ctx context.Context, roomID uint64, start, end time.Time) (bool, error) {
    const q = `SELECT EXISTS (
                   SELECT 1 FROM room_bookings
                   WHERE room_id = ?
                     AND status IN ('NOT_STARTED', 'ONGOING')
                     AND starts_at < ? AND ends_at > ?
               )`
    var exists bool
    err := r.db.QueryRowContext(ctx, q,
        roomID, end.UTC().Format(dbTime), start.UTC().Format(dbTime),
    ).Scan(&exists)
    return exists, err
}

// FirstTeacherConflict returns the first active booking of the teacher
// whose window intersects [start, end), joined with the names of its
// room, floor and building so callers can tell the user where the
// clash is.  Returns (nil, nil) when the teacher is free.
func (r *BookingRepo) FirstTeacherConflict(ctx context.Context, teacherID uint64, start, end time.Time) (*model.ConflictingBooking, error) {
    const q = `SELECT b.id, b.room_id, b.teacher_id, b.branch, b.capacity, b.starts_at, b.ends_at, b.status, b.created_at, b.updated_at,
                      r.name, f.name, bd.name
               FROM room_bookings b
               JOIN rooms r     ON r.id = b.room_id
               JOIN floors f    ON f.id = r.floor_id
               JOIN buildings bd ON bd.id = f.building_id
               WHERE b.teacher_id = ?
                 AND b.status IN ('NOT_STARTED', 'ONGOING')
                 AND b.starts_at < ? AND b.ends_at > ?
               ORDER BY b.starts_at
               LIMIT 1`
    var c model.ConflictingBooking
    err := r.db.QueryRowContext(ctx, q,
        teacherID, end.UTC().Format(dbTime), start.UTC().Format(dbTime),
    ).Scan(
        &c.Booking.ID, &c.Booking.RoomID, &c.Booking.TeacherID, &c.Booking.Branch, &c.Booking.Capacity,
        &c.Booking.StartsAt, &c.Booking.EndsAt, &c.Booking.Status, &c.Booking.CreatedAt, &c.Booking.UpdatedAt,
        &c.RoomName, &c.FloorName, &c.BuildingName,
    )
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// ListByTeacher returns all bookings made by a teacher, newest first.
func (r *BookingRepo) ListByTeacher(ctx context.Context, teacherID uint64) ([]model.RoomBooking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM room_bookings
               WHERE teacher_id = ?
               ORDER BY starts_at DESC`
    rows, err := r.db.QueryContext(ctx, q, teacherID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.RoomBooking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// ListDueForStart returns NOT_STARTED bookings whose window contains now.
// Consumed by the lifecycle sweep.
func (r *BookingRepo) ListDueForStart(ctx context.Context, now time.Time) ([]model.RoomBooking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM room_bookings
               WHERE status = 'NOT_STARTED' AND starts_at <= ? AND ends_at > ?
               ORDER BY id`
    return r.listAt(ctx, q, now)
}

// ListDueForCompletion returns active bookings whose window has ended.
func (r *BookingRepo) ListDueForCompletion(ctx context.Context, now time.Time) ([]model.RoomBooking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM room_bookings
               WHERE status IN ('NOT_STARTED', 'ONGOING') AND ends_at <= ?
               ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format(dbTime))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.RoomBooking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

func (r *BookingRepo) listAt(ctx context.Context, q string, now time.Time) ([]model.RoomBooking, error) {
    ts := now.UTC().Format(dbTime)
    rows, err := r.db.QueryContext(ctx, q, ts, ts)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.RoomBooking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// UpdateStatus moves a booking to the given status.  Returns
// ErrBookingNotFound when the row is gone.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
    const q = `UPDATE room_bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, status, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrBookingNotFound
    }
    return nil
}

// DeleteWithRelease cancels a booking: inside one transaction it frees
// every seat held by a student of the booking's branch in the booked
// room, decrements the room's claimed counter accordingly (clearing the
// branch tag at zero) and deletes the booking row.  Returns the number
// of seats released.  The delete itself requires NOT_STARTED status so
// a booking the sweep flips to ONGOING between the caller's read and
// this transaction is never torn down mid-session; that race surfaces
// as ErrBookingStarted and rolls the seat release back.
func (r *BookingRepo) DeleteWithRelease(ctx context.Context, b *model.RoomBooking) (int, error) {
    seats := &SeatRepo{db: r.db}
    rooms := &RoomRepo{db: r.db}
    released := 0
    err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        n, err := seats.ReleaseByRoomAndBranchTx(ctx, tx, b.RoomID, b.Branch)
        if err != nil {
            return err
        }
        if err := rooms.ReleaseClaimedTx(ctx, tx, b.RoomID, n); err != nil {
            return err
        }
        res, err := tx.ExecContext(ctx,
            `DELETE FROM room_bookings WHERE id = ? AND status = 'NOT_STARTED'`, b.ID)
        if err != nil {
            return err
        }
        if rows, _ := res.RowsAffected(); rows == 0 {
            // Zero rows is either a vanished booking or one the sweep
            // already moved on; tell them apart for the caller.
            var exists bool
            const qExists = `SELECT EXISTS (SELECT 1 FROM room_bookings WHERE id = ?)`
            if err := tx.QueryRowContext(ctx, qExists, b.ID).Scan(&exists); err != nil {
                return err
            }
            if exists {
                return ErrBookingStarted
            }
            return ErrBookingNotFound
        }
        released = n
        return nil
    })
    return released, err
}

// CompleteWithRelease moves a booking to COMPLETED and performs the same
// transactional deallocation as cancellation.  Natural completion keeps
// the booking row.
func (r *BookingRepo) CompleteWithRelease(ctx context.Context, b *model.RoomBooking) (int, error) {
    seats := &SeatRepo{db: r.db}
    rooms := &RoomRepo{db: r.db}
    released := 0
    err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        n, err := seats.ReleaseByRoomAndBranchTx(ctx, tx, b.RoomID, b.Branch)
        if err != nil {
            return err
        }
        if err := rooms.ReleaseClaimedTx(ctx, tx, b.RoomID, n); err != nil {
            return err
        }
        const q = `UPDATE room_bookings SET status = 'COMPLETED', updated_at = CURRENT_TIMESTAMP WHERE id = ?`
        if _, err := tx.ExecContext(ctx, q, b.ID); err != nil {
            return err
        }
        released = n
        return nil
    })
    return released, err
}

// HasActiveByRoom reports whether the room has any booking in
// NOT_STARTED or ONGOING status.  Used to block room deletion.
func (r *BookingRepo) HasActiveByRoom(ctx context.Context, roomID uint64) (bool, error) {
    const q = `SELECT EXISTS (
                   SELECT 1 FROM room_bookings
                   WHERE room_id = ? AND status IN ('NOT_STARTED', 'ONGOING')
               )`
    var exists bool
    err := r.db.QueryRowContext(ctx, q, roomID).Scan(&exists)
    return exists, err
}
