package repository // repository defines data access for seats

import (
    "context"
    "database/sql"
    "encoding/json"

    "github.com/campushq/campus-reservation/internal/database"
    "github.com/campushq/campus-reservation/internal/model"
)

// SeatRepo provides methods to work with seats in the database.  Every
// mutation bumps the row's version column; the *Versioned methods
// additionally require the caller's last observed version and report
// ErrVersionConflict when a concurrent writer got there first.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

const seatColumns = `id, room_id, label, row_num, col_num, status, features, student_id, version, created_at, updated_at`

// scanSeat reads one seat row from the given scanner.  The features
// column is stored as a JSON array of strings; NULL and the empty
// string both decode to no features.
func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
    var s model.Seat
    var features sql.NullString
    var studentID sql.NullInt64
    if err := row.Scan(
        &s.ID, &s.RoomID, &s.Label, &s.Row, &s.Col, &s.Status,
        &features, &studentID, &s.Version, &s.CreatedAt, &s.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    if features.Valid && features.String != "" {
        if err := json.Unmarshal([]byte(features.String), &s.Features); err != nil {
            return nil, err
        }
    }
    if studentID.Valid {
        sid := uint64(studentID.Int64)
        s.StudentID = &sid
    }
    return &s, nil
}

// encodeFeatures serialises a feature list for the features column.  A
// nil or empty list is stored as an empty JSON array so the column is
// never NULL for rows we write.
func encodeFeatures(features []string) (string, error) {
    if len(features) == 0 {
        return "[]", nil
    }
    b, err := json.Marshal(features)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// CreateBulk inserts a room's seat grid in a single statement.  Seats
// are created AVAILABLE at version 0; timestamps default in the DB.
// Passing an empty slice has no effect and returns nil.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (room_id, label, row_num, col_num, status, features) VALUES `
    args := make([]interface{}, 0, len(seats)*6)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        features, err := encodeFeatures(s.Features)
        if err != nil {
            return err
        }
        status := s.Status
        if status == "" {
            status = model.SeatAvailable
        }
        args = append(args, s.RoomID, s.Label, s.Row, s.Col, status, features)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// GetByID retrieves a seat by its id.  Returns ErrSeatNotFound when no
// row exists.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
    const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
    s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrSeatNotFound
    }
    return s, err
}

// GetByStudent returns the seat currently allocated to the given
// student, or ErrSeatNotFound when the student holds no seat.
func (r *SeatRepo) GetByStudent(ctx context.Context, studentID uint64) (*model.Seat, error) {
    const q = `SELECT ` + seatColumns + ` FROM seats WHERE student_id = ? AND status = 'ALLOCATED'`
    s, err := scanSeat(r.db.QueryRowContext(ctx, q, studentID))
    if err == sql.ErrNoRows {
        return nil, ErrSeatNotFound
    }
    return s, err
}

// ListByRoom retrieves all seats of a room ordered by (row_num, col_num)
// so the grid renders and allocates deterministically.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
    const q = `SELECT ` + seatColumns + ` FROM seats
               WHERE room_id = ?
               ORDER BY row_num, col_num`
    rows, err := r.db.QueryContext(ctx, q, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Seat
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// ListAvailableByRooms returns every AVAILABLE seat in the given rooms,
// ordered by (room_id, row_num, col_num).  This fixed ordering is what
// makes allocation passes deterministic.  An empty room list returns an
// empty slice.
func (r *SeatRepo) ListAvailableByRooms(ctx context.Context, roomIDs []uint64) ([]model.Seat, error) {
    if len(roomIDs) == 0 {
        return []model.Seat{}, nil
    }
    query := `SELECT ` + seatColumns + ` FROM seats WHERE status = 'AVAILABLE' AND room_id IN (`
    args := make([]interface{}, 0, len(roomIDs))
    for i, id := range roomIDs {
        if i > 0 {
            query += ","
        }
        query += "?"
        args = append(args, id)
    }
    query += `) ORDER BY room_id, row_num, col_num`
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Seat
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// AllocateVersioned places a student on a seat with an optimistic
// precondition: the write only succeeds when the row still carries the
// version the caller read and is still AVAILABLE.  On a lost race it
// returns ErrVersionConflict and the seat's state is untouched.
func (r *SeatRepo) AllocateVersioned(ctx context.Context, seatID, studentID uint64, version uint32) error {
    const q = `UPDATE seats
               SET status = 'ALLOCATED', student_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND version = ? AND status = 'AVAILABLE'`
    res, err := r.db.ExecContext(ctx, q, studentID, seatID, version)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrVersionConflict
    }
    return nil
}

// UpdateStatusVersioned changes a seat's status with an optimistic
// precondition.  Moving a seat out of ALLOCATED clears its student
// reference so the status/student invariant holds; moving it to
// ALLOCATED through this method is rejected because placement must go
// through AllocateVersioned with a student id.
func (r *SeatRepo) UpdateStatusVersioned(ctx context.Context, seatID uint64, status string, version uint32) error {
    if status == model.SeatAllocated {
        return ErrVersionConflict
    }
    const q = `UPDATE seats
               SET status = ?, student_id = NULL, version = version + 1, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND version = ?`
    res, err := r.db.ExecContext(ctx, q, status, seatID, version)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrVersionConflict
    }
    return nil
}

// SetStatusVersioned is the admin status-change path: it updates the
// seat with the optimistic precondition and keeps the owning room's
// claimed counter in step, all in one transaction.  Moving a seat out
// of ALLOCATED clears its student reference.  Returns the updated seat,
// ErrSeatNotFound when the seat does not exist, or ErrVersionConflict
// when the version moved.
func (r *SeatRepo) SetStatusVersioned(ctx context.Context, seatID uint64, status string, version uint32) (*model.Seat, error) {
    if status == model.SeatAllocated {
        // Placement must go through AllocateVersioned with a student.
        return nil, ErrVersionConflict
    }
    var updated *model.Seat
    err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        const sel = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
        before, err := scanSeat(tx.QueryRowContext(ctx, sel, seatID))
        if err == sql.ErrNoRows {
            return ErrSeatNotFound
        }
        if err != nil {
            return err
        }
        if before.Version != version {
            return ErrVersionConflict
        }
        const upd = `UPDATE seats
                     SET status = ?, student_id = NULL, version = version + 1, updated_at = CURRENT_TIMESTAMP
                     WHERE id = ? AND version = ?`
        res, err := tx.ExecContext(ctx, upd, status, seatID, version)
        if err != nil {
            return err
        }
        if n, _ := res.RowsAffected(); n == 0 {
            return ErrVersionConflict
        }

        // Keep claimed = count of non-AVAILABLE seats.  The branch tag
        // clears exactly when the counter returns to zero; blocking a
        // seat never tags a branch.
        wasClaimed := before.CountsAsClaimed()
        isClaimed := status != model.SeatAvailable
        if wasClaimed && !isClaimed {
            const dec = `UPDATE rooms
                         SET claimed = IF(claimed = 0, 0, claimed - 1),
                             branch_allocated = IF(claimed = 0, NULL, branch_allocated),
                             version = version + 1,
                             updated_at = CURRENT_TIMESTAMP
                         WHERE id = ?`
            if _, err := tx.ExecContext(ctx, dec, before.RoomID); err != nil {
                return err
            }
        } else if !wasClaimed && isClaimed {
            const inc = `UPDATE rooms
                         SET claimed = claimed + 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
                         WHERE id = ?`
            if _, err := tx.ExecContext(ctx, inc, before.RoomID); err != nil {
                return err
            }
        }

        after := *before
        after.Status = status
        after.StudentID = nil
        after.Version = version + 1
        updated = &after
        return nil
    })
    if err != nil {
        return nil, err
    }
    return updated, nil
}

// ReleaseByRoomAndBranchTx frees every seat in a room that is allocated
// to a student of the given branch.  It is used by cancellation and by
// the completion sweep, always inside a transaction together with the
// room's claimed decrement so a partial deallocation is never
// observable.  Returns the number of seats released.
func (r *SeatRepo) ReleaseByRoomAndBranchTx(ctx context.Context, tx *sql.Tx, roomID uint64, branch string) (int, error) {
    const q = `UPDATE seats s
               JOIN students st ON st.id = s.student_id
               SET s.status = 'AVAILABLE', s.student_id = NULL, s.version = s.version + 1, s.updated_at = CURRENT_TIMESTAMP
               WHERE s.room_id = ? AND s.status = 'ALLOCATED' AND st.branch = ?`
    res, err := tx.ExecContext(ctx, q, roomID, branch)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    return int(n), err
}

// DeleteByRoomTx removes all seat rows of a room.  Used when a room is
// deleted; the caller verifies there is no active booking first.
func (r *SeatRepo) DeleteByRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE room_id = ?`, roomID)
    return err
}
