package repository // repository holds data access logic for domain entities

import (
    "context"
    "database/sql"

    "github.com/campushq/campus-reservation/internal/model"
)

// RoomRepo provides methods to create and retrieve rooms and to keep the
// claimed counter and branch tag consistent with the room's seats.  The
// claimed counter always equals the number of the room's seats whose
// status is not AVAILABLE; the branch tag is cleared exactly when the
// counter returns to zero.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
    return &RoomRepo{db: db}
}

const roomColumns = `id, floor_id, name, capacity, seat_rows, seat_cols, claimed, branch_allocated, distance, version, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
    var rm model.Room
    var branch sql.NullString
    if err := row.Scan(
        &rm.ID, &rm.FloorID, &rm.Name, &rm.Capacity, &rm.SeatRows, &rm.SeatCols,
        &rm.Claimed, &branch, &rm.Distance, &rm.Version, &rm.CreatedAt, &rm.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    if branch.Valid {
        b := branch.String
        rm.BranchAllocated = &b
    }
    return &rm, nil
}

// Create inserts a new room and reads the row back so timestamps and
// defaults are populated.  Seats are created separately in bulk by the
// caller.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
    const qInsert = `INSERT INTO rooms (floor_id, name, capacity, seat_rows, seat_cols, distance)
                     VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, rm.FloorID, rm.Name, rm.Capacity, rm.SeatRows, rm.SeatCols, rm.Distance)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rm.ID = uint64(id)
    const qSelect = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
    fresh, err := scanRoom(r.db.QueryRowContext(ctx, qSelect, rm.ID))
    if err != nil {
        return err
    }
    *rm = *fresh
    return nil
}

// GetByID retrieves a room by its ID.  Returns ErrRoomNotFound when no
// row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
    rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrRoomNotFound
    }
    return rm, err
}

// ListOpenToBranch returns, out of the given candidate rooms, those a
// branch may still claim seats in: rooms no branch has claimed yet plus
// rooms already tagged with the same branch.  Order follows the input
// room ids (ascending) for deterministic allocation scans.
func (r *RoomRepo) ListOpenToBranch(ctx context.Context, branch string, roomIDs []uint64) ([]model.Room, error) {
    if len(roomIDs) == 0 {
        return []model.Room{}, nil
    }
    query := `SELECT ` + roomColumns + ` FROM rooms
              WHERE (branch_allocated IS NULL OR branch_allocated = ?) AND id IN (`
    args := make([]interface{}, 0, len(roomIDs)+1)
    args = append(args, branch)
    for i, id := range roomIDs {
        if i > 0 {
            query += ","
        }
        query += "?"
        args = append(args, id)
    }
    query += `) ORDER BY id`
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Room
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *rm)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// ClaimSeatVersioned increments the room's claimed counter by one and
// tags the room with the branch the first time it receives an
// allocation.  The optimistic precondition also guards the partition
// invariant: the write fails when the version moved or when another
// branch claimed the room in the meantime.
func (r *RoomRepo) ClaimSeatVersioned(ctx context.Context, roomID uint64, branch string, version uint32) error {
    const q = `UPDATE rooms
               SET claimed = claimed + 1,
                   branch_allocated = COALESCE(branch_allocated, ?),
                   version = version + 1,
                   updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND version = ? AND (branch_allocated IS NULL OR branch_allocated = ?)`
    res, err := r.db.ExecContext(ctx, q, branch, roomID, version, branch)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrVersionConflict
    }
    return nil
}

// ReleaseClaimedTx decrements the room's claimed counter by released
// seats and clears the branch tag when the counter reaches zero.  MySQL
// applies SET clauses left to right, so the IF() below already sees the
// decremented counter.  Runs inside the caller's transaction next to
// the seat updates it accounts for.
func (r *RoomRepo) ReleaseClaimedTx(ctx context.Context, tx *sql.Tx, roomID uint64, released int) error {
    if released == 0 {
        return nil
    }
    const q = `UPDATE rooms
               SET claimed = IF(claimed < ?, 0, claimed - ?),
                   branch_allocated = IF(claimed = 0, NULL, branch_allocated),
                   version = version + 1,
                   updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, released, released, roomID)
    return err
}

// DeleteTx removes a room row.  Seats must be deleted first in the same
// transaction; bookings referencing the room block deletion via FK.
func (r *RoomRepo) DeleteTx(ctx context.Context, tx *sql.Tx, roomID uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrRoomNotFound
    }
    return nil
}
