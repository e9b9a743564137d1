// Package allocation implements the seat allocation engine: a greedy,
// single-pass matching of students to seats honoring accessibility
// priority and branch partitioning.  The pass is deliberately
// non-backtracking: it trades placement optimality for O(students ×
// seats) worst-case simplicity and deterministic output, which the
// fixed (row, col) seat order and (priority, id) student order
// guarantee.
package allocation

import (
    "context"
    "errors"

    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/realtime"
    "github.com/campushq/campus-reservation/internal/repository"
)

// ErrNoSeatAvailable is returned by ReallocateStudent when no seat in
// the scope can take the student.  Bulk allocation never raises it:
// unmatched students are reported data, not failures.
var ErrNoSeatAvailable = errors.New("no suitable seat available")

// ErrStudentAlreadySeated is the idempotency guard on the
// single-student path: the student already holds a seat somewhere.
var ErrStudentAlreadySeated = errors.New("student already has a seat")

// reasonNoSeats is the per-student reason recorded when the scan finds
// no feature-compatible seat.
const reasonNoSeats = "No suitable seats available"

// StudentStore is the slice of the student repository the engine reads.
type StudentStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Student, error)
    ListUnseatedByBranch(ctx context.Context, branch string) ([]model.Student, error)
}

// SeatStore covers the versioned seat writes.  AllocateVersioned and
// ReleaseVersioned succeed only when the row still carries the version
// the engine read; on repository.ErrVersionConflict the seat is
// treated as no longer available and the scan moves on.
type SeatStore interface {
    ListAvailableByRooms(ctx context.Context, roomIDs []uint64) ([]model.Seat, error)
    AllocateVersioned(ctx context.Context, seatID, studentID uint64, version uint32) error
    UpdateStatusVersioned(ctx context.Context, seatID uint64, status string, version uint32) error
    GetByStudent(ctx context.Context, studentID uint64) (*model.Seat, error)
}

// RoomStore covers room eligibility and the versioned claimed counter.
type RoomStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
    ListOpenToBranch(ctx context.Context, branch string, roomIDs []uint64) ([]model.Room, error)
    ClaimSeatVersioned(ctx context.Context, roomID uint64, branch string, version uint32) error
}

// CampusStore resolves the room scope of a building for displacement
// repair.
type CampusStore interface {
    ListRoomIDsByBuilding(ctx context.Context, buildingID uint64) ([]uint64, error)
}

// Emitter announces allocation outcomes to the realtime fan-out.
type Emitter interface {
    Emit(event string, payload any)
}

// UnallocatedStudent pairs a student the pass could not place with the
// reason.
type UnallocatedStudent struct {
    Student model.Student `json:"student"`
    Reason  string        `json:"reason"`
}

// Result is the outcome of one allocation pass.
type Result struct {
    AllocatedCount int                  `json:"allocated_count"`
    Unallocated    []UnallocatedStudent `json:"unallocated"`
}

// Engine runs allocation passes.  Passes are idempotent to re-run:
// already-seated students are excluded by the student query and
// already-taken seats by the seat query, so repeating a pass only picks
// up what the previous one missed.
type Engine struct {
    students StudentStore
    seats    SeatStore
    rooms    RoomStore
    campus   CampusStore
    events   Emitter
    log      *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(students StudentStore, seats SeatStore, rooms RoomStore, campus CampusStore, events Emitter, log *zap.Logger) *Engine {
    return &Engine{
        students: students,
        seats:    seats,
        rooms:    rooms,
        campus:   campus,
        events:   events,
        log:      log,
    }
}

// errRoomClosed signals that a room was claimed by another branch
// between the eligibility read and the claim write.
var errRoomClosed = errors.New("room claimed by another branch")

type poolSeat struct {
    seat model.Seat
    used bool
}

// Allocate assigns every unseated student of the branch to seats in the
// scope rooms.  Students with accessibility needs go first; within each
// group the stable id order is preserved.  Seats are scanned in the
// fixed (room, row, col) order for the first seat whose features cover
// the student's needs.  Every placement is a versioned conditional
// write; a lost race skips the seat, never overwrites.
func (e *Engine) Allocate(ctx context.Context, branch string, roomIDs []uint64) (*Result, error) {
    rooms, err := e.rooms.ListOpenToBranch(ctx, branch, roomIDs)
    if err != nil {
        return nil, err
    }
    roomByID := make(map[uint64]*model.Room, len(rooms))
    eligible := make([]uint64, 0, len(rooms))
    for i := range rooms {
        roomByID[rooms[i].ID] = &rooms[i]
        eligible = append(eligible, rooms[i].ID)
    }

    students, err := e.students.ListUnseatedByBranch(ctx, branch)
    if err != nil {
        return nil, err
    }
    ordered := make([]model.Student, 0, len(students))
    for _, st := range students {
        if st.HasPriority() {
            ordered = append(ordered, st)
        }
    }
    for _, st := range students {
        if !st.HasPriority() {
            ordered = append(ordered, st)
        }
    }

    available, err := e.seats.ListAvailableByRooms(ctx, eligible)
    if err != nil {
        return nil, err
    }
    pool := make([]poolSeat, len(available))
    for i, s := range available {
        pool[i] = poolSeat{seat: s}
    }

    result := &Result{Unallocated: []UnallocatedStudent{}}
    touched := make(map[uint64]int)

    for _, st := range ordered {
        placed, err := e.placeStudent(ctx, &st, branch, pool, roomByID)
        if err != nil {
            return nil, err
        }
        if placed == nil {
            result.Unallocated = append(result.Unallocated, UnallocatedStudent{Student: st, Reason: reasonNoSeats})
            continue
        }
        result.AllocatedCount++
        touched[placed.RoomID]++
    }

    for roomID, count := range touched {
        e.events.Emit(realtime.EventAllocationsUpdated, map[string]any{
            "room_id":   roomID,
            "branch":    branch,
            "allocated": count,
        })
    }
    e.log.Info("allocation pass finished",
        zap.String("branch", branch),
        zap.Int("allocated", result.AllocatedCount),
        zap.Int("unallocated", len(result.Unallocated)),
    )
    return result, nil
}

// placeStudent scans the pool for the first compatible seat and commits
// the placement.  Returns the seat, or nil when nothing fits.
func (e *Engine) placeStudent(ctx context.Context, st *model.Student, branch string, pool []poolSeat, roomByID map[uint64]*model.Room) (*model.Seat, error) {
    for i := range pool {
        if pool[i].used {
            continue
        }
        seat := &pool[i].seat
        if !seat.HasFeatures(st.AccessibilityNeeds) {
            continue
        }
        room, ok := roomByID[seat.RoomID]
        if !ok {
            pool[i].used = true
            continue
        }

        err := e.seats.AllocateVersioned(ctx, seat.ID, st.ID, seat.Version)
        if errors.Is(err, repository.ErrVersionConflict) {
            // Concurrent writer took or changed the seat; it is no
            // longer ours to place on.
            pool[i].used = true
            continue
        }
        if err != nil {
            return nil, err
        }
        seat.Version++
        seat.Status = model.SeatAllocated
        seat.StudentID = &st.ID

        if err := e.claimRoom(ctx, room, branch); err != nil {
            if errors.Is(err, errRoomClosed) {
                // Another branch claimed the room between our reads.
                // Undo the placement and retire the whole room from
                // this pass.
                if relErr := e.seats.UpdateStatusVersioned(ctx, seat.ID, model.SeatAvailable, seat.Version); relErr != nil {
                    e.log.Warn("failed to roll back placement in closed room",
                        zap.Uint64("seat_id", seat.ID), zap.Error(relErr))
                }
                for j := range pool {
                    if pool[j].seat.RoomID == room.ID {
                        pool[j].used = true
                    }
                }
                continue
            }
            return nil, err
        }
        pool[i].used = true
        return seat, nil
    }
    return nil, nil
}

// claimRoom bumps the room's claimed counter with the optimistic
// precondition, refreshing the room and retrying a bounded number of
// times when another writer moved the version.  Returns errRoomClosed
// when the refreshed room no longer admits the branch.
func (e *Engine) claimRoom(ctx context.Context, room *model.Room, branch string) error {
    for attempt := 0; attempt < 5; attempt++ {
        err := e.rooms.ClaimSeatVersioned(ctx, room.ID, branch, room.Version)
        if err == nil {
            room.Version++
            room.Claimed++
            if room.BranchAllocated == nil {
                b := branch
                room.BranchAllocated = &b
            }
            return nil
        }
        if !errors.Is(err, repository.ErrVersionConflict) {
            return err
        }
        fresh, err := e.rooms.GetByID(ctx, room.ID)
        if err != nil {
            return err
        }
        if !fresh.OpenToBranch(branch) {
            *room = *fresh
            return errRoomClosed
        }
        *room = *fresh
    }
    return repository.ErrVersionConflict
}

// ReallocateStudent is the displacement-repair path: it re-seats a
// single student whose seat was taken out of service, scanning sibling
// rooms of the building (excluding the room the seat was lost in).
// Returns the new seat, ErrNoSeatAvailable when the building has
// nothing compatible, or ErrStudentAlreadySeated when the student
// already holds a seat.
func (e *Engine) ReallocateStudent(ctx context.Context, studentID, buildingID, excludeRoomID uint64) (*model.Seat, error) {
    st, err := e.students.GetByID(ctx, studentID)
    if err != nil {
        return nil, err
    }
    if _, err := e.seats.GetByStudent(ctx, studentID); err == nil {
        return nil, ErrStudentAlreadySeated
    } else if !errors.Is(err, repository.ErrSeatNotFound) {
        return nil, err
    }

    roomIDs, err := e.campus.ListRoomIDsByBuilding(ctx, buildingID)
    if err != nil {
        return nil, err
    }
    scope := roomIDs[:0]
    for _, id := range roomIDs {
        if id != excludeRoomID {
            scope = append(scope, id)
        }
    }

    rooms, err := e.rooms.ListOpenToBranch(ctx, st.Branch, scope)
    if err != nil {
        return nil, err
    }
    roomByID := make(map[uint64]*model.Room, len(rooms))
    eligible := make([]uint64, 0, len(rooms))
    for i := range rooms {
        roomByID[rooms[i].ID] = &rooms[i]
        eligible = append(eligible, rooms[i].ID)
    }
    available, err := e.seats.ListAvailableByRooms(ctx, eligible)
    if err != nil {
        return nil, err
    }
    pool := make([]poolSeat, len(available))
    for i, s := range available {
        pool[i] = poolSeat{seat: s}
    }

    seat, err := e.placeStudent(ctx, st, st.Branch, pool, roomByID)
    if err != nil {
        return nil, err
    }
    if seat == nil {
        return nil, ErrNoSeatAvailable
    }
    e.events.Emit(realtime.EventAllocationsUpdated, map[string]any{
        "room_id":    seat.RoomID,
        "branch":     st.Branch,
        "allocated":  1,
        "student_id": st.ID,
    })
    e.log.Info("student reallocated",
        zap.Uint64("student_id", st.ID),
        zap.Uint64("seat_id", seat.ID),
        zap.Uint64("room_id", seat.RoomID),
    )
    return seat, nil
}
