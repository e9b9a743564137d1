package booking

import (
    "context"
    "time"

    "github.com/campushq/campus-reservation/internal/model"
)

// OverlapStore is the slice of the booking store the detector reads.
// Both probes are pure functions of committed state.
type OverlapStore interface {
    HasOverlap(ctx context.Context, roomID uint64, start, end time.Time) (bool, error)
    FirstTeacherConflict(ctx context.Context, teacherID uint64, start, end time.Time) (*model.ConflictingBooking, error)
}

// Detector answers the two conflict questions behind every booking:
// does the room have a committed active booking intersecting the
// window, and does the teacher.  It never mutates anything.  The
// booking service queries it inside the reservation lock, so the
// durable state it reads is the true arbiter of double booking even
// when the in-process lock cannot help (e.g. across processes).
type Detector struct {
    bookings OverlapStore
}

// NewDetector returns a Detector over the given store.
func NewDetector(bookings OverlapStore) *Detector {
    return &Detector{bookings: bookings}
}

// HasRoomOverlap reports whether a committed booking with status in
// {NOT_STARTED, ONGOING} intersects the half-open window [start, end)
// on the room.
func (d *Detector) HasRoomOverlap(ctx context.Context, roomID uint64, start, end time.Time) (bool, error) {
    return d.bookings.HasOverlap(ctx, roomID, start, end)
}

// TeacherConflict returns the teacher's first active booking
// intersecting [start, end) across all rooms, or nil when the teacher
// is free.
func (d *Detector) TeacherConflict(ctx context.Context, teacherID uint64, start, end time.Time) (*model.ConflictingBooking, error) {
    return d.bookings.FirstTeacherConflict(ctx, teacherID, start, end)
}
