package model

import "time"

// Room booking statuses.  A booking is NOT_STARTED until its window
// opens, ONGOING while the current time lies inside [StartsAt, EndsAt)
// and COMPLETED afterwards.  Cancellation is only permitted while
// NOT_STARTED and deletes the row; natural completion never does.
const (
    BookingNotStarted = "NOT_STARTED"
    BookingOngoing    = "ONGOING"
    BookingCompleted  = "COMPLETED"
)

// RoomBooking reserves a room for a teacher's branch over a half-open
// time window [StartsAt, EndsAt).  For a fixed room no two bookings
// with status in {NOT_STARTED, ONGOING} may overlap, and the same
// non-overlap invariant holds per teacher across all rooms.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – booked room.
//  TeacherID – teacher who made the booking.
//  Branch    – partition tag the room is booked for.
//  Capacity  – seats requested for the session.
//  StartsAt  – window start (inclusive), UTC.
//  EndsAt    – window end (exclusive), UTC.
//  Status    – one of the Booking* constants above.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type RoomBooking struct {
    ID        uint64    // room_bookings.id
    RoomID    uint64    // room_bookings.room_id
    TeacherID uint64    // room_bookings.teacher_id
    Branch    string    // room_bookings.branch
    Capacity  uint32    // room_bookings.capacity
    StartsAt  time.Time // room_bookings.starts_at
    EndsAt    time.Time // room_bookings.ends_at
    Status    string    // room_bookings.status
    CreatedAt time.Time // room_bookings.created_at
    UpdatedAt time.Time // room_bookings.updated_at
}

// Active reports whether the booking still blocks its room, i.e. its
// status is NOT_STARTED or ONGOING.
func (b *RoomBooking) Active() bool {
    return b.Status == BookingNotStarted || b.Status == BookingOngoing
}

// ConflictingBooking is a booking joined with the names of its room,
// floor and building.  It is returned by the teacher-conflict probe so
// callers can tell the user where the clash is.
type ConflictingBooking struct {
    Booking      RoomBooking
    RoomName     string
    FloorName    string
    BuildingName string
}
