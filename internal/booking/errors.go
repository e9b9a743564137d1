// Package booking implements the room booking lifecycle: the lock →
// validate → commit → unlock sequence on creation, cancellation with
// transactional seat release, and the clock-driven status sweep.
package booking

import (
    "errors"
    "fmt"
    "time"

    "github.com/campushq/campus-reservation/internal/model"
)

// ErrLockContention is returned when another holder currently owns the
// reservation lock for the requested slot: someone else is mid-commit
// for the same room and window.  Callers may retry after a short
// backoff.
var ErrLockContention = errors.New("slot is being booked by someone else")

// ErrInsufficientCapacity is returned when the room cannot seat the
// requested number of students.  Not retryable; pick another room.
var ErrInsufficientCapacity = errors.New("room capacity is insufficient")

// ErrRoomNotAvailable is returned when a committed booking already
// occupies part of the requested window.
var ErrRoomNotAvailable = errors.New("room is not available for the requested window")

// ErrCancelNotAllowed is returned when cancelling a booking that has
// already started; only NOT_STARTED bookings can be cancelled.
var ErrCancelNotAllowed = errors.New("booking can no longer be cancelled")

// ErrNotOwner is returned when a teacher tries to cancel a booking made
// by someone else.
var ErrNotOwner = errors.New("booking belongs to another teacher")

// ErrInvalidWindow is returned when the requested window is empty or
// reversed.
var ErrInvalidWindow = errors.New("booking window must start before it ends")

// TeacherConflictError reports that the teacher already has an active
// booking intersecting the requested window, anywhere on campus.  The
// embedded conflict carries room, floor and building names for the
// user-facing message.
type TeacherConflictError struct {
    Conflict *model.ConflictingBooking
}

func (e *TeacherConflictError) Error() string {
    c := e.Conflict
    return fmt.Sprintf("teacher already has a booking in %s, %s, %s from %s to %s",
        c.RoomName, c.FloorName, c.BuildingName,
        c.Booking.StartsAt.UTC().Format(time.RFC3339),
        c.Booking.EndsAt.UTC().Format(time.RFC3339),
    )
}
