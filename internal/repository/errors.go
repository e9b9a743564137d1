// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service, the allocation engine and the handlers to
// distinguish between different failure scenarios without inspecting
// SQL errors. ErrVersionConflict in particular is the distinguishable
// "precondition failed" outcome of every conditional
// `UPDATE ... WHERE id = ? AND version = ?` write: callers must
// refetch current state and retry with the new version rather than
// silently overwriting a concurrent change.
package repository

import "errors"

// ErrRoomNotFound is returned when a room lookup yields no rows.
var ErrRoomNotFound = errors.New("room not found")

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrStudentNotFound is returned when a student lookup yields no rows.
var ErrStudentNotFound = errors.New("student not found")

// ErrTeacherNotFound is returned when a teacher lookup yields no rows.
var ErrTeacherNotFound = errors.New("teacher not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrBuildingNotFound is returned when a building lookup yields no rows.
var ErrBuildingNotFound = errors.New("building not found")

// ErrBookingStarted is returned when a conditional write required a
// NOT_STARTED booking but the row has already moved on. The lifecycle
// sweep may transition a booking between a caller's read and its write,
// so cancellation carries the status precondition into the delete
// itself.
var ErrBookingStarted = errors.New("booking already started")

// ErrVersionConflict is returned when a versioned conditional write
// matched no row: either the row is gone or another writer bumped the
// version since the caller read it. Handlers translate this into an
// HTTP 409 response; the allocation engine treats the row as no longer
// available and moves on.
var ErrVersionConflict = errors.New("version conflict")
