package model

import "time"

// Seat statuses.  A seat is AVAILABLE until it is allocated to a
// student, taken out of service (BROKEN) or administratively withheld
// (BLOCKED).  Every status other than AVAILABLE counts towards the
// owning room's Claimed counter.
const (
    SeatAvailable = "AVAILABLE"
    SeatAllocated = "ALLOCATED"
    SeatBroken    = "BROKEN"
    SeatBlocked   = "BLOCKED"
)

// Seat describes a physical seat inside a room, identified by its grid
// position (Row, Col).  Features carries positional and assistive tags
// such as "window", "front" or "wheelchair"; a student can only be
// placed on a seat whose features cover all of the student's
// accessibility needs.
//
// Invariant: Status == ALLOCATED exactly when StudentID is set, and
// Version increments on every successful mutation.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room to which this seat belongs.
//  Label     – human readable label (e.g. "B4").
//  Row       – zero-based grid row.
//  Col       – zero-based grid column.
//  Status    – one of the Seat* constants above.
//  Features  – positional + assistive tags.
//  StudentID – owning student when allocated (nil otherwise).
//  Version   – optimistic concurrency stamp.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
    ID        uint64    // seats.id
    RoomID    uint64    // seats.room_id
    Label     string    // seats.label
    Row       uint32    // seats.row_num
    Col       uint32    // seats.col_num
    Status    string    // seats.status
    Features  []string  // seats.features (JSON array)
    StudentID *uint64   // seats.student_id (nullable)
    Version   uint32    // seats.version
    CreatedAt time.Time // seats.created_at
    UpdatedAt time.Time // seats.updated_at
}

// HasFeatures reports whether the seat's feature set is a superset of
// the given needs.  An empty needs slice always matches.
func (s *Seat) HasFeatures(needs []string) bool {
    if len(needs) == 0 {
        return true
    }
    if len(s.Features) == 0 {
        return false
    }
    have := make(map[string]struct{}, len(s.Features))
    for _, f := range s.Features {
        have[f] = struct{}{}
    }
    for _, n := range needs {
        if _, ok := have[n]; !ok {
            return false
        }
    }
    return true
}

// CountsAsClaimed reports whether the seat contributes to its room's
// Claimed counter.
func (s *Seat) CountsAsClaimed() bool {
    return s.Status != SeatAvailable
}
