package model

import "time"

// Student is a read-only input to the allocation engine.  Branch is the
// organizational partition tag: once a room is claimed by a branch only
// students of that branch may occupy its seats.  Students with
// accessibility needs are placed before all others.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – display name.
//  Branch             – partition tag (e.g. "CSE-2", "MECH-1").
//  AccessibilityNeeds – assistive tags the assigned seat must provide.
//  CreatedAt          – creation timestamp.
type Student struct {
    ID                 uint64    // students.id
    Name               string    // students.name
    Branch             string    // students.branch
    AccessibilityNeeds []string  // students.accessibility_needs (JSON array)
    CreatedAt          time.Time // students.created_at
}

// HasPriority reports whether the student belongs to the priority
// group, i.e. has at least one accessibility need.
func (s *Student) HasPriority() bool {
    return len(s.AccessibilityNeeds) > 0
}
