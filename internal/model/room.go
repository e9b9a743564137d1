package model

import "time"

// Room is a bookable space on a floor.  Rooms own a grid of seats
// (SeatRows × SeatCols) and track how many of those seats are currently
// claimed, i.e. not in the AVAILABLE status.  Once a branch claims any
// seat in a room the room is tagged with that branch and students of
// other branches may not be placed there until the tag is cleared.  The
// tag is cleared exactly when Claimed returns to zero.
//
// Fields:
//  ID              – primary key identifier.
//  FloorID         – floor to which this room belongs.
//  Name            – room name, unique per floor.
//  Capacity        – number of usable seats (equals SeatRows × SeatCols at creation).
//  SeatRows        – number of seat rows in the grid.
//  SeatCols        – number of seat columns in the grid.
//  Claimed         – count of seats whose status is not AVAILABLE.
//  BranchAllocated – partition tag restricting seat claims (nil when unclaimed).
//  Distance        – local traversal cost between sibling rooms on a floor.
//  Version         – optimistic concurrency stamp, incremented on every mutation.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Room struct {
    ID              uint64    // rooms.id
    FloorID         uint64    // rooms.floor_id
    Name            string    // rooms.name
    Capacity        uint32    // rooms.capacity
    SeatRows        uint32    // rooms.seat_rows
    SeatCols        uint32    // rooms.seat_cols
    Claimed         uint32    // rooms.claimed
    BranchAllocated *string   // rooms.branch_allocated (nullable)
    Distance        float64   // rooms.distance
    Version         uint32    // rooms.version
    CreatedAt       time.Time // rooms.created_at
    UpdatedAt       time.Time // rooms.updated_at
}

// OpenToBranch reports whether students of the given branch may be
// placed in this room: either no branch has claimed it yet or the same
// branch already did.
func (r *Room) OpenToBranch(branch string) bool {
    return r.BranchAllocated == nil || *r.BranchAllocated == branch
}

// RoomLocation is a Room joined with the identifiers and distance
// offsets of its containing floor, building and block.  It is the input
// of the search ranker's hierarchical distance walk.
type RoomLocation struct {
    RoomID           uint64  // rooms.id
    RoomName         string  // rooms.name
    Capacity         uint32  // rooms.capacity
    RoomDistance     float64 // rooms.distance
    FloorID          uint64  // floors.id
    FloorDistance    float64 // floors.distance
    BuildingID       uint64  // buildings.id
    BuildingDistance float64 // buildings.distance
    BlockID          uint64  // blocks.id
    BlockDistance    float64 // blocks.distance
}
