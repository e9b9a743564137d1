// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingCreatedEvent is published when a room booking is successfully
// committed.  It contains enough information for downstream consumers
// to log, notify, or trigger analytics without querying the primary
// database.
type BookingCreatedEvent struct {
    BookingID    uint64 `json:"booking_id"`
    RoomID       uint64 `json:"room_id"`
    RoomName     string `json:"room_name"`
    BuildingName string `json:"building_name,omitempty"`
    TeacherID    uint64 `json:"teacher_id"`
    Branch       string `json:"branch"`
    Capacity     uint32 `json:"capacity"`
    StartsAt     string `json:"starts_at"`
    EndsAt       string `json:"ends_at"`
    CreatedAt    string `json:"created_at"`
}
