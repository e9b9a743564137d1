package model

import "time"

// Teacher can book rooms for sessions.  UserID references the login
// identity managed by the external auth service; the JWT subject on
// incoming requests carries that identifier.
type Teacher struct {
    ID        uint64    // teachers.id
    UserID    uint64    // teachers.user_id
    Name      string    // teachers.name
    CreatedAt time.Time // teachers.created_at
}
