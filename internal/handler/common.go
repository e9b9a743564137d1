package handler // handler defines http handlers

import (
    "errors"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// The JWT middleware stores claims values as float64; older tokens may carry
// the subject as a string.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// parseWindow parses a start/end pair of RFC 3339 timestamps and checks
// the basic ordering. Detailed window validation lives in the services.
func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
    start, err := time.Parse(time.RFC3339, startRaw)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("starts_at must be RFC 3339")
    }
    end, err := time.Parse(time.RFC3339, endRaw)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("ends_at must be RFC 3339")
    }
    return start, end, nil
}

// indexToRowLabel converts a zero-based index to an alphabetical row label
// like A, B, AA. Seat labels are built as rowLabel + column number.
func indexToRowLabel(i int) string {
    if i < 0 {
        return ""
    }
    res := []rune{}
    for {
        rem := i % 26
        res = append(res, rune('A'+rem))
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
        res[j], res[k] = res[k], res[j]
    }
    return string(res)
}

// bookingJSON shapes a booking for responses.
func bookingJSON(b *model.RoomBooking) echo.Map {
    return echo.Map{
        "id":         b.ID,
        "room_id":    b.RoomID,
        "teacher_id": b.TeacherID,
        "branch":     b.Branch,
        "capacity":   b.Capacity,
        "starts_at":  b.StartsAt.UTC().Format(time.RFC3339),
        "ends_at":    b.EndsAt.UTC().Format(time.RFC3339),
        "status":     b.Status,
        "created_at": b.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// seatJSON shapes a seat for responses. The version is included so
// clients can issue optimistic status updates.
func seatJSON(s *model.Seat) echo.Map {
    m := echo.Map{
        "id":       s.ID,
        "room_id":  s.RoomID,
        "label":    s.Label,
        "row":      s.Row,
        "col":      s.Col,
        "status":   s.Status,
        "features": s.Features,
        "version":  s.Version,
    }
    if s.StudentID != nil {
        m["student_id"] = *s.StudentID
    }
    return m
}

// roomJSON shapes a room for responses.
func roomJSON(r *model.Room) echo.Map {
    m := echo.Map{
        "id":        r.ID,
        "floor_id":  r.FloorID,
        "name":      r.Name,
        "capacity":  r.Capacity,
        "seat_rows": r.SeatRows,
        "seat_cols": r.SeatCols,
        "claimed":   r.Claimed,
        "distance":  r.Distance,
        "version":   r.Version,
    }
    if r.BranchAllocated != nil {
        m["branch_allocated"] = *r.BranchAllocated
    }
    return m
}
