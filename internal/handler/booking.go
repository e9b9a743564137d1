package handler // handler package contains teacher-facing booking handlers

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/booking"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/repository"
)

// TeacherResolver maps a login user id to the teacher record.
// *repository.TeacherRepo satisfies it.
type TeacherResolver interface {
    GetByUserID(ctx context.Context, userID uint64) (*model.Teacher, error)
}

// BookingHandler serves the booking lifecycle routes. The JWT subject is
// a login user id; the resolver turns it into the teacher every booking
// belongs to.
type BookingHandler struct {
    Svc      *booking.Service
    Teachers TeacherResolver
    Log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler and panics if any dependency is nil.
func NewBookingHandler(svc *booking.Service, teachers TeacherResolver, log *zap.Logger) *BookingHandler {
    if svc == nil || teachers == nil || log == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Svc: svc, Teachers: teachers, Log: log}
}

// currentTeacher resolves the authenticated teacher from the request context.
func (h *BookingHandler) currentTeacher(c echo.Context) (uint64, error) {
    userID, err := getUserID(c)
    if err != nil {
        return 0, err
    }
    t, err := h.Teachers.GetByUserID(c.Request().Context(), userID)
    if err != nil {
        return 0, err
    }
    return t.ID, nil
}

// CreateBooking handles POST /v1/bookings. Conflicts of any kind map to
// 409 with a reason so clients can distinguish a retryable lock loss
// from a genuinely taken slot.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
    teacherID, err := h.currentTeacher(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        RoomID   uint64 `json:"room_id"`
        Branch   string `json:"branch"`
        Capacity uint32 `json:"capacity"`
        StartsAt string `json:"starts_at"`
        EndsAt   string `json:"ends_at"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    branch := strings.TrimSpace(body.Branch)
    if body.RoomID == 0 || branch == "" || body.Capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id, branch and capacity are required"})
    }
    start, end, err := parseWindow(body.StartsAt, body.EndsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    b, err := h.Svc.Create(c.Request().Context(), booking.CreateRequest{
        RoomID:    body.RoomID,
        TeacherID: teacherID,
        Branch:    branch,
        Capacity:  body.Capacity,
        StartsAt:  start,
        EndsAt:    end,
    })
    if err != nil {
        var tc *booking.TeacherConflictError
        switch {
        case errors.Is(err, booking.ErrInvalidWindow):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be before ends_at"})
        case errors.Is(err, booking.ErrInsufficientCapacity):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "requested capacity exceeds the room"})
        case errors.Is(err, booking.ErrLockContention):
            return c.JSON(http.StatusConflict, echo.Map{"error": "room is being booked by someone else, try again", "reason": "lock_contention"})
        case errors.Is(err, booking.ErrRoomNotAvailable):
            return c.JSON(http.StatusConflict, echo.Map{"error": "room already booked for this window", "reason": "room_overlap"})
        case errors.As(err, &tc):
            return c.JSON(http.StatusConflict, echo.Map{
                "error":  tc.Error(),
                "reason": "teacher_conflict",
                "conflicting_booking": echo.Map{
                    "booking_id": tc.Conflict.Booking.ID,
                    "room":       tc.Conflict.RoomName,
                    "floor":      tc.Conflict.FloorName,
                    "building":   tc.Conflict.BuildingName,
                    "starts_at":  tc.Conflict.Booking.StartsAt.UTC().Format(time.RFC3339),
                    "ends_at":    tc.Conflict.Booking.EndsAt.UTC().Format(time.RFC3339),
                },
            })
        case booking.IsNotFound(err):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room or teacher not found"})
        }
        h.Log.Error("create booking failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create booking"})
    }
    return c.JSON(http.StatusCreated, bookingJSON(b))
}

// CancelBooking handles DELETE /v1/bookings/:id. Only the owning teacher
// may cancel, and only before the booking starts.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    teacherID, err := h.currentTeacher(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Svc.Cancel(c.Request().Context(), id, teacherID); err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, booking.ErrNotOwner):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "booking belongs to another teacher"})
        case errors.Is(err, booking.ErrCancelNotAllowed):
            return c.JSON(http.StatusConflict, echo.Map{"error": "only bookings that have not started can be cancelled"})
        }
        h.Log.Error("cancel booking failed", zap.Uint64("booking_id", id), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not cancel booking"})
    }
    return c.NoContent(http.StatusNoContent)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    teacherID, err := h.currentTeacher(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    b, err := h.Svc.Get(c.Request().Context(), id, teacherID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, booking.ErrNotOwner):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "booking belongs to another teacher"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, bookingJSON(b))
}

// ListMyBookings handles GET /v1/bookings and returns the caller's
// bookings, newest first.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
    teacherID, err := h.currentTeacher(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Svc.ListForTeacher(c.Request().Context(), teacherID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    out := make([]echo.Map, 0, len(items))
    for i := range items {
        out = append(out, bookingJSON(&items[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
