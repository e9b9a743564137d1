package handler // handler package contains seat status and seat map handlers

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/allocation"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/realtime"
    "github.com/campushq/campus-reservation/internal/repository"
)

// Emitter announces seat changes on the realtime fan-out.
type Emitter interface {
    Emit(event string, payload any)
}

// SeatHandler serves seat status updates and the per-room seat map.
type SeatHandler struct {
    Seats  *repository.SeatRepo
    Rooms  *repository.RoomRepo
    Campus *repository.CampusRepo
    Engine *allocation.Engine
    Events Emitter
    Log    *zap.Logger
}

// NewSeatHandler constructs a SeatHandler and panics if any dependency is nil.
func NewSeatHandler(seats *repository.SeatRepo, rooms *repository.RoomRepo, campus *repository.CampusRepo, engine *allocation.Engine, events Emitter, log *zap.Logger) *SeatHandler {
    if seats == nil || rooms == nil || campus == nil || engine == nil || events == nil || log == nil {
        panic("nil dependency passed to NewSeatHandler")
    }
    return &SeatHandler{Seats: seats, Rooms: rooms, Campus: campus, Engine: engine, Events: events, Log: log}
}

// UpdateSeatStatus handles PATCH /v1/seats/:id/status. The caller must
// send the version it last read; a stale version is rejected with 409
// and the current seat state so the client can re-read and retry.
// Taking an allocated seat out of service displaces its student; the
// handler immediately tries to re-seat them elsewhere in the building
// and reports the outcome either way.
func (h *SeatHandler) UpdateSeatStatus(c echo.Context) error {
    seatID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        Status  string  `json:"status"`
        Version *uint32 `json:"version"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Version == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "version is required"})
    }
    switch body.Status {
    case model.SeatAvailable, model.SeatBroken, model.SeatBlocked:
    case model.SeatAllocated:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats are allocated by the engine, not by status update"})
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be AVAILABLE, BROKEN or BLOCKED"})
    }

    ctx := c.Request().Context()
    before, err := h.Seats.GetByID(ctx, seatID)
    if err != nil {
        if errors.Is(err, repository.ErrSeatNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if before.Version != *body.Version {
        return c.JSON(http.StatusConflict, echo.Map{
            "error": "seat was modified by someone else",
            "seat":  seatJSON(before),
        })
    }
    var displacedID *uint64
    if before.Status == model.SeatAllocated {
        displacedID = before.StudentID
    }

    updated, err := h.Seats.SetStatusVersioned(ctx, seatID, body.Status, *body.Version)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrSeatNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
        case errors.Is(err, repository.ErrVersionConflict):
            fresh, ferr := h.Seats.GetByID(ctx, seatID)
            if ferr != nil {
                return c.JSON(http.StatusConflict, echo.Map{"error": "seat was modified by someone else"})
            }
            return c.JSON(http.StatusConflict, echo.Map{
                "error": "seat was modified by someone else",
                "seat":  seatJSON(fresh),
            })
        }
        h.Log.Error("seat status update failed", zap.Uint64("seat_id", seatID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update seat"})
    }
    h.Events.Emit(realtime.EventSeatUpdated, seatJSON(updated))

    resp := echo.Map{"seat": seatJSON(updated)}
    if displacedID != nil {
        resp["displaced"] = h.repairDisplacement(c, updated, *displacedID)
    }
    return c.JSON(http.StatusOK, resp)
}

// repairDisplacement re-seats a student whose seat was just taken out of
// service. The repair is best-effort: a student the building cannot
// absorb stays unseated and is reported so staff can intervene.
func (h *SeatHandler) repairDisplacement(c echo.Context, seat *model.Seat, studentID uint64) echo.Map {
    ctx := c.Request().Context()
    loc, err := h.Campus.GetRoomLocation(ctx, seat.RoomID)
    if err != nil {
        h.Log.Error("displacement repair failed to resolve building",
            zap.Uint64("room_id", seat.RoomID), zap.Error(err))
        return echo.Map{"student_id": studentID, "reallocated": false, "reason": "could not resolve building"}
    }
    newSeat, err := h.Engine.ReallocateStudent(ctx, studentID, loc.BuildingID, seat.RoomID)
    if err != nil {
        if errors.Is(err, allocation.ErrNoSeatAvailable) {
            return echo.Map{"student_id": studentID, "reallocated": false, "reason": "No suitable seats available"}
        }
        h.Log.Error("displacement repair failed",
            zap.Uint64("student_id", studentID), zap.Error(err))
        return echo.Map{"student_id": studentID, "reallocated": false, "reason": "reallocation failed"}
    }
    return echo.Map{"student_id": studentID, "reallocated": true, "seat": seatJSON(newSeat)}
}

// ListRoomSeats handles GET /v1/rooms/:id/seats and returns the room's
// seat grid in (row, col) order.
func (h *SeatHandler) ListRoomSeats(c echo.Context) error {
    roomID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    room, err := h.Rooms.GetByID(ctx, roomID)
    if err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    seats, err := h.Seats.ListByRoom(ctx, roomID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    items := make([]echo.Map, 0, len(seats))
    for i := range seats {
        items = append(items, seatJSON(&seats[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "room":  roomJSON(room),
        "seats": items,
    })
}
