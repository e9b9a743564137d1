package handler // handler package contains admin room provisioning handlers

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/database"
    "github.com/campushq/campus-reservation/internal/model"
    "github.com/campushq/campus-reservation/internal/repository"
)

// RoomHandler serves room provisioning: creating a room with its seat
// grid and deleting a room that has no active bookings.
type RoomHandler struct {
    DB       *sql.DB
    Rooms    *repository.RoomRepo
    Seats    *repository.SeatRepo
    Bookings *repository.BookingRepo
    Log      *zap.Logger
}

// NewRoomHandler constructs a RoomHandler and panics if any dependency is nil.
func NewRoomHandler(db *sql.DB, rooms *repository.RoomRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, log *zap.Logger) *RoomHandler {
    if db == nil || rooms == nil || seats == nil || bookings == nil || log == nil {
        panic("nil dependency passed to NewRoomHandler")
    }
    return &RoomHandler{DB: db, Rooms: rooms, Seats: seats, Bookings: bookings, Log: log}
}

// CreateRoom handles POST /v1/rooms and creates a room along with its
// seat grid. Seats are labeled rowLetter+columnNumber (A1, A2, ...);
// the optional features object assigns feature lists to labels, e.g.
// {"A1": ["wheelchair"]}.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
    var body struct {
        FloorID  uint64              `json:"floor_id"`
        Name     string              `json:"name"`
        SeatRows uint32              `json:"seat_rows"`
        SeatCols uint32              `json:"seat_cols"`
        Distance float64             `json:"distance"`
        Features map[string][]string `json:"features"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    name := strings.TrimSpace(body.Name)
    if body.FloorID == 0 || name == "" || body.SeatRows == 0 || body.SeatCols == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "floor_id, name, seat_rows and seat_cols are required and must be greater than zero",
        })
    }

    room := &model.Room{
        FloorID:  body.FloorID,
        Name:     name,
        Capacity: body.SeatRows * body.SeatCols,
        SeatRows: body.SeatRows,
        SeatCols: body.SeatCols,
        Distance: body.Distance,
    }
    ctx := c.Request().Context()
    if err := h.Rooms.Create(ctx, room); err != nil {
        h.Log.Error("room create failed", zap.String("name", name), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create room"})
    }

    total := int(body.SeatRows) * int(body.SeatCols)
    seats := make([]model.Seat, 0, total)
    for rIdx := uint32(0); rIdx < body.SeatRows; rIdx++ {
        rowLabel := indexToRowLabel(int(rIdx))
        for cIdx := uint32(0); cIdx < body.SeatCols; cIdx++ {
            label := rowLabel + strconv.FormatUint(uint64(cIdx+1), 10)
            seats = append(seats, model.Seat{
                RoomID:   room.ID,
                Label:    label,
                Row:      rIdx,
                Col:      cIdx,
                Status:   model.SeatAvailable,
                Features: body.Features[label],
            })
        }
    }
    if err := h.Seats.CreateBulk(ctx, seats); err != nil {
        h.Log.Error("seat grid create failed", zap.Uint64("room_id", room.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create seats"})
    }
    return c.JSON(http.StatusCreated, roomJSON(room))
}

// DeleteRoom handles DELETE /v1/rooms/:id. Rooms with an active booking
// cannot be deleted; the seats go in the same transaction as the room.
func (h *RoomHandler) DeleteRoom(c echo.Context) error {
    roomID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    active, err := h.Bookings.HasActiveByRoom(ctx, roomID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    if active {
        return c.JSON(http.StatusConflict, echo.Map{"error": "room has an active booking"})
    }
    err = database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
        if err := h.Seats.DeleteByRoomTx(ctx, tx, roomID); err != nil {
            return err
        }
        return h.Rooms.DeleteTx(ctx, tx, roomID)
    })
    if err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        h.Log.Error("room delete failed", zap.Uint64("room_id", roomID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete room"})
    }
    return c.NoContent(http.StatusNoContent)
}
