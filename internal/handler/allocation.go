package handler // handler package contains admin allocation handlers

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/allocation"
    "github.com/campushq/campus-reservation/internal/repository"
)

// AllocationHandler serves the admin-triggered allocation routes: a pass
// over one room, a pass over a whole building, and single-student
// displacement repair.
type AllocationHandler struct {
    Engine *allocation.Engine
    Rooms  *repository.RoomRepo
    Campus *repository.CampusRepo
    Seats  *repository.SeatRepo
    Log    *zap.Logger
}

// NewAllocationHandler constructs an AllocationHandler and panics if any dependency is nil.
func NewAllocationHandler(engine *allocation.Engine, rooms *repository.RoomRepo, campus *repository.CampusRepo, seats *repository.SeatRepo, log *zap.Logger) *AllocationHandler {
    if engine == nil || rooms == nil || campus == nil || seats == nil || log == nil {
        panic("nil dependency passed to NewAllocationHandler")
    }
    return &AllocationHandler{Engine: engine, Rooms: rooms, Campus: campus, Seats: seats, Log: log}
}

// bindBranch reads the branch field shared by the allocation bodies.
func bindBranch(c echo.Context) (string, bool) {
    var body struct {
        Branch string `json:"branch"`
    }
    if err := c.Bind(&body); err != nil {
        return "", false
    }
    branch := strings.TrimSpace(body.Branch)
    return branch, branch != ""
}

// AllocateRoom handles POST /v1/rooms/:id/allocate and runs one pass of
// the engine over a single room for a branch.
func (h *AllocationHandler) AllocateRoom(c echo.Context) error {
    roomID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    branch, ok := bindBranch(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch is required"})
    }
    if _, err := h.Rooms.GetByID(c.Request().Context(), roomID); err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    res, err := h.Engine.Allocate(c.Request().Context(), branch, []uint64{roomID})
    if err != nil {
        h.Log.Error("room allocation failed", zap.Uint64("room_id", roomID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "allocation failed"})
    }
    return c.JSON(http.StatusOK, res)
}

// AllocateBuilding handles POST /v1/buildings/:id/allocate and runs one
// pass over every room of the building.
func (h *AllocationHandler) AllocateBuilding(c echo.Context) error {
    buildingID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    branch, ok := bindBranch(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch is required"})
    }
    if _, err := h.Campus.GetBuilding(c.Request().Context(), buildingID); err != nil {
        if errors.Is(err, repository.ErrBuildingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "building not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    roomIDs, err := h.Campus.ListRoomIDsByBuilding(c.Request().Context(), buildingID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    res, err := h.Engine.Allocate(c.Request().Context(), branch, roomIDs)
    if err != nil {
        h.Log.Error("building allocation failed", zap.Uint64("building_id", buildingID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "allocation failed"})
    }
    return c.JSON(http.StatusOK, res)
}

// ReallocateStudent handles POST /v1/students/:id/reallocate and moves
// one unseated student onto a compatible seat within a building. An
// exclude_room_id keeps the student out of the room their seat was just
// lost in.
func (h *AllocationHandler) ReallocateStudent(c echo.Context) error {
    studentID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        BuildingID    uint64 `json:"building_id"`
        ExcludeRoomID uint64 `json:"exclude_room_id"`
    }
    if err := c.Bind(&body); err != nil || body.BuildingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "building_id is required"})
    }
    seat, err := h.Engine.ReallocateStudent(c.Request().Context(), studentID, body.BuildingID, body.ExcludeRoomID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrStudentNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
        case errors.Is(err, allocation.ErrStudentAlreadySeated):
            return c.JSON(http.StatusConflict, echo.Map{"error": "student already has a seat"})
        case errors.Is(err, allocation.ErrNoSeatAvailable):
            return c.JSON(http.StatusConflict, echo.Map{"error": "no suitable seat available in the building"})
        }
        h.Log.Error("student reallocation failed", zap.Uint64("student_id", studentID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reallocation failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"seat": seatJSON(seat)})
}
