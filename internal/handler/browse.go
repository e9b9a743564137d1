package handler // handler package contains public campus browse handlers

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/repository"
)

// BrowseHandler serves the read-only campus hierarchy endpoints. These
// sit behind the response cache middleware; they never expose versions
// or anything a client could write back.
type BrowseHandler struct {
    Campus *repository.CampusRepo
}

// NewBrowseHandler constructs a BrowseHandler and panics if the repository is nil.
func NewBrowseHandler(campus *repository.CampusRepo) *BrowseHandler {
    if campus == nil {
        panic("nil repository passed to NewBrowseHandler")
    }
    return &BrowseHandler{Campus: campus}
}

// ListBuildings handles GET /v1/buildings.
func (h *BrowseHandler) ListBuildings(c echo.Context) error {
    items, err := h.Campus.ListBuildings(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListBuildingRooms handles GET /v1/buildings/:id/rooms.
func (h *BrowseHandler) ListBuildingRooms(c echo.Context) error {
    buildingID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Campus.GetBuilding(ctx, buildingID); err != nil {
        if errors.Is(err, repository.ErrBuildingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "building not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    rooms, err := h.Campus.ListRoomsByBuilding(ctx, buildingID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    items := make([]echo.Map, 0, len(rooms))
    for i := range rooms {
        items = append(items, roomJSON(&rooms[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
