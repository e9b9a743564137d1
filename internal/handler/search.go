package handler // handler package contains the room search handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/campushq/campus-reservation/internal/search"
)

// SearchHandler serves GET /v1/rooms/search.
type SearchHandler struct {
    Ranker *search.Ranker
    Log    *zap.Logger
}

// NewSearchHandler constructs a SearchHandler and panics if any dependency is nil.
func NewSearchHandler(ranker *search.Ranker, log *zap.Logger) *SearchHandler {
    if ranker == nil || log == nil {
        panic("nil dependency passed to NewSearchHandler")
    }
    return &SearchHandler{Ranker: ranker, Log: log}
}

// SearchRooms ranks rooms for a (capacity, branch, window) query.
// from_room_id is optional and anchors the proximity term; without it
// every candidate scores full proximity.
func (h *SearchHandler) SearchRooms(c echo.Context) error {
    capacity, err := strconv.ParseUint(c.QueryParam("capacity"), 10, 32)
    if err != nil || capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be a positive integer"})
    }
    branch := strings.TrimSpace(c.QueryParam("branch"))
    if branch == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch is required"})
    }
    start, end, err := parseWindow(c.QueryParam("starts_at"), c.QueryParam("ends_at"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if !start.Before(end) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be before ends_at"})
    }
    var fromRoomID uint64
    if raw := c.QueryParam("from_room_id"); raw != "" {
        fromRoomID, err = strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from_room_id"})
        }
    }

    results, err := h.Ranker.Search(c.Request().Context(), search.Criteria{
        Capacity:   uint32(capacity),
        Branch:     branch,
        Start:      start,
        End:        end,
        FromRoomID: fromRoomID,
    })
    if err != nil {
        h.Log.Error("room search failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": results})
}
