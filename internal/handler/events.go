package handler // handler package contains the realtime events endpoint

import (
    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/realtime"
)

// EventsHandler upgrades GET /v1/events to a websocket streaming every
// emitted domain event to the connected dashboard.
type EventsHandler struct {
    Hub *realtime.Hub
}

// NewEventsHandler constructs an EventsHandler and panics if the hub is nil.
func NewEventsHandler(hub *realtime.Hub) *EventsHandler {
    if hub == nil {
        panic("nil hub passed to NewEventsHandler")
    }
    return &EventsHandler{Hub: hub}
}

// Stream hands the connection to the hub; the hub owns it from here.
func (h *EventsHandler) Stream(c echo.Context) error {
    return h.Hub.ServeWS(c.Response(), c.Request())
}
