package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/handler"
)

// RegisterRoutes registers the routes that carry no authentication: the
// health check and the realtime event stream dashboards subscribe to.
func RegisterRoutes(e *echo.Echo, events *handler.EventsHandler) {
    e.GET("/healthz", handler.Health)
    e.GET("/v1/events", events.Stream)
}
