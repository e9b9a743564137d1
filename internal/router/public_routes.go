package router

import (
    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/handler"
)

// RegisterPublic registers the unauthenticated campus browse endpoints.
// The caller passes the response cache middleware already bound to its
// Redis client; the seat map stays uncached because it carries live
// versions.
func RegisterPublic(e *echo.Echo, p *handler.BrowseHandler, cache echo.MiddlewareFunc) {
    e.GET("/v1/buildings", p.ListBuildings, cache)
    e.GET("/v1/buildings/:id/rooms", p.ListBuildingRooms, cache)
}
