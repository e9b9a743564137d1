package router

import (
    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/handler"
    "github.com/campushq/campus-reservation/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1: allocation
// passes, seat status management and room provisioning.
func RegisterAdmin(e *echo.Echo, a *handler.AllocationHandler, st *handler.SeatHandler, rm *handler.RoomHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )

    // ---- Allocation ----
    g.POST("/rooms/:id/allocate", a.AllocateRoom)
    g.POST("/buildings/:id/allocate", a.AllocateBuilding)
    g.POST("/students/:id/reallocate", a.ReallocateStudent)

    // ---- Seats ----
    g.PATCH("/seats/:id/status", st.UpdateSeatStatus)
    g.GET("/rooms/:id/seats", st.ListRoomSeats)

    // ---- Rooms ----
    g.POST("/rooms", rm.CreateRoom)
    g.DELETE("/rooms/:id", rm.DeleteRoom)
}
