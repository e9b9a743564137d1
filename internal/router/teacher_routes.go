package router

import (
    "github.com/labstack/echo/v4"

    "github.com/campushq/campus-reservation/internal/handler"
    "github.com/campushq/campus-reservation/internal/middleware"
)

// RegisterTeacher registers TEACHER-scoped endpoints under /v1: the
// booking lifecycle and the room search. Admins may call them too, e.g.
// to book on a teacher's behalf during walk-in registration.
func RegisterTeacher(e *echo.Echo, b *handler.BookingHandler, s *handler.SearchHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("TEACHER", "ADMIN"),
    )

    // ---- Bookings ----
    g.POST("/bookings", b.CreateBooking)
    g.GET("/bookings", b.ListMyBookings)
    g.GET("/bookings/:id", b.GetBooking)
    g.DELETE("/bookings/:id", b.CancelBooking)

    // ---- Search ----
    g.GET("/rooms/search", s.SearchRooms)
}
