// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/fairwaylabs/teesheet/internal/handler"
	"github.com/fairwaylabs/teesheet/internal/middleware"
)

// RegisterRoutes registers the unauthenticated surface: health check,
// login, the grid fetch and the live stream. Watching an event needs
// no session; reserving does.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler, r *handler.RegistrationHandler, live *handler.LiveHandler) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/auth/login", a.Login)
	e.GET("/v1/events/:id/slots", r.Slots)
	e.GET("/v1/events/:id/live", live.Stream)
}

// RegisterReservations registers the authenticated reservation
// operations. Every route validates the bearer token and runs through
// the rate limiter.
func RegisterReservations(e *echo.Echo, a *handler.AuthHandler, r *handler.RegistrationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}
	g.GET("/me", a.Me)
	g.POST("/events/:id/reserve", r.Reserve)
	g.GET("/registrations/:id", r.Get)
	g.POST("/registrations/:id/players", r.AddPlayers)
	g.POST("/registrations/:id/drop", r.DropPlayers)
	g.PUT("/registrations/:id/notes", r.UpdateNotes)
	g.DELETE("/registrations/:id", r.Cancel)
}
