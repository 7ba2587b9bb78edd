// Package router registers the HTTP routes of the booking API.
package router

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking/internal/handler"
)

// RegisterRoutes registers the probe endpoints.  ping is used by /readyz to
// check the storage backend and may be nil.
func RegisterRoutes(e *echo.Echo, ping func(ctx context.Context) error) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ping))
}

// RegisterAuth registers the unauthenticated token endpoint under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}
