package middleware

import "github.com/labstack/echo/v4"

// ProviderID returns the authenticated provider id stored by JWTAuth.
func ProviderID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextProviderID).(uint64)
	return id, ok && id > 0
}
