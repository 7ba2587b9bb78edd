package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/middleware"
	"github.com/iliyamo/clinic-booking/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_input"})
}

// currentProvider returns the authenticated provider id, or
// service.ErrUnauthorized when the JWT middleware did not set one.
func currentProvider(c echo.Context) (uint64, error) {
	id, ok := middleware.ProviderID(c)
	if !ok {
		return 0, service.ErrUnauthorized
	}
	return id, nil
}

// errorStatus maps domain errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSlotConflict):
		return http.StatusConflict, "slot_conflict"
	case errors.Is(err, service.ErrSlotUnavailable):
		return http.StatusBadRequest, "slot_unavailable"
	case errors.Is(err, service.ErrSlotOccupied):
		return http.StatusConflict, "slot_occupied"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "invalid_transition"
	case errors.Is(err, service.ErrInvalidPhone):
		return http.StatusBadRequest, "invalid_phone"
	case errors.Is(err, service.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, service.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrSlugTaken):
		return http.StatusConflict, "slug_taken"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError renders err as {"error", "code"}.  Unknown errors are logged
// and hidden behind a generic message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}
