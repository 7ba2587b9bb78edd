package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/service"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrSlotConflict, http.StatusConflict, "slot_conflict"},
		{service.ErrSlotUnavailable, http.StatusBadRequest, "slot_unavailable"},
		{service.ErrSlotOccupied, http.StatusConflict, "slot_occupied"},
		{service.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
		{service.ErrInvalidPhone, http.StatusBadRequest, "invalid_phone"},
		{service.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
		{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("load: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{service.ErrSlugTaken, http.StatusConflict, "slug_taken"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := writeError(c, zap.NewNop(), errors.New("dial tcp 10.0.0.5:3306: refused")); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestProviderHandlerWithoutIdentity(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/provider/me", nil), rec)

	h := &ProviderHandler{Log: zap.NewNop()}
	if err := h.Me(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHealthHandlers(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)
	down := Ready(func(ctx context.Context) error { return errors.New("db down") })
	if err := down(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
