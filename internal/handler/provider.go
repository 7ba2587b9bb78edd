package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/notify"
	"github.com/iliyamo/clinic-booking/internal/service"
)

// ProviderHandler serves the authenticated provider API: profile, slots,
// bookings and failed messages.  Every handler reads the provider id set by
// the JWT middleware and only touches that provider's data.
type ProviderHandler struct {
	Providers    *service.ProviderService
	Inventory    *service.InventoryService
	Reservations *service.ReservationService
	Dispatcher   *notify.Dispatcher
	Log          *zap.Logger
}

// NewProviderHandler panics if any service is nil.
func NewProviderHandler(p *service.ProviderService, inv *service.InventoryService, res *service.ReservationService, d *notify.Dispatcher, log *zap.Logger) *ProviderHandler {
	if p == nil || inv == nil || res == nil || d == nil {
		panic("nil service passed to NewProviderHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderHandler{Providers: p, Inventory: inv, Reservations: res, Dispatcher: d, Log: log}
}

type providerResp struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Phone          *string `json:"phone"`
	WhatsAppNumber *string `json:"whatsapp_number"`
}

func toProviderResp(p model.Provider) providerResp {
	return providerResp{ID: p.ID, Name: p.Name, Slug: p.Slug, Phone: p.Phone, WhatsAppNumber: p.WhatsAppNumber}
}

// Me returns the caller's profile.
func (h *ProviderHandler) Me(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	p, err := h.Providers.Get(ctx, pid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toProviderResp(p))
}

type contactReq struct {
	Phone          string `json:"phone"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

// UpdateContact replaces the caller's contact numbers.  Empty values clear
// a number; clearing the WhatsApp number switches confirmations to SMS.
func (h *ProviderHandler) UpdateContact(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	p, err := h.Providers.UpdateContact(ctx, pid, req.Phone, req.WhatsAppNumber)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toProviderResp(p))
}

type generateReq struct {
	Date      string `json:"date"`
	StartHour *int   `json:"start_hour"`
	EndHour   *int   `json:"end_hour"`
}

// GenerateSlots creates half-hour slots for a date and hour range and
// returns the whole day.
func (h *ProviderHandler) GenerateSlots(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Date == "" || req.StartHour == nil || req.EndHour == nil {
		return badRequest(c, "date, start_hour and end_hour required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	slots, err := h.Inventory.GenerateSlots(ctx, pid, req.Date, *req.StartHour, *req.EndHour)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return c.JSON(http.StatusOK, echo.Map{"date": req.Date, "slots": slots})
}

// ListSlots returns the caller's slots for ?date= with occupancy flags.
func (h *ProviderHandler) ListSlots(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	date := c.QueryParam("date")
	if date == "" {
		return badRequest(c, "date required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	slots, err := h.Inventory.ListDay(ctx, pid, date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "slots": slots})
}

type blockReq struct {
	Blocked *bool `json:"blocked"`
}

// SetBlocked blocks or unblocks one of the caller's slots.
func (h *ProviderHandler) SetBlocked(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var req blockReq
	if err := c.Bind(&req); err != nil || req.Blocked == nil {
		return badRequest(c, "blocked required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	slot, err := h.Inventory.SetBlocked(ctx, id, pid, *req.Blocked)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, slot)
}

// DeleteSlot removes one of the caller's slots unless it is booked.
func (h *ProviderHandler) DeleteSlot(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Inventory.DeleteSlot(ctx, id, pid); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBookings returns the caller's bookings for ?date=.
func (h *ProviderHandler) ListBookings(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	date := c.QueryParam("date")
	if date == "" {
		return badRequest(c, "date required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	out, err := h.Reservations.ListBookings(ctx, pid, date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "bookings": out})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateBookingStatus moves one of the caller's bookings to a new status.
func (h *ProviderHandler) UpdateBookingStatus(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return badRequest(c, "status required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.Reservations.UpdateStatus(ctx, id, pid, req.Status)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListFailedMessages returns the caller's latest failed confirmations.
func (h *ProviderHandler) ListFailedMessages(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	out, err := h.Dispatcher.ListFailed(ctx, pid, notify.DefaultFailedLimit)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}

type retryReq struct {
	WindowHours int `json:"window_hours"`
	Limit       int `json:"limit"`
}

// RetryFailedMessages re-sends the caller's failed confirmations and
// reports how many went out.  The batch runs on the request's own context,
// bounded by its limit rather than the usual request timeout.
func (h *ProviderHandler) RetryFailedMessages(c echo.Context) error {
	pid, err := currentProvider(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req retryReq
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	if req.Limit > notify.DefaultRetryLimit {
		req.Limit = notify.DefaultRetryLimit
	}
	res, err := h.Dispatcher.RetryFailed(c.Request().Context(), notify.RetryOptions{
		ProviderID:  &pid,
		WindowHours: req.WindowHours,
		Limit:       req.Limit,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}
