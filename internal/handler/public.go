package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/service"
)

// PublicHandler serves the unauthenticated booking page: provider lookup,
// availability and reservation.
type PublicHandler struct {
	Providers    *service.ProviderService
	Inventory    *service.InventoryService
	Reservations *service.ReservationService
	Log          *zap.Logger
}

func NewPublicHandler(p *service.ProviderService, inv *service.InventoryService, res *service.ReservationService, log *zap.Logger) *PublicHandler {
	if p == nil || inv == nil || res == nil {
		panic("nil service passed to NewPublicHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Providers: p, Inventory: inv, Reservations: res, Log: log}
}

type publicProvider struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// GetProvider resolves a booking page slug.  Contact numbers are not exposed.
func (h *PublicHandler) GetProvider(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return badRequest(c, "slug required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	p, err := h.Providers.GetBySlug(ctx, slug)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, publicProvider{ID: p.ID, Name: p.Name, Slug: p.Slug})
}

// Availability lists the open slots of provider :id on ?date=.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	date := c.QueryParam("date")
	if date == "" {
		return badRequest(c, "date required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	av, err := h.Inventory.ListAvailable(ctx, id, date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, av)
}

type bookingReq struct {
	ProviderID  uint64 `json:"provider_id"`
	Date        string `json:"date"`
	TimeSlot    string `json:"time_slot"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

type bookingResp struct {
	ID            uint64 `json:"id"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	FormattedTime string `json:"formatted_time"`
}

// CreateBooking reserves a slot for a client.  A slot someone else just took
// answers 409 so the page can refresh availability.
func (h *PublicHandler) CreateBooking(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ProviderID == 0 || req.Date == "" || req.TimeSlot == "" ||
		strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.ClientPhone) == "" {
		return badRequest(c, "provider_id, date, time_slot, client_name and client_phone required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.Reservations.Reserve(ctx, service.ReserveInput{
		ProviderID:  req.ProviderID,
		Date:        req.Date,
		TimeLabel:   req.TimeSlot,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, bookingResp{
		ID:            b.ID,
		Status:        b.Status,
		Date:          b.Date,
		TimeSlot:      b.TimeLabel,
		FormattedTime: service.FormatLabel(b.TimeLabel),
	})
}
