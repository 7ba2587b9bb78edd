package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/model"
)

// InventoryService owns providers' bookable slots.
type InventoryService struct {
	slots    SlotStore
	bookings BookingStore
	log      *zap.Logger
}

// NewInventoryService wires the inventory to its stores.  It panics on nil
// stores; a nil logger is replaced with a no-op one.
func NewInventoryService(slots SlotStore, bookings BookingStore, log *zap.Logger) *InventoryService {
	if slots == nil || bookings == nil {
		panic("nil store passed to NewInventoryService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryService{slots: slots, bookings: bookings, log: log}
}

// GenerateSlots creates the half-hour slots of [startHour, endHour) on date.
// Existing slots keep their blocked flag.  The full set of the day's slots
// is returned, including ones outside the requested range.
func (s *InventoryService) GenerateSlots(ctx context.Context, providerID uint64, date string, startHour, endHour int) ([]model.Slot, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if startHour < 0 || endHour > 24 || endHour <= startHour {
		return nil, ErrInvalidRange
	}
	labels := halfHourLabels(startHour, endHour)
	if err := s.slots.UpsertBatch(ctx, providerID, day, labels); err != nil {
		return nil, storeErr(err)
	}
	s.log.Info("slots generated",
		zap.Uint64("provider_id", providerID), zap.String("date", day),
		zap.Int("start_hour", startHour), zap.Int("end_hour", endHour), zap.Int("ticks", len(labels)))
	out, err := s.slots.ListByDate(ctx, providerID, day)
	return out, storeErr(err)
}

// SetBlocked opens or closes a slot owned by providerID.
func (s *InventoryService) SetBlocked(ctx context.Context, slotID, providerID uint64, blocked bool) (model.Slot, error) {
	slot, err := s.slots.SetBlocked(ctx, slotID, providerID, blocked)
	if err != nil {
		return model.Slot{}, storeErr(err)
	}
	return slot, nil
}

// DeleteSlot removes a slot owned by providerID.  A slot held by an active
// booking is refused with ErrSlotOccupied; bookings are never cascaded.
func (s *InventoryService) DeleteSlot(ctx context.Context, slotID, providerID uint64) error {
	if err := s.slots.DeleteIfFree(ctx, slotID, providerID); err != nil {
		return storeErr(err)
	}
	s.log.Info("slot deleted", zap.Uint64("slot_id", slotID), zap.Uint64("provider_id", providerID))
	return nil
}

// AvailableSlot is an open, unbooked slot as shown to clients.
type AvailableSlot struct {
	ID            uint64 `json:"id"`
	TimeLabel     string `json:"time_slot"`
	FormattedTime string `json:"formatted_time"`
}

// Availability is the public view of a provider's day.
type Availability struct {
	Date        string          `json:"date"`
	Slots       []AvailableSlot `json:"available_slots"`
	TotalSlots  int             `json:"total_slots"`
	BookedSlots int             `json:"booked_slots"`
}

// ListAvailable returns the slots of a day that are neither blocked nor
// held by an active booking, ordered by label.  It reads current booking
// state on every call.
func (s *InventoryService) ListAvailable(ctx context.Context, providerID uint64, date string) (Availability, error) {
	day, err := parseDate(date)
	if err != nil {
		return Availability{}, err
	}
	slots, booked, err := s.day(ctx, providerID, day)
	if err != nil {
		return Availability{}, err
	}
	av := Availability{Date: day, Slots: []AvailableSlot{}, TotalSlots: len(slots), BookedSlots: len(booked)}
	for _, sl := range slots {
		if sl.Blocked || booked[sl.TimeLabel] {
			continue
		}
		av.Slots = append(av.Slots, AvailableSlot{ID: sl.ID, TimeLabel: sl.TimeLabel, FormattedTime: FormatLabel(sl.TimeLabel)})
	}
	return av, nil
}

// SlotView is a slot annotated with its occupancy for the provider.
type SlotView struct {
	model.Slot
	Booked bool `json:"booked"`
}

// ListDay returns every slot of a provider's day with an occupancy flag.
func (s *InventoryService) ListDay(ctx context.Context, providerID uint64, date string) ([]SlotView, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	slots, booked, err := s.day(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	out := make([]SlotView, 0, len(slots))
	for _, sl := range slots {
		out = append(out, SlotView{Slot: sl, Booked: booked[sl.TimeLabel]})
	}
	return out, nil
}

func (s *InventoryService) day(ctx context.Context, providerID uint64, day string) ([]model.Slot, map[string]bool, error) {
	slots, err := s.slots.ListByDate(ctx, providerID, day)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	booked, err := s.bookings.ActiveLabels(ctx, providerID, day)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	return slots, booked, nil
}
