package service

import (
	"context"
	"errors"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/repository"
)

// ProviderStore is the provider persistence the services need.  Both
// *repository.ProviderRepo and the memstore implement it.
type ProviderStore interface {
	Create(ctx context.Context, p *model.Provider) error
	GetByID(ctx context.Context, id uint64) (model.Provider, error)
	GetBySlug(ctx context.Context, slug string) (model.Provider, error)
	UpdateContact(ctx context.Context, id uint64, phone, whatsapp *string) error
}

// SlotStore is the slot persistence the inventory needs.
type SlotStore interface {
	UpsertBatch(ctx context.Context, providerID uint64, date string, labels []string) error
	ListByDate(ctx context.Context, providerID uint64, date string) ([]model.Slot, error)
	GetByIDForProvider(ctx context.Context, id, providerID uint64) (model.Slot, error)
	SetBlocked(ctx context.Context, id, providerID uint64, blocked bool) (model.Slot, error)
	DeleteIfFree(ctx context.Context, id, providerID uint64) error
}

// BookingStore is the booking persistence the arbiter and dispatcher need.
type BookingStore interface {
	CreateForSlot(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetByIDForProvider(ctx context.Context, id, providerID uint64) (model.Booking, error)
	ListByDate(ctx context.Context, providerID uint64, date string) ([]model.Booking, error)
	ActiveLabels(ctx context.Context, providerID uint64, date string) (map[string]bool, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string) error
	SetNotificationStatus(ctx context.Context, id uint64, status string) error
	ListByNotificationStatus(ctx context.Context, q repository.NotificationQuery) ([]model.Booking, error)
}

var (
	_ ProviderStore = (*repository.ProviderRepo)(nil)
	_ SlotStore     = (*repository.SlotRepo)(nil)
	_ BookingStore  = (*repository.BookingRepo)(nil)
)

// storeErr converts repository sentinels into domain errors.  Unknown
// errors pass through unchanged.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, repository.ErrConflict):
		return ErrSlotOccupied
	case errors.Is(err, repository.ErrDuplicate):
		return ErrSlotConflict
	case errors.Is(err, repository.ErrSlotClosed):
		return ErrSlotUnavailable
	}
	return err
}
