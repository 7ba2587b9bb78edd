// Package memstore is an in-process implementation of the repository
// contracts.  It backs the memory storage driver used for local runs and the
// service, dispatcher and handler tests.  A single mutex serialises every
// operation, which gives it the same one-active-booking-per-slot guarantee
// the MySQL unique index provides.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/repository"
)

type slotKey struct {
	provider uint64
	date     string
	label    string
}

// Store holds providers, slots and bookings in memory.
type Store struct {
	mu sync.Mutex

	now func() time.Time

	nextProvider uint64
	nextSlot     uint64
	nextBooking  uint64

	providers map[uint64]model.Provider
	slots     map[uint64]model.Slot
	slotIndex map[slotKey]uint64
	bookings  map[uint64]model.Booking
	active    map[slotKey]uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		providers: make(map[uint64]model.Provider),
		slots:     make(map[uint64]model.Slot),
		slotIndex: make(map[slotKey]uint64),
		bookings:  make(map[uint64]model.Booking),
		active:    make(map[slotKey]uint64),
	}
}

// SetClock replaces the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Providers returns the provider half of the store.
func (s *Store) Providers() *Providers { return &Providers{s} }

// Slots returns the slot half of the store.
func (s *Store) Slots() *Slots { return &Slots{s} }

// Bookings returns the booking half of the store.
func (s *Store) Bookings() *Bookings { return &Bookings{s} }

// Providers implements the provider repository contract.
type Providers struct{ s *Store }

func (p *Providers) Create(_ context.Context, pr *model.Provider) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	pr.Slug = strings.ToLower(strings.TrimSpace(pr.Slug))
	for _, existing := range s.providers {
		if existing.Slug == pr.Slug {
			return repository.ErrDuplicate
		}
	}
	s.nextProvider++
	pr.ID = s.nextProvider
	pr.CreatedAt = s.now()
	pr.UpdatedAt = pr.CreatedAt
	s.providers[pr.ID] = *pr
	return nil
}

func (p *Providers) GetByID(_ context.Context, id uint64) (model.Provider, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pr, ok := p.s.providers[id]
	if !ok {
		return model.Provider{}, repository.ErrNotFound
	}
	return pr, nil
}

func (p *Providers) GetBySlug(_ context.Context, slug string) (model.Provider, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, pr := range p.s.providers {
		if pr.Slug == slug {
			return pr, nil
		}
	}
	return model.Provider{}, repository.ErrNotFound
}

func (p *Providers) UpdateContact(_ context.Context, id uint64, phone, whatsapp *string) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.providers[id]
	if !ok {
		return repository.ErrNotFound
	}
	pr.Phone = phone
	pr.WhatsAppNumber = whatsapp
	pr.UpdatedAt = s.now()
	s.providers[id] = pr
	return nil
}

// Slots implements the slot repository contract.
type Slots struct{ s *Store }

func (sl *Slots) UpsertBatch(_ context.Context, providerID uint64, date string, labels []string) error {
	s := sl.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range labels {
		k := slotKey{providerID, date, l}
		if _, ok := s.slotIndex[k]; ok {
			continue
		}
		s.nextSlot++
		s.slots[s.nextSlot] = model.Slot{
			ID: s.nextSlot, ProviderID: providerID, Date: date, TimeLabel: l, CreatedAt: s.now(),
		}
		s.slotIndex[k] = s.nextSlot
	}
	return nil
}

func (sl *Slots) ListByDate(_ context.Context, providerID uint64, date string) ([]model.Slot, error) {
	s := sl.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Slot
	for _, v := range s.slots {
		if v.ProviderID == providerID && v.Date == date {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeLabel < out[j].TimeLabel })
	return out, nil
}

func (sl *Slots) GetByIDForProvider(_ context.Context, id, providerID uint64) (model.Slot, error) {
	sl.s.mu.Lock()
	defer sl.s.mu.Unlock()
	return sl.s.ownedSlot(id, providerID)
}

func (sl *Slots) SetBlocked(_ context.Context, id, providerID uint64, blocked bool) (model.Slot, error) {
	s := sl.s
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.ownedSlot(id, providerID)
	if err != nil {
		return model.Slot{}, err
	}
	v.Blocked = blocked
	s.slots[id] = v
	return v, nil
}

func (sl *Slots) DeleteIfFree(_ context.Context, id, providerID uint64) error {
	s := sl.s
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.ownedSlot(id, providerID)
	if err != nil {
		return err
	}
	k := slotKey{v.ProviderID, v.Date, v.TimeLabel}
	if _, held := s.active[k]; held {
		return repository.ErrConflict
	}
	delete(s.slots, id)
	delete(s.slotIndex, k)
	return nil
}

func (s *Store) ownedSlot(id, providerID uint64) (model.Slot, error) {
	v, ok := s.slots[id]
	if !ok {
		return model.Slot{}, repository.ErrNotFound
	}
	if v.ProviderID != providerID {
		return model.Slot{}, repository.ErrForbidden
	}
	return v, nil
}

// Bookings implements the booking repository contract.
type Bookings struct{ s *Store }

func (bk *Bookings) CreateForSlot(_ context.Context, b *model.Booking) error {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	k := slotKey{b.ProviderID, b.Date, b.TimeLabel}
	slotID, ok := s.slotIndex[k]
	if !ok || s.slots[slotID].Blocked {
		return repository.ErrSlotClosed
	}
	if b.Status != model.StatusCancelled {
		if _, held := s.active[k]; held {
			return repository.ErrDuplicate
		}
	}
	s.nextBooking++
	b.ID = s.nextBooking
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = *b
	if b.Status != model.StatusCancelled {
		s.active[k] = b.ID
	}
	return nil
}

func (bk *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	bk.s.mu.Lock()
	defer bk.s.mu.Unlock()
	b, ok := bk.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (bk *Bookings) GetByIDForProvider(ctx context.Context, id, providerID uint64) (model.Booking, error) {
	b, err := bk.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.ProviderID != providerID {
		return model.Booking{}, repository.ErrForbidden
	}
	return b, nil
}

func (bk *Bookings) ListByDate(_ context.Context, providerID uint64, date string) ([]model.Booking, error) {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ProviderID == providerID && b.Date == date {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeLabel != out[j].TimeLabel {
			return out[i].TimeLabel < out[j].TimeLabel
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (bk *Bookings) ActiveLabels(_ context.Context, providerID uint64, date string) (map[string]bool, error) {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for k := range s.active {
		if k.provider == providerID && k.date == date {
			out[k.label] = true
		}
	}
	return out, nil
}

func (bk *Bookings) UpdateStatus(_ context.Context, id uint64, from, to string) error {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrStale
	}
	k := slotKey{b.ProviderID, b.Date, b.TimeLabel}
	wasActive, nowActive := b.Active(), to != model.StatusCancelled
	if !wasActive && nowActive {
		if _, held := s.active[k]; held {
			return repository.ErrDuplicate
		}
	}
	b.Status = to
	b.UpdatedAt = s.now()
	s.bookings[id] = b
	switch {
	case wasActive && !nowActive:
		delete(s.active, k)
	case !wasActive && nowActive:
		s.active[k] = id
	}
	return nil
}

func (bk *Bookings) SetNotificationStatus(_ context.Context, id uint64, status string) error {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	b.NotificationStatus = status
	s.bookings[id] = b
	return nil
}

func (bk *Bookings) ListByNotificationStatus(_ context.Context, q repository.NotificationQuery) ([]model.Booking, error) {
	s := bk.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.NotificationStatus != q.Status {
			continue
		}
		if q.ProviderID != nil && b.ProviderID != *q.ProviderID {
			continue
		}
		if !q.CreatedAfter.IsZero() && b.CreatedAt.Before(q.CreatedAfter) {
			continue
		}
		if !q.CreatedBefore.IsZero() && !b.CreatedAt.Before(q.CreatedBefore) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.NewestFirst {
			i, j = j, i
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
