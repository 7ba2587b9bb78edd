package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/queue"
	"github.com/iliyamo/clinic-booking/internal/repository"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// enqueueTimeout bounds a single background hand-off to the job queue.
const enqueueTimeout = 5 * time.Second

// ReservationService turns open slots into bookings.  The one-booking-per-
// slot rule is enforced by the store; this type never checks occupancy
// itself before inserting.
type ReservationService struct {
	providers ProviderStore
	bookings  BookingStore
	jobs      queue.Enqueuer
	phones    *utils.PhoneValidator
	log       *zap.Logger

	// pending tracks in-flight enqueue goroutines so shutdown can drain them.
	pending sync.WaitGroup
}

// NewReservationService wires the arbiter.  It panics on nil dependencies
// other than the logger.
func NewReservationService(providers ProviderStore, bookings BookingStore, jobs queue.Enqueuer, phones *utils.PhoneValidator, log *zap.Logger) *ReservationService {
	if providers == nil || bookings == nil || jobs == nil || phones == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationService{providers: providers, bookings: bookings, jobs: jobs, phones: phones, log: log}
}

// ReserveInput is a client's reservation request.
type ReserveInput struct {
	ProviderID  uint64
	Date        string
	TimeLabel   string
	ClientName  string
	ClientPhone string
}

// Reserve books a slot for a client.  It returns ErrSlotUnavailable when the
// slot does not exist or is blocked and ErrSlotConflict when another
// reservation took the slot first.  The confirmation message is queued after
// the booking commits and never affects the result.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (model.Booking, error) {
	name := strings.TrimSpace(in.ClientName)
	label := strings.TrimSpace(in.TimeLabel)
	if in.ProviderID == 0 || name == "" || !validLabel(label) {
		return model.Booking{}, ErrInvalidInput
	}
	phone, ok := s.phones.Valid(in.ClientPhone)
	if !ok {
		return model.Booking{}, ErrInvalidPhone
	}
	day, err := parseDate(in.Date)
	if err != nil {
		return model.Booking{}, err
	}
	if _, err := s.providers.GetByID(ctx, in.ProviderID); err != nil {
		return model.Booking{}, storeErr(err)
	}

	b := model.Booking{
		ProviderID:         in.ProviderID,
		Date:               day,
		TimeLabel:          label,
		ClientName:         name,
		ClientPhone:        phone,
		Status:             model.StatusConfirmed,
		NotificationStatus: model.NotificationPending,
	}
	if err := s.bookings.CreateForSlot(ctx, &b); err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrSlotConflict) {
			s.log.Info("reservation lost race",
				zap.Uint64("provider_id", in.ProviderID), zap.String("date", day), zap.String("time", label))
		}
		return model.Booking{}, err
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID), zap.Uint64("provider_id", b.ProviderID),
		zap.String("date", b.Date), zap.String("time", b.TimeLabel))
	s.enqueue(queue.KindBookingConfirmation, b.ID)
	return b, nil
}

// UpdateStatus moves a provider's booking along the status state machine.
// Cancelling queues a cancellation message.
func (s *ReservationService) UpdateStatus(ctx context.Context, bookingID, providerID uint64, newStatus string) (model.Booking, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	if !model.ValidStatus(newStatus) {
		return model.Booking{}, ErrInvalidTransition
	}
	b, err := s.bookings.GetByIDForProvider(ctx, bookingID, providerID)
	if err != nil {
		return model.Booking{}, storeErr(err)
	}

	// A concurrent writer may move the row between read and write; the
	// conditional update detects that and the transition is re-checked once
	// against the fresh status.
	for attempt := 0; ; attempt++ {
		if !model.CanTransition(b.Status, newStatus) {
			return model.Booking{}, ErrInvalidTransition
		}
		err = s.bookings.UpdateStatus(ctx, b.ID, b.Status, newStatus)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStale) {
			return model.Booking{}, storeErr(err)
		}
		if attempt > 0 {
			return model.Booking{}, ErrInvalidTransition
		}
		if b, err = s.bookings.GetByID(ctx, bookingID); err != nil {
			return model.Booking{}, storeErr(err)
		}
	}

	s.log.Info("booking status changed",
		zap.Uint64("booking_id", b.ID), zap.String("from", b.Status), zap.String("to", newStatus))
	if newStatus == model.StatusCancelled {
		s.enqueue(queue.KindBookingCancellation, b.ID)
	}
	updated, err := s.bookings.GetByID(ctx, b.ID)
	if err != nil {
		b.Status = newStatus
		return b, nil
	}
	return updated, nil
}

// ListBookings returns a provider's bookings for one date.
func (s *ReservationService) ListBookings(ctx context.Context, providerID uint64, date string) ([]model.Booking, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	out, err := s.bookings.ListByDate(ctx, providerID, day)
	if err != nil {
		return nil, storeErr(err)
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// Wait blocks until every queued hand-off started so far has finished.
func (s *ReservationService) Wait() { s.pending.Wait() }

// enqueue hands a job to the queue on a background goroutine.  The request
// context is not reused because the caller may return before the hand-off
// completes.
func (s *ReservationService) enqueue(kind string, bookingID uint64) {
	job := queue.NewJob(kind, bookingID)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			s.log.Warn("notification enqueue failed",
				zap.String("kind", kind), zap.Uint64("booking_id", bookingID), zap.Error(err))
		}
	}()
}
