// Package notify delivers booking confirmations and cancellations to
// clients.  Delivery problems are recorded on the booking and logged; they
// never travel back to whoever created the booking.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/queue"
	"github.com/iliyamo/clinic-booking/internal/repository"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// ErrDeliveryFailure wraps every channel error inside the dispatcher.
var ErrDeliveryFailure = errors.New("delivery failure")

// Defaults for retry batches and the failed-message list.
const (
	DefaultWindowHours = 24
	DefaultRetryLimit  = 50
	DefaultFailedLimit = 20
	DefaultPendingAge  = 15 * time.Minute

	sendTimeout = 20 * time.Second
)

// BookingStore is the booking persistence the dispatcher uses.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	SetNotificationStatus(ctx context.Context, id uint64, status string) error
	ListByNotificationStatus(ctx context.Context, q repository.NotificationQuery) ([]model.Booking, error)
}

// ProviderStore is the provider lookup the dispatcher uses.
type ProviderStore interface {
	GetByID(ctx context.Context, id uint64) (model.Provider, error)
}

// Options tune a Dispatcher.
type Options struct {
	// CountryCode is applied to numbers without an international prefix.
	CountryCode string
	// SendsPerSecond paces retry batches; zero or less disables pacing.
	SendsPerSecond float64
}

// Dispatcher sends client messages and tracks confirmation delivery.
type Dispatcher struct {
	bookings    BookingStore
	providers   ProviderStore
	channels    Channels
	countryCode string
	limiter     *rate.Limiter
	log         *zap.Logger
	now         func() time.Time
}

// NewDispatcher returns a Dispatcher.  It panics if a store or channel is
// missing.
func NewDispatcher(bookings BookingStore, providers ProviderStore, channels Channels, opts Options, log *zap.Logger) *Dispatcher {
	if bookings == nil || providers == nil || channels.Rich == nil || channels.Baseline == nil {
		panic("nil dependency passed to NewDispatcher")
	}
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.SendsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.SendsPerSecond), 1)
	}
	return &Dispatcher{
		bookings:    bookings,
		providers:   providers,
		channels:    channels,
		countryCode: opts.CountryCode,
		limiter:     limiter,
		log:         log.Named("notify"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SendBookingConfirmation delivers the confirmation for a booking and
// records the outcome in its notification status.
func (d *Dispatcher) SendBookingConfirmation(ctx context.Context, bookingID uint64) {
	d.deliverConfirmation(ctx, bookingID)
}

// deliverConfirmation reports whether the message went out.
func (d *Dispatcher) deliverConfirmation(ctx context.Context, bookingID uint64) bool {
	b, p, ok := d.load(ctx, bookingID)
	if !ok {
		return false
	}
	// Pending first, so a crash mid-send never looks like a delivery.
	if err := d.bookings.SetNotificationStatus(ctx, b.ID, model.NotificationPending); err != nil {
		d.log.Error("mark notification pending", zap.Uint64("booking_id", b.ID), zap.Error(err))
		return false
	}

	sender, channel := d.channels.Baseline, "sms"
	if p.HasRichChannel() {
		sender, channel = d.channels.Rich, "whatsapp"
	}
	to := utils.NormalizePhone(b.ClientPhone, d.countryCode)
	body := confirmationBody(p.Name, b.Date, b.TimeLabel, b.ClientName)

	status := model.NotificationSent
	if err := d.send(ctx, sender, to, body); err != nil {
		status = model.NotificationFailed
		d.log.Warn("confirmation not delivered",
			zap.Uint64("booking_id", b.ID), zap.String("channel", channel), zap.Error(err))
	}
	if err := d.bookings.SetNotificationStatus(context.WithoutCancel(ctx), b.ID, status); err != nil {
		d.log.Error("record notification status",
			zap.Uint64("booking_id", b.ID), zap.String("status", status), zap.Error(err))
		return false
	}
	if status == model.NotificationSent {
		d.log.Info("confirmation sent", zap.Uint64("booking_id", b.ID), zap.String("channel", channel))
		return true
	}
	return false
}

// SendCancellationNotification tells the client their booking was
// cancelled.  It always uses the baseline channel and leaves the
// notification status alone.
func (d *Dispatcher) SendCancellationNotification(ctx context.Context, bookingID uint64) {
	b, p, ok := d.load(ctx, bookingID)
	if !ok {
		return
	}
	to := utils.NormalizePhone(b.ClientPhone, d.countryCode)
	if err := d.send(ctx, d.channels.Baseline, to, cancellationBody(p.Name)); err != nil {
		d.log.Warn("cancellation not delivered", zap.Uint64("booking_id", b.ID), zap.Error(err))
		return
	}
	d.log.Info("cancellation sent", zap.Uint64("booking_id", b.ID))
}

// RetryOptions scope a retry batch.  Zero values select the defaults.
type RetryOptions struct {
	ProviderID  *uint64
	WindowHours int
	Limit       int
}

// RetryResult counts the outcome of a retry batch.
type RetryResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// RetryFailed re-sends confirmations whose last attempt failed, oldest
// first, one at a time.  A failing item is counted and the batch moves on.
// The batch stops early only when ctx ends.
func (d *Dispatcher) RetryFailed(ctx context.Context, opts RetryOptions) (RetryResult, error) {
	if opts.WindowHours <= 0 {
		opts.WindowHours = DefaultWindowHours
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultRetryLimit
	}
	failed, err := d.bookings.ListByNotificationStatus(ctx, repository.NotificationQuery{
		Status:       model.NotificationFailed,
		ProviderID:   opts.ProviderID,
		CreatedAfter: d.now().Add(-time.Duration(opts.WindowHours) * time.Hour),
		Limit:        opts.Limit,
	})
	if err != nil {
		return RetryResult{}, fmt.Errorf("list failed notifications: %w", err)
	}
	res, err := d.redeliver(ctx, failed)
	d.log.Info("retry batch finished",
		zap.Int("attempted", res.Attempted), zap.Int("succeeded", res.Succeeded))
	return res, err
}

// StaleOptions scope a stale-pending batch.  Zero values select the
// defaults.
type StaleOptions struct {
	Age         time.Duration // pending longer than this counts as lost
	WindowHours int
	Limit       int
}

// ResendStalePending re-sends confirmations that have stayed pending for
// longer than opts.Age, which happens when a job was lost before a worker
// ran it.  Only bookings inside the retry window are considered.
func (d *Dispatcher) ResendStalePending(ctx context.Context, opts StaleOptions) (RetryResult, error) {
	if opts.Age <= 0 {
		opts.Age = DefaultPendingAge
	}
	if opts.WindowHours <= 0 {
		opts.WindowHours = DefaultWindowHours
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultRetryLimit
	}
	now := d.now()
	stale, err := d.bookings.ListByNotificationStatus(ctx, repository.NotificationQuery{
		Status:        model.NotificationPending,
		CreatedAfter:  now.Add(-time.Duration(opts.WindowHours) * time.Hour),
		CreatedBefore: now.Add(-opts.Age),
		Limit:         opts.Limit,
	})
	if err != nil {
		return RetryResult{}, fmt.Errorf("list pending notifications: %w", err)
	}
	return d.redeliver(ctx, stale)
}

func (d *Dispatcher) redeliver(ctx context.Context, bookings []model.Booking) (RetryResult, error) {
	var res RetryResult
	for _, b := range bookings {
		if err := d.limiter.Wait(ctx); err != nil {
			return res, err
		}
		res.Attempted++
		if d.deliverConfirmation(ctx, b.ID) {
			res.Succeeded++
		}
	}
	return res, nil
}

// ListFailed returns a provider's most recent failed confirmations, newest
// first.
func (d *Dispatcher) ListFailed(ctx context.Context, providerID uint64, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = DefaultFailedLimit
	}
	out, err := d.bookings.ListByNotificationStatus(ctx, repository.NotificationQuery{
		Status:      model.NotificationFailed,
		ProviderID:  &providerID,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// HandleJob runs a queued notification job.  It is the queue.Handler used by
// both queue transports.
func (d *Dispatcher) HandleJob(ctx context.Context, job queue.NotificationJob) error {
	switch job.Kind {
	case queue.KindBookingConfirmation:
		d.SendBookingConfirmation(ctx, job.BookingID)
	case queue.KindBookingCancellation:
		d.SendCancellationNotification(ctx, job.BookingID)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
	return nil
}

func (d *Dispatcher) load(ctx context.Context, bookingID uint64) (model.Booking, model.Provider, bool) {
	b, err := d.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d.log.Warn("booking not found", zap.Uint64("booking_id", bookingID))
		} else {
			d.log.Error("load booking", zap.Uint64("booking_id", bookingID), zap.Error(err))
		}
		return model.Booking{}, model.Provider{}, false
	}
	p, err := d.providers.GetByID(ctx, b.ProviderID)
	if err != nil {
		d.log.Error("load provider", zap.Uint64("booking_id", bookingID), zap.Uint64("provider_id", b.ProviderID), zap.Error(err))
		return model.Booking{}, model.Provider{}, false
	}
	return b, p, true
}

func (d *Dispatcher) send(ctx context.Context, s Sender, to, body string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.Send(ctx, to, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}
