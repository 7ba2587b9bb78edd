// Package queue carries notification jobs from the request path to the
// background dispatcher.  Jobs travel over RabbitMQ in deployed setups and
// over an in-process channel otherwise.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job kinds.
const (
	KindBookingConfirmation = "booking.confirmation"
	KindBookingCancellation = "booking.cancellation"
)

// NotificationJob asks the dispatcher to send one message for one booking.
// Only the booking id travels; the worker reloads everything else so a
// retried job always sees current data.
type NotificationJob struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	BookingID  uint64 `json:"booking_id"`
	EnqueuedAt string `json:"enqueued_at"`
}

// NewJob stamps a job with a fresh id and the current time.
func NewJob(kind string, bookingID uint64) NotificationJob {
	return NotificationJob{
		ID:         uuid.NewString(),
		Kind:       kind,
		BookingID:  bookingID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Enqueuer hands a job to whatever runs the workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, job NotificationJob) error
}

// Handler processes one job.  A returned error is logged by the transport;
// durable state lives in the bookings table, not in the queue.
type Handler func(ctx context.Context, job NotificationJob) error
