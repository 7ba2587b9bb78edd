package model

import "time"

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Notification statuses, tracked independently of the booking status.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// transitions lists the statuses reachable from each status.  Completed and
// cancelled have no outgoing edges.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is one of the four booking statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Booking is a client's reservation of a provider slot.  Bookings are never
// deleted; cancelled rows stay for audit and notification retry.
//
// Fields:
//  ID                 – primary key identifier.
//  ProviderID         – provider being booked.
//  Date, TimeLabel    – natural key shared with the slot that admitted it.
//  ClientName         – name given by the client.
//  ClientPhone        – phone given by the client, whitespace stripped.
//  Status             – pending, confirmed, completed or cancelled.
//  NotificationStatus – pending, sent or failed.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Booking struct {
	ID                 uint64    `json:"id"`
	ProviderID         uint64    `json:"provider_id"`
	Date               string    `json:"date"`
	TimeLabel          string    `json:"time_label"`
	ClientName         string    `json:"client_name"`
	ClientPhone        string    `json:"client_phone"`
	Status             string    `json:"status"`
	NotificationStatus string    `json:"notification_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Active reports whether the booking still occupies its slot.
func (b Booking) Active() bool { return b.Status != StatusCancelled }
