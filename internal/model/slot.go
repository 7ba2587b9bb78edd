package model

import "time"

// Slot is one bookable unit of a provider's day.  The tuple
// (ProviderID, Date, TimeLabel) is unique.
//
// Fields:
//  ID         – primary key identifier.
//  ProviderID – owning provider.
//  Date       – calendar date formatted as YYYY-MM-DD.
//  TimeLabel  – start time formatted as HH:MM (24h).
//  Blocked    – provider-controlled flag; blocked slots cannot be booked.
//  CreatedAt  – creation timestamp.
type Slot struct {
	ID         uint64    `json:"id"`
	ProviderID uint64    `json:"provider_id"`
	Date       string    `json:"date"`
	TimeLabel  string    `json:"time_label"`
	Blocked    bool      `json:"blocked"`
	CreatedAt  time.Time `json:"created_at"`
}
