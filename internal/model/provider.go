package model

import "time"

// Provider is a professional who publishes bookable time slots.  Only the
// contact fields may change after creation.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name used in client messages.
//  Slug           – unique routable handle for the public booking page.
//  Phone          – primary contact number (optional).
//  WhatsAppNumber – messaging-app number; when set, confirmations use the
//                   rich channel.
//  PasswordHash   – bcrypt hash used by provider login.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Provider struct {
	ID             uint64    // providers.id
	Name           string    // providers.name
	Slug           string    // providers.slug
	Phone          *string   // providers.phone (nullable)
	WhatsAppNumber *string   // providers.whatsapp_number (nullable)
	PasswordHash   string    // providers.password_hash
	CreatedAt      time.Time // providers.created_at
	UpdatedAt      time.Time // providers.updated_at
}

// HasRichChannel reports whether a messaging-app number is configured.
func (p Provider) HasRichChannel() bool {
	return p.WhatsAppNumber != nil && *p.WhatsAppNumber != ""
}
