package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/repository"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// ErrSlugTaken is returned by Register when the slug is already in use.
var ErrSlugTaken = errors.New("slug already exists")

// ProviderService covers provider profiles and login.
type ProviderService struct {
	providers  ProviderStore
	bcryptCost int
}

// NewProviderService returns a ProviderService using the given bcrypt cost
// for new passwords.
func NewProviderService(providers ProviderStore, bcryptCost int) *ProviderService {
	if providers == nil {
		panic("nil store passed to NewProviderService")
	}
	return &ProviderService{providers: providers, bcryptCost: bcryptCost}
}

// RegisterInput describes a new provider.
type RegisterInput struct {
	Name           string
	Slug           string
	Phone          string
	WhatsAppNumber string
	Password       string
}

// Register creates a provider with a hashed password.
func (s *ProviderService) Register(ctx context.Context, in RegisterInput) (model.Provider, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if name == "" || slug == "" || in.Password == "" {
		return model.Provider{}, ErrInvalidInput
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.Provider{}, err
	}
	p := model.Provider{
		Name:           name,
		Slug:           slug,
		Phone:          optional(in.Phone),
		WhatsAppNumber: optional(in.WhatsAppNumber),
		PasswordHash:   hash,
	}
	if err := s.providers.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Provider{}, ErrSlugTaken
		}
		return model.Provider{}, err
	}
	return p, nil
}

// Authenticate checks a provider's password and returns the provider.  Any
// mismatch, including an unknown slug, yields ErrUnauthorized.
func (s *ProviderService) Authenticate(ctx context.Context, slug, password string) (model.Provider, error) {
	p, err := s.providers.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Provider{}, ErrUnauthorized
		}
		return model.Provider{}, err
	}
	if !utils.VerifyPassword(p.PasswordHash, password) {
		return model.Provider{}, ErrUnauthorized
	}
	return p, nil
}

// Get returns a provider by id.
func (s *ProviderService) Get(ctx context.Context, id uint64) (model.Provider, error) {
	p, err := s.providers.GetByID(ctx, id)
	return p, storeErr(err)
}

// GetBySlug returns a provider by public handle.
func (s *ProviderService) GetBySlug(ctx context.Context, slug string) (model.Provider, error) {
	p, err := s.providers.GetBySlug(ctx, slug)
	return p, storeErr(err)
}

// UpdateContact replaces the contact numbers of a provider.  Empty strings
// clear a number.
func (s *ProviderService) UpdateContact(ctx context.Context, id uint64, phone, whatsapp string) (model.Provider, error) {
	if err := s.providers.UpdateContact(ctx, id, optional(phone), optional(whatsapp)); err != nil {
		return model.Provider{}, storeErr(err)
	}
	return s.Get(ctx, id)
}

func optional(s string) *string {
	s = utils.StripSpaces(s)
	if s == "" {
		return nil
	}
	return &s
}
