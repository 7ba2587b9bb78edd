package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/clinic-booking/internal/model"
)

// ProviderRepo reads and writes the providers table.
type ProviderRepo struct {
	db *sql.DB
}

// NewProviderRepo returns a ProviderRepo bound to the given database.
func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{db: db} }

const providerColumns = `id, name, slug, phone, whatsapp_number, password_hash, created_at, updated_at`

// Create inserts a provider and fills in its generated ID and timestamps.
// A taken slug yields ErrDuplicate.
func (r *ProviderRepo) Create(ctx context.Context, p *model.Provider) error {
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO providers (name, slug, phone, whatsapp_number, password_hash) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.Phone, p.WhatsAppNumber, p.PasswordHash)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = got
	return nil
}

// GetByID fetches a provider by primary key.
func (r *ProviderRepo) GetByID(ctx context.Context, id uint64) (model.Provider, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = ? LIMIT 1`, id)
	return scanProvider(row)
}

// GetBySlug fetches a provider by its public handle.
func (r *ProviderRepo) GetBySlug(ctx context.Context, slug string) (model.Provider, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	row := r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE slug = ? LIMIT 1`, slug)
	return scanProvider(row)
}

// UpdateContact replaces the provider's contact numbers.  A nil pointer
// clears the column.
func (r *ProviderRepo) UpdateContact(ctx context.Context, id uint64, phone, whatsapp *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE providers SET phone = ?, whatsapp_number = ? WHERE id = ?`, phone, whatsapp, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when values are unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func scanProvider(row *sql.Row) (model.Provider, error) {
	var (
		p        model.Provider
		phone    sql.NullString
		whatsapp sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &phone, &whatsapp, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Provider{}, notFound(err)
	}
	if phone.Valid {
		v := phone.String
		p.Phone = &v
	}
	if whatsapp.Valid {
		v := whatsapp.String
		p.WhatsAppNumber = &v
	}
	return p, nil
}
