package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/clinic-booking/internal/model"
)

// BookingRepo manages the bookings table.  The table carries a stored
// generated column active_slot that is 1 for non-cancelled rows and NULL
// otherwise; the unique index (provider_id, slot_date, time_label,
// active_slot) therefore admits at most one active booking per slot while
// letting any number of cancelled rows coexist.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, provider_id, slot_date, time_label, client_name, client_phone, status, notification_status, created_at, updated_at`

// CreateForSlot inserts a booking for an open slot in a single transaction.
// The slot row is read under a shared lock so that a concurrent delete or
// block waits for this insert to finish.  ErrSlotClosed is returned when
// the slot is missing or blocked and ErrDuplicate when another active
// booking already holds the slot.  On success b carries the stored row.
func (r *BookingRepo) CreateForSlot(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var blocked bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_blocked FROM slots WHERE provider_id = ? AND slot_date = ? AND time_label = ? LOCK IN SHARE MODE`,
		b.ProviderID, b.Date, b.TimeLabel).Scan(&blocked)
	if err == sql.ErrNoRows {
		return ErrSlotClosed
	}
	if err != nil {
		return err
	}
	if blocked {
		return ErrSlotClosed
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (provider_id, slot_date, time_label, client_name, client_phone, status, notification_status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ProviderID, b.Date, b.TimeLabel, b.ClientName, b.ClientPhone, b.Status, b.NotificationStatus)
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
	stored, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		// A commit failure leaves nothing visible; callers treat it as a
		// plain storage error.
		return err
	}
	committed = true
	*b = stored
	return nil
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id))
	if err != nil {
		return model.Booking{}, notFound(err)
	}
	return b, nil
}

// GetByIDForProvider returns the booking only when it belongs to providerID.
func (r *BookingRepo) GetByIDForProvider(ctx context.Context, id, providerID uint64) (model.Booking, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.ProviderID != providerID {
		return model.Booking{}, ErrForbidden
	}
	return b, nil
}

// ListByDate returns a provider's bookings for one day, all statuses,
// ordered by time label then creation.
func (r *BookingRepo) ListByDate(ctx context.Context, providerID uint64, date string) ([]model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE provider_id = ? AND slot_date = ? ORDER BY time_label ASC, id ASC`,
		providerID, date)
}

// ActiveLabels returns the set of time labels on a provider's day that are
// held by a non-cancelled booking.
func (r *BookingRepo) ActiveLabels(ctx context.Context, providerID uint64, date string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT time_label FROM bookings WHERE provider_id = ? AND slot_date = ? AND status <> 'cancelled'`,
		providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out[l] = true
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another.  The write only
// applies while the row still has the expected status; otherwise ErrStale
// is returned.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

// SetNotificationStatus records the delivery state of a booking's
// confirmation message.
func (r *BookingRepo) SetNotificationStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bookings SET notification_status = ? WHERE id = ?`, status, id)
	return err
}

// NotificationQuery selects bookings by notification status.
type NotificationQuery struct {
	Status        string
	ProviderID    *uint64   // nil means every provider
	CreatedAfter  time.Time // zero means unbounded
	CreatedBefore time.Time // zero means unbounded
	Limit         int
	NewestFirst   bool
}

// ListByNotificationStatus returns bookings matching q.
func (r *BookingRepo) ListByNotificationStatus(ctx context.Context, q NotificationQuery) ([]model.Booking, error) {
	var (
		where = []string{"notification_status = ?"}
		args  = []interface{}{q.Status}
	)
	if q.ProviderID != nil {
		where = append(where, "provider_id = ?")
		args = append(args, *q.ProviderID)
	}
	if !q.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.CreatedAfter.UTC())
	}
	if !q.CreatedBefore.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, q.CreatedBefore.UTC())
	}
	order := "ASC"
	if q.NewestFirst {
		order = "DESC"
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at ` + order + `, id ` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(rs rowScanner) (model.Booking, error) {
	var (
		b   model.Booking
		day time.Time
	)
	err := rs.Scan(&b.ID, &b.ProviderID, &day, &b.TimeLabel, &b.ClientName, &b.ClientPhone,
		&b.Status, &b.NotificationStatus, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.Date = day.Format(dateLayout)
	return b, nil
}
