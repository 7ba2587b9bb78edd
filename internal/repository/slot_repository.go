package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/clinic-booking/internal/model"
)

// dateLayout is the wire and storage format of slot and booking dates.
const dateLayout = "2006-01-02"

// SlotRepo manages the slots table.  Slots are keyed naturally by
// (provider_id, slot_date, time_label) and the unique index on that tuple
// makes batch generation idempotent.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, provider_id, slot_date, time_label, is_blocked, created_at`

// UpsertBatch inserts one slot per label for the given provider and date.
// Labels that already exist are left as they are, including their blocked
// flag.  An empty label list is a no-op.
func (r *SlotRepo) UpsertBatch(ctx context.Context, providerID uint64, date string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO slots (provider_id, slot_date, time_label) VALUES `)
	args := make([]interface{}, 0, len(labels)*3)
	for i, l := range labels {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, providerID, date, l)
	}
	// id = id makes the duplicate path a no-op without touching is_blocked.
	b.WriteString(` ON DUPLICATE KEY UPDATE id = id`)
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return err
}

// ListByDate returns every slot of a provider's day ordered by label.
func (r *SlotRepo) ListByDate(ctx context.Context, providerID uint64, date string) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE provider_id = ? AND slot_date = ? ORDER BY time_label ASC`,
		providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByIDForProvider returns the slot only when it belongs to providerID.
// It distinguishes a missing row (ErrNotFound) from a foreign one
// (ErrForbidden).
func (r *SlotRepo) GetByIDForProvider(ctx context.Context, id, providerID uint64) (model.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? LIMIT 1`, id))
	if err != nil {
		return model.Slot{}, notFound(err)
	}
	if s.ProviderID != providerID {
		return model.Slot{}, ErrForbidden
	}
	return s, nil
}

// SetBlocked flips the blocked flag of a slot owned by providerID and
// returns the updated row.
func (r *SlotRepo) SetBlocked(ctx context.Context, id, providerID uint64, blocked bool) (model.Slot, error) {
	s, err := r.GetByIDForProvider(ctx, id, providerID)
	if err != nil {
		return model.Slot{}, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE slots SET is_blocked = ? WHERE id = ?`, blocked, id); err != nil {
		return model.Slot{}, err
	}
	s.Blocked = blocked
	return s, nil
}

// DeleteIfFree removes a slot owned by providerID unless an active booking
// holds the same natural key, in which case ErrConflict is returned and
// nothing changes.  The slot row is locked for the duration of the check so
// a reservation in flight either commits first or sees the slot gone.
func (r *SlotRepo) DeleteIfFree(ctx context.Context, id, providerID uint64) error {
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

	var (
		owner uint64
		day   time.Time
		label string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT provider_id, slot_date, time_label FROM slots WHERE id = ? FOR UPDATE`, id).
		Scan(&owner, &day, &label)
	if err != nil {
		return notFound(err)
	}
	if owner != providerID {
		return ErrForbidden
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE provider_id = ? AND slot_date = ? AND time_label = ? AND status <> 'cancelled' LOCK IN SHARE MODE`,
		owner, day.Format(dateLayout), label).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(rs rowScanner) (model.Slot, error) {
	var (
		s   model.Slot
		day time.Time
	)
	if err := rs.Scan(&s.ID, &s.ProviderID, &day, &s.TimeLabel, &s.Blocked, &s.CreatedAt); err != nil {
		return model.Slot{}, err
	}
	s.Date = day.Format(dateLayout)
	return s, nil
}
