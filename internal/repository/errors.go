// Package repository holds the MySQL data access layer.  The sentinel values
// below let the service layer tell storage outcomes apart without looking
// at driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the row exists but belongs to another
// provider.  Ownership is checked before any mutation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete cannot proceed because dependent
// rows exist, such as removing a slot that an active booking still holds.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key.  For
// bookings this is the signal that another writer won the slot.
var ErrDuplicate = errors.New("duplicate key")

// ErrSlotClosed is returned by booking creation when the slot for the
// requested key is missing or blocked.
var ErrSlotClosed = errors.New("slot closed")

// ErrStale is returned by conditional updates whose expected state no longer
// matches the stored row.
var ErrStale = errors.New("stale write")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
