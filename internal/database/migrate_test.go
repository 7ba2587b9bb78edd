package database

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrateSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	count := regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations WHERE version = ?")
	record := regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES (?)")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(count).WithArgs("0001_providers.sql").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(count).WithArgs("0002_slots.sql").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS slots")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(record).WithArgs("0002_slots.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(count).WithArgs("0003_bookings.sql").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("GENERATED ALWAYS AS (IF(status = 'cancelled', NULL, 1)) STORED")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(record).WithArgs("0003_bookings.sql").WillReturnResult(sqlmock.NewResult(2, 1))

	applied, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"0002_slots.sql", "0003_bookings.sql"}; !reflect.DeepEqual(applied, want) {
		t.Fatalf("applied = %v, want %v", applied, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A run that stops after a file's DDL but before its version row must be
// able to apply the same file again.
func TestMigrationsAreRerunnable(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	createTable := regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`)
	for _, e := range entries {
		b, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			t.Fatal(err)
		}
		sql := string(b)
		creates := len(createTable.FindAllStringIndex(sql, -1))
		guarded := strings.Count(strings.ToUpper(sql), "CREATE TABLE IF NOT EXISTS")
		if creates != guarded {
			t.Errorf("%s: %d CREATE TABLE, %d guarded with IF NOT EXISTS", e.Name(), creates, guarded)
		}
	}
}
