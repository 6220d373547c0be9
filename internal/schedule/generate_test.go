package schedule

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ateliera/studio-booking/internal/repository"
)

func newMaterializerOver(db *sql.DB) *Materializer {
	m := NewMaterializer(db,
		repository.NewRuleRepo(db),
		repository.NewSlotRepo(db),
		repository.NewServiceRepo(db),
		time.UTC)
	m.Now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func ruleRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "professional_id", "service_id", "recurrence_kind", "day_of_week", "specific_date",
		"start_time", "end_time", "slot_duration_min", "max_days_ahead", "min_lead_hours",
		"is_active", "created_at", "updated_at"}).
		AddRow(1, 2, 3, "weekly", int(time.Tuesday), nil, "09:00", "11:00", 60, 30, 3, true, now, now)
}

func activeServiceRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "price_cents", "default_capacity", "duration_min", "is_active", "created_at", "updated_at"}).
		AddRow(3, "Pilates", 15000, 8, 60, true, now, now)
}

func TestGenerateUpsertsWithoutDuplicating(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	m := newMaterializerOver(db)

	now := time.Now()
	// Tue 2026-09-08 expands to 09:00 and 10:00.  The 09:00 slot already
	// exists with a stale capacity; the 10:00 one is new.
	nine := time.Date(2026, 9, 8, 9, 0, 0, 0, time.UTC)
	existing := sqlmock.NewRows([]string{"id", "rule_id", "professional_id", "service_id", "starts_at", "ends_at",
		"max_capacity", "confirmed_bookings", "min_lead_hours", "is_active", "created_at", "updated_at"}).
		AddRow(50, 1, 2, 3, nine, nine.Add(time.Hour), 5, 1, 3, true, now, now)

	mock.ExpectQuery("FROM availability_rules").WillReturnRows(ruleRows())
	mock.ExpectQuery("FROM services WHERE is_active").WillReturnRows(activeServiceRows())
	mock.ExpectQuery("FROM capacity_overrides").WithArgs("2026-09-08", "2026-09-08").
		WillReturnRows(sqlmock.NewRows([]string{"id", "professional_id", "service_id", "date", "start_time", "max_capacity"}))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM generated_slots").WillReturnRows(existing)
	mock.ExpectExec("UPDATE generated_slots").WithArgs(8, uint64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO generated_slots").
		WillReturnResult(sqlmock.NewResult(51, 1))
	mock.ExpectCommit()

	res, err := m.Generate(context.Background(), Request{From: "2026-09-08", To: "2026-09-08"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.SlotsCreated != 1 || res.SlotsUpdated != 1 {
		t.Fatalf("created=%d updated=%d, want 1/1", res.SlotsCreated, res.SlotsUpdated)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateClampWarnsWhenBookingsExceedCapacity(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	m := newMaterializerOver(db)

	now := time.Now()
	nine := time.Date(2026, 9, 8, 9, 0, 0, 0, time.UTC)
	ten := time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)
	// Both slots exist; an override shrinks capacity to 2 but the 09:00
	// slot already holds 4 confirmed bookings.
	existing := sqlmock.NewRows([]string{"id", "rule_id", "professional_id", "service_id", "starts_at", "ends_at",
		"max_capacity", "confirmed_bookings", "min_lead_hours", "is_active", "created_at", "updated_at"}).
		AddRow(50, 1, 2, 3, nine, nine.Add(time.Hour), 8, 4, 3, true, now, now).
		AddRow(51, 1, 2, 3, ten, ten.Add(time.Hour), 8, 0, 3, true, now, now)

	mock.ExpectQuery("FROM availability_rules").WillReturnRows(ruleRows())
	mock.ExpectQuery("FROM services WHERE is_active").WillReturnRows(activeServiceRows())
	mock.ExpectQuery("FROM capacity_overrides").WithArgs("2026-09-08", "2026-09-08").
		WillReturnRows(sqlmock.NewRows([]string{"id", "professional_id", "service_id", "date", "start_time", "max_capacity"}).
			AddRow(1, 2, 3, "2026-09-08", "09:00", 2).
			AddRow(2, 2, 3, "2026-09-08", "10:00", 2))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM generated_slots").WillReturnRows(existing)
	mock.ExpectExec("UPDATE generated_slots").WithArgs(2, uint64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE generated_slots").WithArgs(2, uint64(51)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := m.Generate(context.Background(), Request{From: "2026-09-08", To: "2026-09-08"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.SlotsUpdated != 2 || res.SlotsCreated != 0 {
		t.Fatalf("created=%d updated=%d, want 0/2", res.SlotsCreated, res.SlotsUpdated)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "clamped") {
		t.Fatalf("expected one clamp warning, got %v", res.Warnings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateRejectsInvertedRange(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	m := newMaterializerOver(db)
	if _, err := m.Generate(context.Background(), Request{From: "2026-09-10", To: "2026-09-08"}); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}
