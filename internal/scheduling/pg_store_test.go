package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PgStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPgStoreWithDB(mock)
}

func appointmentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "donor_id", "branch_id", "campaign_id", "scheduled_at",
		"donation_type", "status", "notes", "created_at", "updated_at",
	})
}

func donationRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "donor_id", "branch_id", "appointment_id", "volume_ml",
		"donation_type", "donation_date", "next_eligible_date", "notes", "created_at",
	})
}

func TestPgStore_UpdateAppointmentStatus_Succeeds(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	donorID := uuid.New()
	branchID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusConfirmed, []string{"pending"}).
		WillReturnRows(appointmentRows().AddRow(
			id, donorID, branchID, (*uuid.UUID)(nil), now.AddDate(0, 0, 3),
			TypeWholeBlood, StatusConfirmed, (*string)(nil), now, now,
		))

	appt, err := store.UpdateAppointmentStatus(context.Background(), id, []Status{StatusPending}, StatusConfirmed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if appt.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", appt.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// A zero-row update means the guard in the WHERE clause did not match.
// The store re-reads once to report the actual state.
func TestPgStore_UpdateAppointmentStatus_LostRace(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	donorID := uuid.New()
	branchID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusFulfilled, []string{"pending", "confirmed"}).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(appointmentRows().AddRow(
			id, donorID, branchID, (*uuid.UUID)(nil), now,
			TypeWholeBlood, StatusFulfilled, (*string)(nil), now, now,
		))

	_, err := store.UpdateAppointmentStatus(context.Background(), id, []Status{StatusPending, StatusConfirmed}, StatusFulfilled)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPgStore_UpdateAppointmentStatus_Missing(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelled, []string{"pending", "confirmed"}).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(appointmentRows())

	_, err := store.UpdateAppointmentStatus(context.Background(), id, []Status{StatusPending, StatusConfirmed}, StatusCancelled)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPgStore_InsertDonation_Conflict(t *testing.T) {
	mock, store := newMockStore(t)

	// ON CONFLICT DO NOTHING returns no row when the appointment already
	// has a donation record.
	mock.ExpectQuery("INSERT INTO donation_records").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(donationRows())

	_, err := store.InsertDonation(context.Background(), NewDonationParams{
		DonorID:          uuid.New(),
		BranchID:         uuid.New(),
		AppointmentID:    uuid.New(),
		VolumeML:         450,
		DonationType:     TypeWholeBlood,
		DonationDate:     time.Now().UTC(),
		NextEligibleDate: time.Now().UTC().AddDate(0, 0, 75),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPgStore_InsertDonation_Succeeds(t *testing.T) {
	mock, store := newMockStore(t)

	donorID := uuid.New()
	branchID := uuid.New()
	apptID := uuid.New()
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO donation_records").
		WithArgs(
			pgxmock.AnyArg(), donorID, branchID, apptID, 450,
			TypeWholeBlood, date, date.AddDate(0, 0, 75), (*string)(nil),
		).
		WillReturnRows(donationRows().AddRow(
			uuid.New(), donorID, branchID, apptID, 450,
			TypeWholeBlood, date, date.AddDate(0, 0, 75), (*string)(nil), now,
		))

	rec, err := store.InsertDonation(context.Background(), NewDonationParams{
		DonorID:          donorID,
		BranchID:         branchID,
		AppointmentID:    apptID,
		VolumeML:         450,
		DonationType:     TypeWholeBlood,
		DonationDate:     date,
		NextEligibleDate: date.AddDate(0, 0, 75),
	})
	if err != nil {
		t.Fatalf("insert donation: %v", err)
	}
	if rec.AppointmentID != apptID || rec.VolumeML != 450 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestPgStore_AddCampaignVolume(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE campaigns").
		WithArgs(id, 0.45).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.AddCampaignVolume(context.Background(), id, 0.45); err != nil {
		t.Fatalf("add campaign volume: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPgStore_AddCampaignVolume_MissingCampaign(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE campaigns").
		WithArgs(id, 0.45).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.AddCampaignVolume(context.Background(), id, 0.45)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPgStore_GetDonorByID_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM donors").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "birth_date", "created_at", "updated_at"}))

	_, err := store.GetDonorByID(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPgStore_FindPendingOnDay_UsesUTCDayBounds(t *testing.T) {
	mock, store := newMockStore(t)

	donorID := uuid.New()
	branchID := uuid.New()
	day := time.Date(2026, 3, 13, 15, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(donorID, branchID, dayStart, dayEnd).
		WillReturnRows(appointmentRows())

	appts, err := store.FindPendingOnDay(context.Background(), donorID, branchID, day)
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if len(appts) != 0 {
		t.Fatalf("appointments = %d, want 0", len(appts))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
