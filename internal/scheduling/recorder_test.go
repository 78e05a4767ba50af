package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testAppointment(donationType DonationType) *Appointment {
	return &Appointment{
		ID:           uuid.New(),
		DonorID:      uuid.New(),
		BranchID:     uuid.New(),
		DonationType: donationType,
		Status:       StatusFulfilled,
	}
}

func TestRecord_VolumeBounds(t *testing.T) {
	store := newMemStore()
	rec := NewDonationRecorder(store, FixedClock{T: testNow})

	for _, volume := range []int{199, 601, -1} {
		_, err := rec.Record(context.Background(), testAppointment(TypeWholeBlood), volume, nil)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("volume %d: expected validation error, got %v", volume, err)
		}
	}
	if len(store.donations) != 0 {
		t.Fatalf("rejected volumes must not insert, got %d records", len(store.donations))
	}

	for _, volume := range []int{200, 450, 600} {
		if _, err := rec.Record(context.Background(), testAppointment(TypeWholeBlood), volume, nil); err != nil {
			t.Errorf("volume %d: %v", volume, err)
		}
	}
}

func TestRecord_DatesFromClock(t *testing.T) {
	store := newMemStore()
	rec := NewDonationRecorder(store, FixedClock{T: testNow})

	record, err := rec.Record(context.Background(), testAppointment(TypeApheresis), 450, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	wantDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !record.DonationDate.Equal(wantDate) {
		t.Fatalf("donation date = %v, want %v", record.DonationDate, wantDate)
	}
	if !record.NextEligibleDate.Equal(wantDate.AddDate(0, 0, IntervalApheresisDays)) {
		t.Fatalf("next eligible = %v", record.NextEligibleDate)
	}
}

func TestRecord_DuplicateAppointmentConflicts(t *testing.T) {
	store := newMemStore()
	rec := NewDonationRecorder(store, FixedClock{T: testNow})
	appt := testAppointment(TypeWholeBlood)

	if _, err := rec.Record(context.Background(), appt, 450, nil); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := rec.Record(context.Background(), appt, 450, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
