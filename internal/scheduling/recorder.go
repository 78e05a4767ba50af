package scheduling

import (
	"context"
	"fmt"
	"time"
)

// Collected volume bounds in milliliters.
const (
	MinVolumeML = 200
	MaxVolumeML = 600
)

// ValidateVolume checks the collected volume bounds. Callers that mutate
// state before recording must run this first so a bad volume fails the
// whole operation up front.
func ValidateVolume(volumeML int) error {
	if volumeML < MinVolumeML || volumeML > MaxVolumeML {
		return NewValidation(fmt.Sprintf("collected volume must be between %dml and %dml", MinVolumeML, MaxVolumeML))
	}
	return nil
}

// DonationRecorder creates the immutable history record for a fulfilled
// appointment and computes the donor's next-eligible date.
type DonationRecorder struct {
	store Store
	clock Clock
}

func NewDonationRecorder(store Store, clock Clock) *DonationRecorder {
	if clock == nil {
		clock = SystemClock()
	}
	return &DonationRecorder{store: store, clock: clock}
}

// Record inserts the history row for appt. The insert is atomic with the
// per-appointment uniqueness check; a duplicate gets ErrConflict.
func (r *DonationRecorder) Record(ctx context.Context, appt *Appointment, volumeML int, notes *string) (*DonationRecord, error) {
	if err := ValidateVolume(volumeML); err != nil {
		return nil, err
	}

	now := r.clock.Now().UTC()
	donationDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return r.store.InsertDonation(ctx, NewDonationParams{
		DonorID:          appt.DonorID,
		BranchID:         appt.BranchID,
		AppointmentID:    appt.ID,
		VolumeML:         volumeML,
		DonationType:     appt.DonationType,
		DonationDate:     donationDate,
		NextEligibleDate: NextEligibleDate(donationDate, appt.DonationType),
		Notes:            notes,
	})
}
