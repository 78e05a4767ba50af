package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LoadDonorSnapshot reads the donor state the eligibility rules depend on.
// The reads are unlocked: the worst a stale read can cause is a
// conservative rejection the donor can retry, and the duplicate-booking
// check is repeated under the booking lock before insert.
func LoadDonorSnapshot(ctx context.Context, store Store, donor *Donor, branchID uuid.UUID, scheduledAt time.Time) (DonorSnapshot, error) {
	snap := DonorSnapshot{BirthDate: donor.BirthDate}

	last, err := store.LastFulfilledDonation(ctx, donor.ID)
	switch {
	case err == nil:
		snap.LastDonation = &LastDonation{Type: last.DonationType, Date: last.DonationDate}
	case errors.Is(err, ErrNotFound):
		// first-time donor
	default:
		return DonorSnapshot{}, err
	}

	pending, err := store.FindPendingOnDay(ctx, donor.ID, branchID, scheduledAt)
	if err != nil {
		return DonorSnapshot{}, err
	}
	for _, appt := range pending {
		snap.PendingAtBranch = append(snap.PendingAtBranch, appt.ScheduledAt)
	}

	return snap, nil
}
