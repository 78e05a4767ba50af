package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter narrows list queries. Nil fields mean "any".
type AppointmentFilter struct {
	Status   *Status
	FromDate *time.Time
}

// NewAppointmentParams enumerates exactly the fields a caller may set when
// inserting an appointment. Status is always pending on insert.
type NewAppointmentParams struct {
	DonorID      uuid.UUID
	BranchID     uuid.UUID
	CampaignID   *uuid.UUID
	ScheduledAt  time.Time
	DonationType DonationType
	Notes        *string
}

// NewDonationParams enumerates the fields of a donation record insert.
type NewDonationParams struct {
	DonorID          uuid.UUID
	BranchID         uuid.UUID
	AppointmentID    uuid.UUID
	VolumeML         int
	DonationType     DonationType
	DonationDate     time.Time
	NextEligibleDate time.Time
	Notes            *string
}

// Store contains all DB interactions needed by the scheduler, recorder and
// campaign tracker. The store is the sole point of mutual exclusion: every
// check-then-write it exposes executes as one atomic statement.
type Store interface {
	GetDonorByID(ctx context.Context, id uuid.UUID) (*Donor, error)
	GetBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (*Campaign, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, p NewAppointmentParams) (*Appointment, error)
	// UpdateAppointmentStatus transitions id from any of from to to as a
	// single conditional write. A concurrent transition loses the race and
	// gets ErrInvalidState.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error)
	ListAppointmentsByDonor(ctx context.Context, donorID uuid.UUID, f AppointmentFilter) ([]Appointment, error)
	ListAppointmentsByBranch(ctx context.Context, branchID uuid.UUID, f AppointmentFilter) ([]Appointment, error)
	// FindPendingOnDay returns the donor's pending appointments at the
	// branch on the given UTC calendar day.
	FindPendingOnDay(ctx context.Context, donorID, branchID uuid.UUID, day time.Time) ([]Appointment, error)
	// FindOverdue returns pending or confirmed appointments scheduled
	// before the cutoff, for the no-show sweep.
	FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	GetDonationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*DonationRecord, error)
	// InsertDonation inserts atomically; a second insert for the same
	// appointment gets ErrConflict, never a second row.
	InsertDonation(ctx context.Context, p NewDonationParams) (*DonationRecord, error)
	ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]DonationRecord, error)
	// LastFulfilledDonation returns the donor's most recent donation record,
	// or ErrNotFound if the donor has never donated.
	LastFulfilledDonation(ctx context.Context, donorID uuid.UUID) (*DonationRecord, error)

	// AddCampaignVolume adds liters to the campaign accumulator in one
	// additive write, never read-modify-write.
	AddCampaignVolume(ctx context.Context, campaignID uuid.UUID, liters float64) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
