package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFulfilled Status = "fulfilled"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusFulfilled, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

type DonationType string

const (
	TypeWholeBlood DonationType = "whole_blood"
	TypePlatelets  DonationType = "platelets"
	TypePlasma     DonationType = "plasma"
	TypeApheresis  DonationType = "apheresis"
)

func (t DonationType) Valid() bool {
	switch t {
	case TypeWholeBlood, TypePlatelets, TypePlasma, TypeApheresis:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeNoShow    Outcome = "no_show"
)

type Role string

const (
	RoleDonor        Role = "donor"
	RoleCollaborator Role = "branch_collaborator"
)

// Actor is the authenticated caller as reported by the upstream identity
// layer. BranchID is set only for branch collaborators.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	BranchID uuid.UUID
}

type Donor struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Branch struct {
	ID        uuid.UUID
	Name      string
	City      string
	State     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Campaign struct {
	ID              uuid.UUID
	BranchID        uuid.UUID
	Name            string
	TargetLiters    float64
	CollectedLiters float64
	Active          bool
	StartDate       time.Time
	EndDate         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Appointment struct {
	ID           uuid.UUID
	DonorID      uuid.UUID
	BranchID     uuid.UUID
	CampaignID   *uuid.UUID
	ScheduledAt  time.Time
	DonationType DonationType
	Status       Status
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DonationRecord is the immutable history row created when an appointment
// is fulfilled. At most one record exists per appointment.
type DonationRecord struct {
	ID               uuid.UUID
	DonorID          uuid.UUID
	BranchID         uuid.UUID
	AppointmentID    uuid.UUID
	VolumeML         int
	DonationType     DonationType
	DonationDate     time.Time
	NextEligibleDate time.Time
	Notes            *string
	CreatedAt        time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// LastDonation is the slice of donation history the eligibility rules need.
type LastDonation struct {
	Type DonationType
	Date time.Time
}

// DonorSnapshot is the donor state an eligibility check runs against.
// It is loaded fresh for every check and never cached: concurrent bookings
// can change it between checks.
type DonorSnapshot struct {
	BirthDate *time.Time
	// LastDonation is the donor's most recent fulfilled donation, nil if none.
	LastDonation *LastDonation
	// PendingAtBranch holds the scheduled times of the donor's pending
	// appointments at the target branch.
	PendingAtBranch []time.Time
}
