package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hemovida/donation-scheduling/internal/scheduling"
)

type CreateAppointmentRequest struct {
	BranchID     string  `json:"branch_id"`
	ScheduledAt  string  `json:"scheduled_at"`
	DonationType string  `json:"donation_type"`
	CampaignID   *string `json:"campaign_id,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type ResolveAppointmentRequest struct {
	Outcome  string  `json:"outcome"`
	VolumeML int     `json:"volume_ml,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	DonorID      uuid.UUID  `json:"donor_id"`
	BranchID     uuid.UUID  `json:"branch_id"`
	CampaignID   *uuid.UUID `json:"campaign_id,omitempty"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	DonationType string     `json:"donation_type"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type DonationRecordResponse struct {
	ID               uuid.UUID `json:"id"`
	AppointmentID    uuid.UUID `json:"appointment_id"`
	BranchID         uuid.UUID `json:"branch_id"`
	VolumeML         int       `json:"volume_ml"`
	DonationType     string    `json:"donation_type"`
	DonationDate     string    `json:"donation_date"`
	NextEligibleDate string    `json:"next_eligible_date"`
	Notes            *string   `json:"notes,omitempty"`
}

type ResolveAppointmentResponse struct {
	Appointment      AppointmentResponse     `json:"appointment"`
	Donation         *DonationRecordResponse `json:"donation,omitempty"`
	NextEligibleDate string                  `json:"next_eligible_date,omitempty"`
	CampaignWarning  string                  `json:"campaign_warning,omitempty"`
}

type ListAppointmentsResponse struct {
	Total        int                   `json:"total"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type DonationStatsResponse struct {
	Count            int     `json:"count"`
	TotalML          int     `json:"total_ml"`
	NextEligibleDate *string `json:"next_eligible_date"`
	CanDonateNow     bool    `json:"can_donate_now"`
}

type DonorHistoryResponse struct {
	Donations []DonationRecordResponse `json:"donations"`
	Stats     DonationStatsResponse    `json:"stats"`
}

type ErrorResponse struct {
	Error            string `json:"error"`
	Details          string `json:"details,omitempty"`
	NextEligibleDate string `json:"next_eligible_date,omitempty"`
}

const dateFormat = "2006-01-02"

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		DonorID:      a.DonorID,
		BranchID:     a.BranchID,
		CampaignID:   a.CampaignID,
		ScheduledAt:  a.ScheduledAt.UTC(),
		DonationType: string(a.DonationType),
		Status:       string(a.Status),
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

func toDonationResponse(r *scheduling.DonationRecord) DonationRecordResponse {
	return DonationRecordResponse{
		ID:               r.ID,
		AppointmentID:    r.AppointmentID,
		BranchID:         r.BranchID,
		VolumeML:         r.VolumeML,
		DonationType:     string(r.DonationType),
		DonationDate:     r.DonationDate.UTC().Format(dateFormat),
		NextEligibleDate: r.NextEligibleDate.UTC().Format(dateFormat),
		Notes:            r.Notes,
	}
}
