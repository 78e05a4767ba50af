package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hemovida/donation-scheduling/internal/scheduling"
)

// SchedulerService is the slice of the scheduler the handlers call.
type SchedulerService interface {
	Create(ctx context.Context, actor scheduling.Actor, p scheduling.CreateParams) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, actor scheduling.Actor, id uuid.UUID) (*scheduling.Appointment, error)
	Confirm(ctx context.Context, actor scheduling.Actor, id uuid.UUID) (*scheduling.Appointment, error)
	Resolve(ctx context.Context, actor scheduling.Actor, id uuid.UUID, outcome scheduling.Outcome, volumeML int, notes *string) (*scheduling.ResolveResult, error)
	ListForDonor(ctx context.Context, actor scheduling.Actor, status *scheduling.Status, futureOnly bool) ([]scheduling.Appointment, error)
	ListForBranch(ctx context.Context, actor scheduling.Actor, status *scheduling.Status, fromDate *time.Time) ([]scheduling.Appointment, error)
	DonorHistory(ctx context.Context, actor scheduling.Actor) ([]scheduling.DonationRecord, scheduling.DonationStats, error)
}

// CampaignService exposes the campaign read model to the API.
type CampaignService interface {
	Progress(ctx context.Context, campaignID uuid.UUID) (*scheduling.CampaignProgress, error)
}

func createAppointmentHandler(svc SchedulerService, defaultBranchID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no actor in request context")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		branchID := defaultBranchID
		if req.BranchID != "" {
			id, err := uuid.Parse(req.BranchID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_branch_id", "branch_id must be a valid UUID")
				return
			}
			branchID = id
		}
		if branchID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "invalid_branch_id", "branch_id is required")
			return
		}

		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_at", "scheduled_at must be ISO-8601, e.g. 2025-12-25T14:30:00Z")
			return
		}

		params := scheduling.CreateParams{
			BranchID:     branchID,
			ScheduledAt:  scheduledAt.UTC(),
			DonationType: scheduling.DonationType(req.DonationType),
			Notes:        req.Notes,
		}
		if req.CampaignID != nil && *req.CampaignID != "" {
			id, err := uuid.Parse(*req.CampaignID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_campaign_id", "campaign_id must be a valid UUID")
				return
			}
			params.CampaignID = &id
		}

		appt, err := svc.Create(r.Context(), actor, params)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), actor, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Confirm(r.Context(), actor, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func resolveAppointmentHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		var req ResolveAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := svc.Resolve(r.Context(), actor, id, scheduling.Outcome(req.Outcome), req.VolumeML, req.Notes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := ResolveAppointmentResponse{
			Appointment:     toAppointmentResponse(result.Appointment),
			CampaignWarning: result.CampaignWarning,
		}
		if result.Donation != nil {
			d := toDonationResponse(result.Donation)
			resp.Donation = &d
			resp.NextEligibleDate = d.NextEligibleDate
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listMyAppointmentsHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no actor in request context")
			return
		}

		status, ok := statusFilter(w, r)
		if !ok {
			return
		}
		futureOnly := r.URL.Query().Get("future") == "true"

		appts, err := svc.ListForDonor(r.Context(), actor, status, futureOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListResponse(appts))
	}
}

func listBranchAppointmentsHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no actor in request context")
			return
		}

		status, ok := statusFilter(w, r)
		if !ok {
			return
		}

		var fromDate *time.Time
		if v := r.URL.Query().Get("from_date"); v != "" {
			d, err := time.Parse(dateFormat, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from_date", "from_date must be YYYY-MM-DD")
				return
			}
			fromDate = &d
		}

		appts, err := svc.ListForBranch(r.Context(), actor, status, fromDate)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListResponse(appts))
	}
}

func donorHistoryHandler(svc SchedulerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no actor in request context")
			return
		}

		records, stats, err := svc.DonorHistory(r.Context(), actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := DonorHistoryResponse{
			Donations: make([]DonationRecordResponse, 0, len(records)),
			Stats: DonationStatsResponse{
				Count:        stats.Count,
				TotalML:      stats.TotalML,
				CanDonateNow: stats.CanDonateNow,
			},
		}
		if stats.NextEligibleDate != nil {
			s := stats.NextEligibleDate.UTC().Format(dateFormat)
			resp.Stats.NextEligibleDate = &s
		}
		for i := range records {
			resp.Donations = append(resp.Donations, toDonationResponse(&records[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func campaignProgressHandler(svc CampaignService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_campaign_id", "id must be a valid UUID")
			return
		}

		progress, err := svc.Progress(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	}
}

func actorAndID(w http.ResponseWriter, r *http.Request) (scheduling.Actor, uuid.UUID, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "no actor in request context")
		return scheduling.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return scheduling.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func statusFilter(w http.ResponseWriter, r *http.Request) (*scheduling.Status, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	status := scheduling.Status(v)
	switch status {
	case scheduling.StatusPending, scheduling.StatusConfirmed, scheduling.StatusFulfilled,
		scheduling.StatusNoShow, scheduling.StatusCancelled:
		return &status, true
	}
	writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
	return nil, false
}

func toListResponse(appts []scheduling.Appointment) ListAppointmentsResponse {
	resp := ListAppointmentsResponse{
		Total:        len(appts),
		Appointments: make([]AppointmentResponse, 0, len(appts)),
	}
	for i := range appts {
		resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
	}
	return resp
}
