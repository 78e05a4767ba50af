package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemovida/donation-scheduling/internal/observability/metrics"
	"github.com/hemovida/donation-scheduling/internal/redisclient"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentFulfilled = "APPOINTMENT_FULFILLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
)

// CreateParams carries a booking request into the scheduler.
type CreateParams struct {
	BranchID     uuid.UUID
	ScheduledAt  time.Time
	DonationType DonationType
	CampaignID   *uuid.UUID
	Notes        *string
}

// ResolveResult is returned by Resolve for a fulfilled outcome. When the
// campaign increment failed the donation still stands and CampaignWarning
// explains what went wrong.
type ResolveResult struct {
	Appointment     *Appointment
	Donation        *DonationRecord
	CampaignWarning string
}

// DonationStats summarizes a donor's history.
type DonationStats struct {
	Count            int
	TotalML          int
	NextEligibleDate *time.Time
	CanDonateNow     bool
}

// Scheduler orchestrates eligibility, persistence and the appointment
// state machine: pending -> confirmed -> fulfilled | no_show, with
// cancellation allowed from pending or confirmed. Terminal states absorb.
type Scheduler struct {
	store           Store
	locker          redisclient.Locker
	evaluator       *EligibilityEvaluator
	recorder        *DonationRecorder
	campaigns       *CampaignProgressTracker
	clock           Clock
	log             zerolog.Logger
	metrics         *metrics.SchedulingMetrics
	defaultVolumeML int
}

type SchedulerOptions struct {
	Clock           Clock
	Metrics         *metrics.SchedulingMetrics
	DefaultVolumeML int
}

func NewScheduler(store Store, locker redisclient.Locker, recorder *DonationRecorder, campaigns *CampaignProgressTracker, log zerolog.Logger, opts SchedulerOptions) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	volume := opts.DefaultVolumeML
	if volume == 0 {
		volume = 450
	}
	return &Scheduler{
		store:           store,
		locker:          locker,
		evaluator:       NewEligibilityEvaluator(clock),
		recorder:        recorder,
		campaigns:       campaigns,
		clock:           clock,
		log:             log,
		metrics:         opts.Metrics,
		defaultVolumeML: volume,
	}
}

// Create books a pending appointment for the acting donor. The duplicate
// same-day check runs twice: once in the evaluator against the snapshot,
// and again inside the booking lock right before the insert, so two
// concurrent requests cannot both pass it.
func (s *Scheduler) Create(ctx context.Context, actor Actor, p CreateParams) (*Appointment, error) {
	if actor.Role != RoleDonor {
		return nil, NewForbidden("only donors can book appointments")
	}

	donor, err := s.store.GetDonorByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	branch, err := s.store.GetBranchByID(ctx, p.BranchID)
	if err != nil {
		return nil, err
	}
	if !branch.Active {
		return nil, NewValidation("this branch is temporarily deactivated")
	}

	if p.CampaignID != nil {
		campaign, err := s.store.GetCampaignByID(ctx, *p.CampaignID)
		if err != nil {
			return nil, err
		}
		if !campaign.Active {
			return nil, NewValidation("this campaign is no longer active")
		}
	}

	snap, err := LoadDonorSnapshot(ctx, s.store, donor, p.BranchID, p.ScheduledAt)
	if err != nil {
		return nil, err
	}

	res := s.evaluator.Evaluate(EligibilityRequest{ScheduledAt: p.ScheduledAt, DonationType: p.DonationType}, snap)
	if !res.Eligible {
		s.metrics.ObserveRejection(res.Rule)
		return nil, res.Err()
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, donor.ID, p.BranchID, p.ScheduledAt, func(lockCtx context.Context) error {
		// Re-check inside the critical section: another request may have
		// inserted between snapshot and lock.
		existing, err := s.store.FindPendingOnDay(lockCtx, donor.ID, p.BranchID, p.ScheduledAt)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return NewConflict("you already have a pending appointment at this branch on that day")
		}

		appt, err := s.store.CreateAppointment(lockCtx, NewAppointmentParams{
			DonorID:      donor.ID,
			BranchID:     p.BranchID,
			CampaignID:   p.CampaignID,
			ScheduledAt:  p.ScheduledAt,
			DonationType: p.DonationType,
			Notes:        p.Notes,
		})
		if err != nil {
			return err
		}

		created = appt
		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"donor_id":      donor.ID.String(),
			"branch_id":     p.BranchID.String(),
			"scheduled_at":  p.ScheduledAt.UTC(),
			"donation_type": string(p.DonationType),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, NewConflict("a booking for this day is already in progress, please retry")
		}
		return nil, err
	}

	s.metrics.ObserveCreated(string(created.DonationType))
	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("donor_id", donor.ID.String()).
		Time("scheduled_at", created.ScheduledAt).
		Msg("appointment created")

	return created, nil
}

// Cancel moves an appointment to cancelled. Only the owning donor may
// cancel, and only from pending or confirmed. The row stays in place:
// cancellation is a status, not a delete.
func (s *Scheduler) Cancel(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleDonor || appt.DonorID != actor.ID {
		return nil, NewForbidden("you do not have permission to cancel this appointment")
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, []Status{StatusPending, StatusConfirmed}, StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(StatusCancelled))
	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"donor_id": actor.ID.String(),
	})
	return updated, nil
}

// Confirm moves a pending appointment to confirmed. Only a collaborator of
// the owning branch may confirm.
func (s *Scheduler) Confirm(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireBranchActor(actor, appt.BranchID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, []Status{StatusPending}, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(StatusConfirmed))
	s.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{
		"collaborator_id": actor.ID.String(),
	})
	return updated, nil
}

// Resolve closes an appointment as fulfilled or no_show. Fulfillment
// transitions status, records the donation exactly once and increments the
// linked campaign best-effort. The CAS transition serializes concurrent
// resolves: the loser never reaches the recorder.
func (s *Scheduler) Resolve(ctx context.Context, actor Actor, appointmentID uuid.UUID, outcome Outcome, volumeML int, notes *string) (*ResolveResult, error) {
	appt, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireBranchActor(actor, appt.BranchID); err != nil {
		return nil, err
	}

	switch outcome {
	case OutcomeNoShow:
		updated, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, []Status{StatusPending, StatusConfirmed}, StatusNoShow)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveTransition(string(StatusNoShow))
		s.logEvent(ctx, updated.ID, EventAppointmentNoShow, map[string]any{
			"collaborator_id": actor.ID.String(),
		})
		return &ResolveResult{Appointment: updated}, nil

	case OutcomeFulfilled:
		return s.fulfill(ctx, actor, appt, volumeML, notes)

	default:
		return nil, NewValidation("outcome must be fulfilled or no_show")
	}
}

func (s *Scheduler) fulfill(ctx context.Context, actor Actor, appt *Appointment, volumeML int, notes *string) (*ResolveResult, error) {
	// Reject before touching status if a record already exists. The unique
	// index on appointment_id backs this up inside the insert itself.
	if _, err := s.store.GetDonationByAppointment(ctx, appt.ID); err == nil {
		return nil, NewConflict("donation already recorded for this appointment")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Resolve and validate the volume before touching status: a rejected
	// volume must leave the appointment in its prior state, and the CAS
	// cannot be retried once it lands on fulfilled.
	if volumeML == 0 {
		volumeML = s.defaultVolumeML
	}
	if err := ValidateVolume(volumeML); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, []Status{StatusPending, StatusConfirmed}, StatusFulfilled)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(StatusFulfilled))

	record, err := s.recorder.Record(ctx, updated, volumeML, notes)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDonationRecorded()

	result := &ResolveResult{Appointment: updated, Donation: record}

	// The donation is the authoritative event: a campaign failure is
	// reported, not rolled back.
	if updated.CampaignID != nil {
		if err := s.campaigns.Increment(ctx, *updated.CampaignID, record.VolumeML); err != nil {
			s.metrics.ObserveCampaignIncrementError()
			s.log.Warn().
				Err(err).
				Str("appointment_id", updated.ID.String()).
				Str("campaign_id", updated.CampaignID.String()).
				Msg("campaign increment failed after donation recorded")
			result.CampaignWarning = "donation recorded, but campaign progress could not be updated"
		}
	}

	s.logEvent(ctx, updated.ID, EventAppointmentFulfilled, map[string]any{
		"collaborator_id":    actor.ID.String(),
		"donation_record_id": record.ID.String(),
		"volume_ml":          record.VolumeML,
		"next_eligible_date": record.NextEligibleDate,
	})
	return result, nil
}

// SweepNoShows marks appointments still pending or confirmed past the
// grace period after their scheduled time as no_show. Run periodically by
// the worker; each transition is an independent CAS so a concurrent manual
// resolve always wins or loses cleanly.
func (s *Scheduler) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-grace)
	overdue, err := s.store.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, appt := range overdue {
		_, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, []Status{StatusPending, StatusConfirmed}, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("no-show sweep failed for appointment")
			continue
		}
		swept++
		s.logEvent(ctx, appt.ID, EventAppointmentNoShow, map[string]any{
			"reason": "sweep",
		})
	}
	return swept, nil
}

// ListForDonor returns the acting donor's own appointments.
func (s *Scheduler) ListForDonor(ctx context.Context, actor Actor, status *Status, futureOnly bool) ([]Appointment, error) {
	if actor.Role != RoleDonor {
		return nil, NewForbidden("donor role required")
	}
	f := AppointmentFilter{Status: status}
	if futureOnly {
		now := s.clock.Now()
		f.FromDate = &now
	}
	return s.store.ListAppointmentsByDonor(ctx, actor.ID, f)
}

// ListForBranch returns the appointments of the collaborator's branch.
func (s *Scheduler) ListForBranch(ctx context.Context, actor Actor, status *Status, fromDate *time.Time) ([]Appointment, error) {
	if actor.Role != RoleCollaborator {
		return nil, NewForbidden("branch collaborator role required")
	}
	return s.store.ListAppointmentsByBranch(ctx, actor.BranchID, AppointmentFilter{Status: status, FromDate: fromDate})
}

// DonorHistory returns the acting donor's donation records with summary
// statistics.
func (s *Scheduler) DonorHistory(ctx context.Context, actor Actor) ([]DonationRecord, DonationStats, error) {
	if actor.Role != RoleDonor {
		return nil, DonationStats{}, NewForbidden("donor role required")
	}

	records, err := s.store.ListDonationsByDonor(ctx, actor.ID)
	if err != nil {
		return nil, DonationStats{}, err
	}

	stats := DonationStats{Count: len(records), CanDonateNow: true}
	for _, r := range records {
		stats.TotalML += r.VolumeML
	}
	if len(records) > 0 {
		next := records[0].NextEligibleDate
		stats.NextEligibleDate = &next
		stats.CanDonateNow = !s.clock.Now().Before(next)
	}
	return records, stats, nil
}

func requireBranchActor(actor Actor, branchID uuid.UUID) error {
	if actor.Role != RoleCollaborator || actor.BranchID != branchID {
		return NewForbidden("you do not have permission to manage this appointment")
	}
	return nil
}

func (s *Scheduler) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
