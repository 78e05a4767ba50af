package scheduling

import (
	"fmt"
	"time"
)

// Rule tags identify which eligibility rule rejected a request. They feed
// the rejection metrics and keep reasons machine-matchable.
const (
	RulePast      = "past_timestamp"
	RuleMinLead   = "min_lead_time"
	RuleMaxLead   = "max_lead_time"
	RuleType      = "donation_type"
	RuleAge       = "age"
	RuleInterval  = "donation_interval"
	RuleDuplicate = "duplicate_booking"
)

const (
	MinLeadTime     = 24 * time.Hour
	MaxLeadTimeDays = 180
	MinDonorAge     = 16
	MaxDonorAge     = 69
)

type EligibilityRequest struct {
	ScheduledAt  time.Time
	DonationType DonationType
}

type EligibilityResult struct {
	Eligible     bool
	Rule         string
	Reason       string
	NextEligible *time.Time
}

// Err converts an ineligible result into the matching domain error.
// The duplicate-booking rule is a uniqueness violation, not bad input.
func (r EligibilityResult) Err() error {
	if r.Eligible {
		return nil
	}
	if r.Rule == RuleDuplicate {
		return NewConflict(r.Reason)
	}
	if r.NextEligible != nil {
		return NewIneligible(r.Reason, *r.NextEligible)
	}
	return NewValidation(r.Reason)
}

// EligibilityEvaluator applies the medical and business booking rules.
// It performs no I/O; the caller supplies the donor snapshot.
type EligibilityEvaluator struct {
	clock Clock
}

func NewEligibilityEvaluator(clock Clock) *EligibilityEvaluator {
	if clock == nil {
		clock = SystemClock()
	}
	return &EligibilityEvaluator{clock: clock}
}

func eligible() EligibilityResult {
	return EligibilityResult{Eligible: true}
}

func ineligible(rule, reason string) EligibilityResult {
	return EligibilityResult{Rule: rule, Reason: reason}
}

// Evaluate runs the rules in order and returns on the first failure.
func (e *EligibilityEvaluator) Evaluate(req EligibilityRequest, snap DonorSnapshot) EligibilityResult {
	now := e.clock.Now()
	ts := req.ScheduledAt.UTC()

	if !ts.After(now) {
		return ineligible(RulePast, "appointment time must be in the future")
	}
	if ts.Before(now.Add(MinLeadTime)) {
		return ineligible(RuleMinLead, "appointments must be booked at least 24 hours in advance")
	}
	if ts.After(now.AddDate(0, 0, MaxLeadTimeDays)) {
		return ineligible(RuleMaxLead, "appointments cannot be booked more than 180 days in advance")
	}
	if !req.DonationType.Valid() {
		return ineligible(RuleType, fmt.Sprintf("unknown donation type %q", req.DonationType))
	}

	if snap.BirthDate != nil {
		age := ageAt(*snap.BirthDate, now)
		if age < MinDonorAge {
			return ineligible(RuleAge, "donors must be at least 16 years old")
		}
		if age > MaxDonorAge {
			return ineligible(RuleAge, "donation is permitted up to age 69")
		}
	}

	if snap.LastDonation != nil {
		required := IntervalDays(snap.LastDonation.Type)
		elapsed := wholeDaysBetween(snap.LastDonation.Date, ts)
		if elapsed < required {
			next := NextEligibleDate(snap.LastDonation.Date, snap.LastDonation.Type)
			res := ineligible(RuleInterval, fmt.Sprintf(
				"minimum interval of %d days since your last %s donation not met", required, snap.LastDonation.Type))
			res.NextEligible = &next
			return res
		}
	}

	for _, pending := range snap.PendingAtBranch {
		if sameUTCDate(pending, ts) {
			return ineligible(RuleDuplicate, "you already have a pending appointment at this branch on that day")
		}
	}

	return eligible()
}

// ageAt returns whole years elapsed since birth, partial years rounded
// down. Calendar math, so a donor who turns 16 today is 16.
func ageAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if birth.AddDate(years, 0, 0).After(at) {
		years--
	}
	return years
}

func wholeDaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
