package scheduling

import "time"

// Minimum days between donations, by type. Whole blood needs the longest
// recovery; platelets and plasma can be repeated after 48 hours.
const (
	IntervalWholeBloodDays = 75
	IntervalPlateletsDays  = 2
	IntervalPlasmaDays     = 2
	IntervalApheresisDays  = 7
	IntervalDefaultDays    = 60
)

// IntervalDays returns the minimum number of days a donor must wait after
// a donation of type t before donating again. Unrecognized types get the
// conservative default.
func IntervalDays(t DonationType) int {
	switch t {
	case TypeWholeBlood:
		return IntervalWholeBloodDays
	case TypePlatelets:
		return IntervalPlateletsDays
	case TypePlasma:
		return IntervalPlasmaDays
	case TypeApheresis:
		return IntervalApheresisDays
	default:
		return IntervalDefaultDays
	}
}

// NextEligibleDate is the first day the donor may donate again after a
// donation of type t on the given date.
func NextEligibleDate(donationDate time.Time, t DonationType) time.Time {
	return donationDate.AddDate(0, 0, IntervalDays(t))
}
