package scheduling

import (
	"testing"
	"time"
)

func TestIntervalDays(t *testing.T) {
	cases := []struct {
		donationType DonationType
		want         int
	}{
		{TypeWholeBlood, 75},
		{TypePlatelets, 2},
		{TypePlasma, 2},
		{TypeApheresis, 7},
		{DonationType("unknown"), 60},
	}
	for _, tc := range cases {
		if got := IntervalDays(tc.donationType); got != tc.want {
			t.Errorf("IntervalDays(%s) = %d, want %d", tc.donationType, got, tc.want)
		}
	}
}

func TestNextEligibleDate(t *testing.T) {
	donated := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	got := NextEligibleDate(donated, TypeWholeBlood)
	want := time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextEligibleDate = %v, want %v", got, want)
	}

	got = NextEligibleDate(donated, TypePlatelets)
	want = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextEligibleDate = %v, want %v", got, want)
	}
}
