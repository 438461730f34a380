package models

import (
	"testing"
	"time"
)

func TestValidatePrizeDistributionAcceptsWithinBudget(t *testing.T) {
	d := PrizeDistribution{1: 50, 2: 30, 3: 20}
	if err := ValidatePrizeDistribution(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePrizeDistributionRejectsOutOfRangePercentage(t *testing.T) {
	cases := []PrizeDistribution{
		{1: 0},
		{1: -5},
		{1: 100.01},
	}
	for _, d := range cases {
		if err := ValidatePrizeDistribution(d); err == nil {
			t.Errorf("expected an error for distribution %+v", d)
		}
	}
}

func TestValidatePrizeDistributionRejectsOverspentPool(t *testing.T) {
	d := PrizeDistribution{1: 60, 2: 60}
	if err := ValidatePrizeDistribution(d); err == nil {
		t.Fatal("expected an error when placements sum past 100%")
	}
}

func day(offset int) time.Time {
	return time.Date(2026, time.March, 1+offset, 0, 0, 0, 0, time.UTC)
}

func TestValidateScheduleMonotonicityAcceptsOrderedWindows(t *testing.T) {
	tour := Tournament{
		RegistrationStart: day(0),
		RegistrationEnd:   day(1),
		CheckInStart:      day(2),
		CheckInEnd:        day(3),
		StartDate:         day(4),
	}
	if err := tour.ValidateScheduleMonotonicity(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateScheduleMonotonicityRejectsOutOfOrderWindows(t *testing.T) {
	tour := Tournament{
		RegistrationStart: day(2),
		RegistrationEnd:   day(1),
	}
	if err := tour.ValidateScheduleMonotonicity(); err == nil {
		t.Fatal("expected an error when registration_start is after registration_end")
	}
}

func TestValidateScheduleMonotonicityRejectsEndBeforeStart(t *testing.T) {
	start := day(5)
	end := day(4)
	tour := Tournament{StartDate: start, EndDate: &end}
	if err := tour.ValidateScheduleMonotonicity(); err == nil {
		t.Fatal("expected an error when end_date is before start_date")
	}
}

func TestValidateScheduleMonotonicityToleratesUnsetWindows(t *testing.T) {
	// Only start_date set: every other window is its zero value, and the
	// function must not treat two unset times as out of order.
	tour := Tournament{StartDate: day(0)}
	if err := tour.ValidateScheduleMonotonicity(); err != nil {
		t.Fatalf("unexpected error with only start_date set: %v", err)
	}
}

func TestValidateCapacityAcceptsWithinBounds(t *testing.T) {
	tour := Tournament{MinParticipants: 2, MaxParticipants: 64}
	if err := tour.ValidateCapacity(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCapacityRejectsBelowTwo(t *testing.T) {
	tour := Tournament{MinParticipants: 1, MaxParticipants: 64}
	if err := tour.ValidateCapacity(); err == nil {
		t.Fatal("expected an error when min_participants < 2")
	}
}

func TestValidateCapacityRejectsMinAboveMax(t *testing.T) {
	tour := Tournament{MinParticipants: 10, MaxParticipants: 8}
	if err := tour.ValidateCapacity(); err == nil {
		t.Fatal("expected an error when min_participants > max_participants")
	}
}

func TestValidateCapacityRejectsAboveHardCeiling(t *testing.T) {
	tour := Tournament{MinParticipants: 2, MaxParticipants: 1025}
	if err := tour.ValidateCapacity(); err == nil {
		t.Fatal("expected an error when max_participants > 1024")
	}
}

func TestValidateTeamSizeConsistencyAcceptsMatchingRoster(t *testing.T) {
	if err := ValidateTeamSizeConsistency(5, []int{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTeamSizeConsistencyRejectsSoloTournaments(t *testing.T) {
	if err := ValidateTeamSizeConsistency(1, []int{1}); err == nil {
		t.Fatal("expected an error for a non-team tournament")
	}
}

func TestValidateTeamSizeConsistencyRejectsMismatchedRoster(t *testing.T) {
	if err := ValidateTeamSizeConsistency(5, []int{1, 2, 3}); err == nil {
		t.Fatal("expected an error when roster size does not match team size")
	}
}

func TestIsWaitlistContiguousAcceptsGaplessSequence(t *testing.T) {
	if !IsWaitlistContiguous([]int{3, 1, 2}) {
		t.Fatal("expected [3,1,2] to be recognized as contiguous from 1")
	}
}

func TestIsWaitlistContiguousRejectsGap(t *testing.T) {
	if IsWaitlistContiguous([]int{1, 3, 4}) {
		t.Fatal("expected a gap at position 2 to be rejected")
	}
}

func TestIsWaitlistContiguousRejectsDuplicate(t *testing.T) {
	if IsWaitlistContiguous([]int{1, 2, 2}) {
		t.Fatal("expected a duplicate position to be rejected")
	}
}

func TestIsWaitlistContiguousRejectsNonPositive(t *testing.T) {
	if IsWaitlistContiguous([]int{0, 1, 2}) {
		t.Fatal("expected a non-positive position to be rejected")
	}
}
