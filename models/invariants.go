package models

import "fmt"

// ValidatePrizeDistribution enforces that every percentage lies in (0,100]
// and the distribution sums to at most 100.
func ValidatePrizeDistribution(d PrizeDistribution) error {
	for placement, pct := range d {
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("placement %d: percentage %.2f out of range (0,100]", placement, pct)
		}
	}
	if d.Sum() > 100 {
		return fmt.Errorf("prize distribution sums to %.2f, exceeds 100", d.Sum())
	}
	return nil
}

// ValidateScheduleMonotonicity enforces that, where set, registration,
// check-in and play windows are chronologically ordered.
func (t Tournament) ValidateScheduleMonotonicity() error {
	zero := func(v interface {
		IsZero() bool
	}) bool {
		return v.IsZero()
	}
	if !zero(t.RegistrationStart) && !zero(t.RegistrationEnd) && t.RegistrationStart.After(t.RegistrationEnd) {
		return fmt.Errorf("registration_start must not be after registration_end")
	}
	if !zero(t.RegistrationEnd) && !zero(t.CheckInStart) && t.RegistrationEnd.After(t.CheckInStart) {
		return fmt.Errorf("registration_end must not be after check_in_start")
	}
	if !zero(t.CheckInStart) && !zero(t.CheckInEnd) && t.CheckInStart.After(t.CheckInEnd) {
		return fmt.Errorf("check_in_start must not be after check_in_end")
	}
	if !zero(t.CheckInEnd) && !zero(t.StartDate) && t.CheckInEnd.After(t.StartDate) {
		return fmt.Errorf("check_in_end must not be after start_date")
	}
	if t.EndDate != nil && t.StartDate.After(*t.EndDate) {
		return fmt.Errorf("start_date must not be after end_date")
	}
	return nil
}

// ValidateCapacity enforces min_participants >= 2 and min <= max <= 1024.
func (t Tournament) ValidateCapacity() error {
	if t.MinParticipants < 2 {
		return fmt.Errorf("min_participants must be >= 2")
	}
	if t.MinParticipants > t.MaxParticipants {
		return fmt.Errorf("min_participants must be <= max_participants")
	}
	if t.MaxParticipants > 1024 {
		return fmt.Errorf("max_participants must be <= 1024")
	}
	return nil
}

// ValidateTeamSizeConsistency enforces that a team registration's member
// count matches the tournament's configured team size.
func ValidateTeamSizeConsistency(teamSize int, memberIDs []int) error {
	if teamSize <= 1 {
		return fmt.Errorf("tournament is not configured for team registration")
	}
	if len(memberIDs) != teamSize {
		return fmt.Errorf("team has %d members, expected %d", len(memberIDs), teamSize)
	}
	return nil
}

// IsWaitlistContiguous checks that the supplied positions, taken from all
// waitlisted registrations of one tournament, form 1..k with no gaps.
func IsWaitlistContiguous(positions []int) bool {
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 1 || seen[p] {
			return false
		}
		seen[p] = true
	}
	for i := 1; i <= len(positions); i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}
