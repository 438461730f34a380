package models

import "testing"

func TestIsValidRegistrationStatusTransition(t *testing.T) {
	cases := []struct {
		from, to RegistrationStatus
		want     bool
	}{
		{RegistrationPending, RegistrationConfirmed, true},
		{RegistrationPending, RegistrationWaitlisted, true},
		{RegistrationPending, RegistrationCheckedIn, false},
		{RegistrationWaitlisted, RegistrationConfirmed, true},
		{RegistrationWaitlisted, RegistrationCheckedIn, false},
		{RegistrationConfirmed, RegistrationCheckedIn, true},
		{RegistrationConfirmed, RegistrationDisqualified, true},
		{RegistrationConfirmed, RegistrationNoShow, true},
		{RegistrationCheckedIn, RegistrationDisqualified, true},
		{RegistrationCheckedIn, RegistrationConfirmed, false},
		{RegistrationCancelled, RegistrationConfirmed, false},
		{RegistrationDisqualified, RegistrationConfirmed, false},
		{RegistrationNoShow, RegistrationConfirmed, false},
	}
	for _, c := range cases {
		got := IsValidRegistrationStatusTransition(c.from, c.to)
		if got != c.want {
			t.Errorf("IsValidRegistrationStatusTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsValidRegistrationStatusTransitionTerminalStatesAreSinks(t *testing.T) {
	for _, from := range []RegistrationStatus{RegistrationCancelled, RegistrationDisqualified, RegistrationNoShow} {
		for _, to := range []RegistrationStatus{
			RegistrationPending, RegistrationConfirmed, RegistrationWaitlisted,
			RegistrationCheckedIn, RegistrationCancelled, RegistrationDisqualified, RegistrationNoShow,
		} {
			if IsValidRegistrationStatusTransition(from, to) {
				t.Errorf("expected %s to have no outgoing transitions, but %s -> %s was accepted", from, from, to)
			}
		}
	}
}

func TestIsValidRegistrationStatusTransitionCancelledFromActiveStates(t *testing.T) {
	for _, from := range []RegistrationStatus{
		RegistrationPending, RegistrationWaitlisted, RegistrationConfirmed, RegistrationCheckedIn,
	} {
		if !IsValidRegistrationStatusTransition(from, RegistrationCancelled) {
			t.Errorf("expected %s -> cancelled to be valid", from)
		}
	}
}
