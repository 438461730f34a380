package models

import "testing"

func TestIsValidTournamentStatusTransition(t *testing.T) {
	cases := []struct {
		from, to TournamentStatus
		want     bool
	}{
		{TournamentDraft, TournamentRegistrationOpen, true},
		{TournamentDraft, TournamentCheckIn, false},
		{TournamentRegistrationOpen, TournamentRegistrationClosed, true},
		{TournamentRegistrationOpen, TournamentInProgress, false},
		{TournamentRegistrationClosed, TournamentCheckIn, true},
		{TournamentCheckIn, TournamentInProgress, true},
		{TournamentInProgress, TournamentCompleted, true},
		{TournamentInProgress, TournamentRegistrationOpen, false},
		{TournamentCompleted, TournamentInProgress, false},
		{TournamentCancelled, TournamentDraft, false},
	}
	for _, c := range cases {
		got := IsValidTournamentStatusTransition(c.from, c.to)
		if got != c.want {
			t.Errorf("IsValidTournamentStatusTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsValidTournamentStatusTransitionCancelledFromAnyNonTerminal(t *testing.T) {
	for _, from := range []TournamentStatus{
		TournamentDraft, TournamentRegistrationOpen, TournamentRegistrationClosed,
		TournamentCheckIn, TournamentInProgress,
	} {
		if !IsValidTournamentStatusTransition(from, TournamentCancelled) {
			t.Errorf("expected %s -> cancelled to be valid", from)
		}
	}
}

func TestTournamentStatusIsTerminal(t *testing.T) {
	for _, s := range []TournamentStatus{TournamentCompleted, TournamentCancelled} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []TournamentStatus{
		TournamentDraft, TournamentRegistrationOpen, TournamentRegistrationClosed,
		TournamentCheckIn, TournamentInProgress,
	} {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
