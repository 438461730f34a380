package models

import "testing"

func TestIsValidMatchStatusTransition(t *testing.T) {
	cases := []struct {
		from, to MatchStatus
		want     bool
	}{
		{MatchPending, MatchScheduled, true},
		{MatchPending, MatchPostponed, true},
		{MatchPending, MatchInProgress, false},
		{MatchScheduled, MatchCheckIn, true},
		{MatchScheduled, MatchInProgress, true},
		{MatchCheckIn, MatchInProgress, true},
		{MatchCheckIn, MatchScheduled, false},
		{MatchInProgress, MatchAwaitingConfirmation, true},
		{MatchInProgress, MatchCompleted, false},
		{MatchAwaitingConfirmation, MatchCompleted, true},
		{MatchAwaitingConfirmation, MatchDisputed, true},
		{MatchDisputed, MatchCompleted, true},
		{MatchDisputed, MatchInProgress, true},
		{MatchPostponed, MatchScheduled, true},
		{MatchPostponed, MatchCompleted, false},
		{MatchCompleted, MatchInProgress, false},
	}
	for _, c := range cases {
		if got := IsValidMatchStatusTransition(c.from, c.to); got != c.want {
			t.Errorf("IsValidMatchStatusTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsValidMatchStatusTransitionForfeitAndCancelledFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []MatchStatus{
		MatchPending, MatchScheduled, MatchCheckIn, MatchInProgress,
		MatchAwaitingConfirmation, MatchDisputed, MatchPostponed,
	}
	for _, from := range nonTerminal {
		if !IsValidMatchStatusTransition(from, MatchForfeit) {
			t.Errorf("expected %s -> forfeit to be valid", from)
		}
		if !IsValidMatchStatusTransition(from, MatchCancelled) {
			t.Errorf("expected %s -> cancelled to be valid", from)
		}
	}
}

func TestIsValidMatchStatusTransitionTerminalStatesAreSinks(t *testing.T) {
	terminal := []MatchStatus{MatchCompleted, MatchForfeit, MatchCancelled}
	for _, from := range terminal {
		if IsValidMatchStatusTransition(from, MatchForfeit) {
			t.Errorf("expected terminal status %s not to transition to forfeit again", from)
		}
		if IsValidMatchStatusTransition(from, MatchCancelled) {
			t.Errorf("expected terminal status %s not to transition to cancelled again", from)
		}
		if IsValidMatchStatusTransition(from, MatchScheduled) {
			t.Errorf("expected terminal status %s to have no outgoing transitions", from)
		}
	}
}
