package services

import (
	"testing"

	"github.com/Dosada05/tourney-engine/models"
)

func intPtr(i int) *int { return &i }

func TestSortStandingsOrdersByPointsFirst(t *testing.T) {
	standings := []models.Standing{
		{RegistrationID: 1, Points: 3},
		{RegistrationID: 2, Points: 9},
		{RegistrationID: 3, Points: 6},
	}
	sortStandings(standings)
	if standings[0].RegistrationID != 2 || standings[1].RegistrationID != 3 || standings[2].RegistrationID != 1 {
		t.Fatalf("unexpected order: %+v", standings)
	}
}

func TestSortStandingsFallsThroughTieBreakLevels(t *testing.T) {
	// Equal points: break on wins.
	a := models.Standing{RegistrationID: 1, Points: 5, Wins: 2}
	b := models.Standing{RegistrationID: 2, Points: 5, Wins: 3}
	standings := []models.Standing{a, b}
	sortStandings(standings)
	if standings[0].RegistrationID != 2 {
		t.Fatalf("expected higher wins to rank first when points tie, got %+v", standings)
	}

	// Equal points and wins: break on Buchholz.
	a = models.Standing{RegistrationID: 1, Points: 5, Wins: 2, BuchholzScore: 10}
	b = models.Standing{RegistrationID: 2, Points: 5, Wins: 2, BuchholzScore: 14}
	standings = []models.Standing{a, b}
	sortStandings(standings)
	if standings[0].RegistrationID != 2 {
		t.Fatalf("expected higher buchholz to rank first, got %+v", standings)
	}

	// Equal through Buchholz: break on game differential.
	a = models.Standing{RegistrationID: 1, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 20, GamesLost: 15}
	b = models.Standing{RegistrationID: 2, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 20, GamesLost: 10}
	standings = []models.Standing{a, b}
	sortStandings(standings)
	if standings[0].RegistrationID != 2 {
		t.Fatalf("expected better game differential to rank first, got %+v", standings)
	}

	// Equal through game differential: break on games won.
	a = models.Standing{RegistrationID: 1, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 15, GamesLost: 5}
	b = models.Standing{RegistrationID: 2, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 20, GamesLost: 10}
	standings = []models.Standing{a, b}
	sortStandings(standings)
	if standings[0].RegistrationID != 2 {
		t.Fatalf("expected higher games won to rank first, got %+v", standings)
	}
}

func TestSortStandingsHeadToHeadDecidesFinalTie(t *testing.T) {
	a := models.Standing{
		RegistrationID: 1, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 15, GamesLost: 5,
		HeadToHeadWins: map[int]int{2: 1},
	}
	b := models.Standing{
		RegistrationID: 2, Points: 5, Wins: 2, BuchholzScore: 10, GamesWon: 15, GamesLost: 5,
		HeadToHeadWins: map[int]int{1: 0},
	}
	standings := []models.Standing{b, a}
	sortStandings(standings)
	if standings[0].RegistrationID != 1 {
		t.Fatalf("expected the head-to-head winner to rank first, got %+v", standings)
	}
}

func TestSortStandingsUndecidedHeadToHeadFallsThroughToSeed(t *testing.T) {
	// Three-way tie through every level down to head-to-head, but none of
	// them have a recorded result against each other (e.g. a Swiss group
	// where not every pair met): headToHeadOrder is never decisive here,
	// so the comparator must fall through to seed.
	a := models.Standing{RegistrationID: 1, Points: 5, Seed: intPtr(2)}
	b := models.Standing{RegistrationID: 2, Points: 5, Seed: intPtr(3)}
	c := models.Standing{RegistrationID: 3, Points: 5, Seed: intPtr(1)}
	standings := []models.Standing{a, b, c}
	sortStandings(standings)
	if standings[0].RegistrationID != 3 {
		t.Fatalf("expected the lowest seed number to rank first once head-to-head is undecided, got %+v", standings)
	}
}

func TestComputeBuchholzAndOpponentWinRate(t *testing.T) {
	byRegistration := map[int]*models.Standing{
		1: {RegistrationID: 1, Points: 3, WinRate: 1.0},
		2: {RegistrationID: 2, Points: 1, WinRate: 0.5},
		3: {RegistrationID: 3, Points: 0, WinRate: 0.0},
	}
	matches := []models.Match{
		{Participant1: models.Slot{RegistrationID: intPtr(1)}, Participant2: models.Slot{RegistrationID: intPtr(2)}},
		{Participant1: models.Slot{RegistrationID: intPtr(2)}, Participant2: models.Slot{RegistrationID: intPtr(3)}},
	}
	computeBuchholzAndOpponentWinRate(byRegistration, matches)

	// Participant 2 played 1 and 3: buchholz = 3 + 0 = 3, opponent win rate = (1.0+0.0)/2.
	if byRegistration[2].BuchholzScore != 3 {
		t.Errorf("participant 2 buchholz = %v, want 3", byRegistration[2].BuchholzScore)
	}
	if byRegistration[2].OpponentWinRate != 0.5 {
		t.Errorf("participant 2 opponent win rate = %v, want 0.5", byRegistration[2].OpponentWinRate)
	}

	// Participant 1 only played 2: buchholz = 1, opponent win rate = 0.5.
	if byRegistration[1].BuchholzScore != 1 {
		t.Errorf("participant 1 buchholz = %v, want 1", byRegistration[1].BuchholzScore)
	}
	if byRegistration[1].OpponentWinRate != 0.5 {
		t.Errorf("participant 1 opponent win rate = %v, want 0.5", byRegistration[1].OpponentWinRate)
	}
}

func TestComputeBuchholzAndOpponentWinRateUnplayedParticipantIsZero(t *testing.T) {
	byRegistration := map[int]*models.Standing{
		1: {RegistrationID: 1, Points: 0, WinRate: 0, BuchholzScore: 7, OpponentWinRate: 0.3},
	}
	computeBuchholzAndOpponentWinRate(byRegistration, nil)
	if byRegistration[1].BuchholzScore != 0 {
		t.Errorf("expected buchholz to reset to 0 for a participant with no completed matches, got %v", byRegistration[1].BuchholzScore)
	}
	if byRegistration[1].OpponentWinRate != 0 {
		t.Errorf("expected opponent win rate to reset to 0 for a participant with no completed matches, got %v", byRegistration[1].OpponentWinRate)
	}
}
