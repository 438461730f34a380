package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/tourney-engine/models"
)

func seedList(n int) []Seed {
	seeds := make([]Seed, n)
	for i := 0; i < n; i++ {
		seeds[i] = Seed{RegistrationID: i + 1, Name: "p", Seed: i + 1}
	}
	return seeds
}

func TestSingleEliminationGenerateRejectsFewerThanTwoSeeds(t *testing.T) {
	g := NewSingleEliminationGenerator()
	_, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(1),
	})
	if err == nil {
		t.Fatal("expected an error for fewer than 2 participants")
	}
}

func TestSingleEliminationBracketSizeAndByes(t *testing.T) {
	cases := []struct {
		participants  int
		wantRounds    int
		wantByeCount  int
		wantRound1Len int
	}{
		{2, 1, 0, 1},
		{3, 2, 1, 2},
		{4, 2, 0, 2},
		{5, 3, 3, 4},
		{8, 3, 0, 4},
		{9, 4, 7, 8},
	}
	g := NewSingleEliminationGenerator()
	for _, c := range cases {
		brs, err := g.Generate(context.Background(), GenerateParams{
			Tournament: &models.Tournament{},
			Seeds:      seedList(c.participants),
		})
		if err != nil {
			t.Fatalf("%d participants: unexpected error: %v", c.participants, err)
		}
		if len(brs) != 1 {
			t.Fatalf("%d participants: expected exactly one bracket, got %d", c.participants, len(brs))
		}
		br := brs[0]
		if br.TotalRounds != c.wantRounds {
			t.Errorf("%d participants: TotalRounds = %d, want %d", c.participants, br.TotalRounds, c.wantRounds)
		}
		if br.ByeCount != c.wantByeCount {
			t.Errorf("%d participants: ByeCount = %d, want %d", c.participants, br.ByeCount, c.wantByeCount)
		}
		round1 := 0
		for _, m := range br.Matches {
			if m.Round == 1 {
				round1++
			}
		}
		if round1 != c.wantRound1Len {
			t.Errorf("%d participants: round 1 match count = %d, want %d", c.participants, round1, c.wantRound1Len)
		}
	}
}

// TestSingleEliminationStandardSeeding checks the defining invariant of
// standard tournament seeding: the top two seeds can only meet in the
// final, never earlier.
func TestSingleEliminationStandardSeeding(t *testing.T) {
	g := NewSingleEliminationGenerator()
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(8),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches := brs[0].Matches
	finalRound := brs[0].TotalRounds
	for _, m := range matches {
		if m.Round == finalRound {
			continue
		}
		p1, p2 := m.Participant1.Seed, m.Participant2.Seed
		if p1 == nil || p2 == nil {
			continue
		}
		if (*p1 == 1 && *p2 == 2) || (*p1 == 2 && *p2 == 1) {
			t.Errorf("seed 1 and seed 2 met before the final, in round %d", m.Round)
		}
	}
}

// TestSingleEliminationByesResolveImmediately verifies a bye match is
// completed eagerly at generation time rather than waiting for play.
func TestSingleEliminationByesResolveImmediately(t *testing.T) {
	g := NewSingleEliminationGenerator()
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foundBye := false
	for _, m := range brs[0].Matches {
		if m.Round != 1 {
			continue
		}
		if m.IsBye {
			foundBye = true
			if m.WinnerID == nil {
				t.Error("bye match has no winner recorded")
			}
		}
	}
	if !foundBye {
		t.Error("expected one round-1 bye match for 3 participants")
	}
}

// TestSingleEliminationByeWinnersPropagateIntoRoundTwo ensures a round-1
// bye winner is placed into its round-2 slot at generation time, without
// waiting on an actual match.
func TestSingleEliminationByeWinnersPropagateIntoRoundTwo(t *testing.T) {
	g := NewSingleEliminationGenerator()
	// 5 participants in an 8-slot bracket puts three byes in round 1;
	// with standard seeding, seeds 1, 2 and 3 face byes, so round 2
	// should already carry a bye winner on at least one slot.
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	round2HasPrefilledSlot := false
	for _, m := range brs[0].Matches {
		if m.Round != 2 {
			continue
		}
		if m.Participant1.RegistrationID != nil || m.Participant2.RegistrationID != nil {
			round2HasPrefilledSlot = true
		}
	}
	if !round2HasPrefilledSlot {
		t.Error("expected a bye winner to propagate into round 2")
	}
}
