package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/tourney-engine/models"
)

func generateDoubleElim(t *testing.T, n int, reset bool) []GeneratedBracket {
	t.Helper()
	g := NewDoubleEliminationGenerator()
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{GrandFinalsReset: reset},
		Seeds:      seedList(n),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(brs) != 3 {
		t.Fatalf("got %d brackets, want 3 (winners, losers, grand finals)", len(brs))
	}
	return brs
}

func bracketByType(t *testing.T, brs []GeneratedBracket, typ models.BracketType) GeneratedBracket {
	t.Helper()
	for _, b := range brs {
		if b.Type == typ {
			return b
		}
	}
	t.Fatalf("no bracket of type %s in result", typ)
	return GeneratedBracket{}
}

func TestDoubleEliminationRejectsFewerThanTwoSeeds(t *testing.T) {
	g := NewDoubleEliminationGenerator()
	_, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(1),
	})
	if err == nil {
		t.Fatal("expected an error for fewer than 2 participants")
	}
}

func TestDoubleEliminationBracketCountsFourParticipants(t *testing.T) {
	brs := generateDoubleElim(t, 4, false)

	winners := bracketByType(t, brs, models.BracketWinners)
	if winners.TotalRounds != 2 {
		t.Errorf("winners TotalRounds = %d, want 2", winners.TotalRounds)
	}
	if len(winners.Matches) != 3 {
		t.Errorf("winners matches = %d, want 3 (2 round-1 + 1 final)", len(winners.Matches))
	}

	losers := bracketByType(t, brs, models.BracketLosers)
	if losers.TotalRounds != 2 {
		t.Errorf("losers TotalRounds = %d, want 2", losers.TotalRounds)
	}
	if len(losers.Matches) != 2 {
		t.Errorf("losers matches = %d, want 2", len(losers.Matches))
	}

	grandFinals := bracketByType(t, brs, models.BracketGrandFinals)
	if len(grandFinals.Matches) != 1 {
		t.Errorf("grand finals matches = %d, want 1 when reset is not configured", len(grandFinals.Matches))
	}
}

func TestDoubleEliminationBracketCountsEightParticipants(t *testing.T) {
	brs := generateDoubleElim(t, 8, false)

	winners := bracketByType(t, brs, models.BracketWinners)
	if winners.TotalRounds != 3 {
		t.Errorf("winners TotalRounds = %d, want 3", winners.TotalRounds)
	}
	if len(winners.Matches) != 7 {
		t.Errorf("winners matches = %d, want 7 (4+2+1)", len(winners.Matches))
	}

	losers := bracketByType(t, brs, models.BracketLosers)
	if losers.TotalRounds != 4 {
		t.Errorf("losers TotalRounds = %d, want 4 (drop-1, merge-2, consolidation-3, merge-4/final)", losers.TotalRounds)
	}
	if len(losers.Matches) != 6 {
		t.Errorf("losers matches = %d, want 6 (2+2+1+1)", len(losers.Matches))
	}
}

// TestDoubleEliminationEightParticipantsNoDanglingLoserEdges guards against a
// once-beaten player being silently dropped from the losers bracket: every
// non-bye winners match's LoserNext must resolve to a match that actually
// exists in the generated losers bracket.
func TestDoubleEliminationEightParticipantsNoDanglingLoserEdges(t *testing.T) {
	brs := generateDoubleElim(t, 8, false)
	winners := bracketByType(t, brs, models.BracketWinners)
	losers := bracketByType(t, brs, models.BracketLosers)

	exists := make(map[[2]int]bool, len(losers.Matches))
	for _, m := range losers.Matches {
		exists[[2]int{m.Round, m.MatchNumber}] = true
	}

	for _, m := range winners.Matches {
		if m.IsBye {
			continue
		}
		if !m.HasLoserNext {
			t.Errorf("winners match round %d #%d must drop into the losers bracket", m.Round, m.MatchNumber)
			continue
		}
		key := [2]int{m.LoserNextRound, m.LoserNextMatchNumber}
		if !exists[key] {
			t.Errorf("winners match round %d #%d points at losers (round %d, match %d), which was never generated",
				m.Round, m.MatchNumber, m.LoserNextRound, m.LoserNextMatchNumber)
		}
	}
}

func TestDoubleEliminationGrandFinalsResetAddsSecondMatch(t *testing.T) {
	brs := generateDoubleElim(t, 4, true)
	grandFinals := bracketByType(t, brs, models.BracketGrandFinals)
	if len(grandFinals.Matches) != 2 {
		t.Fatalf("grand finals matches = %d, want 2 when reset is configured", len(grandFinals.Matches))
	}
	if grandFinals.Matches[0].Type != models.MatchTypeGrandFinals {
		t.Errorf("first grand finals match type = %s, want %s", grandFinals.Matches[0].Type, models.MatchTypeGrandFinals)
	}
	if grandFinals.Matches[1].Type != models.MatchTypeGrandFinalsReset {
		t.Errorf("second grand finals match type = %s, want %s", grandFinals.Matches[1].Type, models.MatchTypeGrandFinalsReset)
	}
	if !grandFinals.Matches[0].HasNext || grandFinals.Matches[0].NextBracketType != models.BracketGrandFinals {
		t.Error("the first grand finals match must link forward to the reset match")
	}
}

func TestDoubleEliminationWinnersRound1LosersFeedLosersBracketRoundOne(t *testing.T) {
	brs := generateDoubleElim(t, 4, false)
	winners := bracketByType(t, brs, models.BracketWinners)
	for _, m := range winners.Matches {
		if m.Round != 1 {
			continue
		}
		if !m.HasLoserNext {
			t.Errorf("round-1 winners match %+v must feed the losers bracket", m)
			continue
		}
		if m.LoserNextBracketType != models.BracketLosers || m.LoserNextRound != 1 {
			t.Errorf("round-1 winners match loser-next = (%s, round %d), want (losers, round 1)",
				m.LoserNextBracketType, m.LoserNextRound)
		}
	}
}

func TestDoubleEliminationFinalsLinkBothBracketChampions(t *testing.T) {
	brs := generateDoubleElim(t, 4, false)
	winners := bracketByType(t, brs, models.BracketWinners)
	losers := bracketByType(t, brs, models.BracketLosers)

	var winnersFinal *GeneratedMatch
	for i := range winners.Matches {
		if winners.Matches[i].Round == winners.TotalRounds {
			winnersFinal = &winners.Matches[i]
		}
	}
	if winnersFinal == nil {
		t.Fatal("could not locate the winners bracket final")
	}
	if !winnersFinal.HasNext || winnersFinal.NextBracketType != models.BracketGrandFinals {
		t.Error("the winners bracket final must advance into grand finals")
	}

	var losersFinal *GeneratedMatch
	for i := range losers.Matches {
		if losers.Matches[i].Round == losers.TotalRounds {
			losersFinal = &losers.Matches[i]
		}
	}
	if losersFinal == nil {
		t.Fatal("could not locate the losers bracket final")
	}
	if !losersFinal.HasNext || losersFinal.NextBracketType != models.BracketGrandFinals {
		t.Error("the losers bracket final must advance into grand finals")
	}
}
