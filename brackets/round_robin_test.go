package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/tourney-engine/models"
)

func TestRoundRobinEveryParticipantPlaysEveryOtherOnce(t *testing.T) {
	for _, n := range []int{3, 4, 5, 6, 7} {
		t.Run("", func(t *testing.T) {
			g := NewRoundRobinGenerator()
			brs, err := g.Generate(context.Background(), GenerateParams{
				Tournament: &models.Tournament{},
				Seeds:      seedList(n),
			})
			if err != nil {
				t.Fatalf("n=%d: unexpected error: %v", n, err)
			}
			matches := brs[0].Matches
			wantTotal := n * (n - 1) / 2
			if len(matches) != wantTotal {
				t.Fatalf("n=%d: got %d matches, want %d", n, len(matches), wantTotal)
			}

			seen := make(map[[2]int]bool)
			played := make(map[int]int)
			for _, m := range matches {
				a, b := *m.Participant1.RegistrationID, *m.Participant2.RegistrationID
				key := [2]int{a, b}
				if a > b {
					key = [2]int{b, a}
				}
				if seen[key] {
					t.Errorf("n=%d: pair (%d,%d) scheduled more than once", n, a, b)
				}
				seen[key] = true
				played[a]++
				played[b]++
			}
			for id := 1; id <= n; id++ {
				if played[id] != n-1 {
					t.Errorf("n=%d: participant %d played %d matches, want %d", n, id, played[id], n-1)
				}
			}
		})
	}
}

func TestRoundRobinRejectsFewerThanTwoSeeds(t *testing.T) {
	g := NewRoundRobinGenerator()
	_, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(1),
	})
	if err == nil {
		t.Fatal("expected an error for fewer than 2 participants")
	}
}

func TestRoundRobinOddParticipantCountHasBye(t *testing.T) {
	g := NewRoundRobinGenerator()
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brs[0].ByeCount != 1 {
		t.Errorf("ByeCount = %d, want 1 for an odd participant count", brs[0].ByeCount)
	}
	if brs[0].TotalRounds != 5 {
		t.Errorf("TotalRounds = %d, want 5 (n rounds for odd n via the added bye slot)", brs[0].TotalRounds)
	}
}

func TestRoundRobinEvenParticipantCountHasNoBye(t *testing.T) {
	g := NewRoundRobinGenerator()
	brs, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{},
		Seeds:      seedList(6),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brs[0].ByeCount != 0 {
		t.Errorf("ByeCount = %d, want 0 for an even participant count", brs[0].ByeCount)
	}
	if brs[0].TotalRounds != 5 {
		t.Errorf("TotalRounds = %d, want 5 (n-1 rounds for n=6)", brs[0].TotalRounds)
	}
}
