package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/tourney-engine/models"
)

// RoundRobinGenerator pairs every participant against every other exactly
// once via the circle method: fix seed 0, rotate the remaining positions
// clockwise each round.
type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "round_robin"
}

func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]GeneratedBracket, error) {
	seeds := params.Seeds
	n := len(seeds)
	if n < 2 {
		return nil, fmt.Errorf("round robin requires at least 2 participants, got %d", n)
	}

	circle := make([]*Seed, n)
	for i := range seeds {
		s := seeds[i]
		circle[i] = &s
	}
	hasBye := n%2 != 0
	if hasBye {
		circle = append(circle, nil)
	}
	size := len(circle)
	totalRounds := size - 1

	snapshot := make([]int, n)
	for i, s := range seeds {
		snapshot[i] = s.RegistrationID
	}

	matches := make([]GeneratedMatch, 0, n*(n-1)/2)
	matchNumber := 0
	for round := 1; round <= totalRounds; round++ {
		for i := 0; i < size/2; i++ {
			left := circle[i]
			right := circle[size-1-i]
			if left == nil || right == nil {
				// the BYE participant's pairing this round is not a real match
				continue
			}
			matchNumber++
			matches = append(matches, GeneratedMatch{
				BracketType:  models.BracketRoundRobin,
				Round:        round,
				MatchNumber:  matchNumber,
				Type:         models.MatchTypeRoundRobin,
				Participant1: toSlot(left),
				Participant2: toSlot(right),
			})
		}
		circle = rotateCircle(circle)
	}

	return []GeneratedBracket{{
		Type:             models.BracketRoundRobin,
		TotalRounds:      totalRounds,
		ParticipantCount: n,
		ByeCount:         boolToInt(hasBye),
		SeedSnapshot:     snapshot,
		Matches:          matches,
		Visualization:    visualize(matches),
	}}, nil
}

// rotateCircle keeps position 0 fixed and rotates positions 1..len-1 one
// step clockwise, the standard circle-method pairing update.
func rotateCircle(circle []*Seed) []*Seed {
	n := len(circle)
	if n < 3 {
		return circle
	}
	rotated := make([]*Seed, n)
	rotated[0] = circle[0]
	rotated[1] = circle[n-1]
	copy(rotated[2:], circle[1:n-1])
	return rotated
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
