package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/tourney-engine/models"
)

// SingleEliminationGenerator builds one winners bracket: bracket size is the
// next power of two above the seed count, round 1 pairs adjacent standard
// seeding slots, and every subsequent round halves the match count. Byes are
// resolved eagerly at generation time.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "single_elimination"
}

func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]GeneratedBracket, error) {
	matches, rounds, byeCount, snapshot, err := buildSingleEliminationRound1(params.Seeds)
	if err != nil {
		return nil, err
	}
	viz := visualize(matches)
	return []GeneratedBracket{{
		Type:             models.BracketWinners,
		TotalRounds:      rounds,
		ParticipantCount: len(params.Seeds),
		ByeCount:         byeCount,
		SeedSnapshot:     snapshot,
		Matches:          matches,
		Visualization:    viz,
	}}, nil
}

// buildSingleEliminationRound1 lays out one complete winners bracket
// (round 1 through the final) for the given seed list, resolving byes and
// wiring NextMatchNumber as it goes. Shared by single and double elimination,
// since a double-elim winners bracket is structurally identical to a single
// elimination one.
func buildSingleEliminationRound1(seeds []Seed) ([]GeneratedMatch, int, int, []int, error) {
	n := len(seeds)
	if n < 2 {
		return nil, 0, 0, nil, fmt.Errorf("single elimination requires at least 2 participants, got %d", n)
	}

	size := nextPowerOfTwo(n)
	rounds := log2(size)
	byeCount := size - n
	order := standardSlotOrder(size)

	snapshot := make([]int, n)
	for i, s := range seeds {
		snapshot[i] = s.RegistrationID
	}

	// slot[p] holds the seed occupying bracket position p, or nil for a bye.
	slots := make([]*Seed, size)
	for pos, seedIdx := range order {
		if seedIdx < n {
			s := seeds[seedIdx]
			slots[pos] = &s
		}
	}

	matches := make([]GeneratedMatch, 0, size-1)

	round1Count := size / 2
	round1 := make([]GeneratedMatch, round1Count)
	for i := 0; i < round1Count; i++ {
		left := slots[2*i]
		right := slots[2*i+1]
		m := GeneratedMatch{
			BracketType: models.BracketWinners,
			Round:       1,
			MatchNumber: i + 1,
			Type:        models.MatchTypeWinners,
		}
		if left != nil {
			m.Participant1 = toSlot(left)
		}
		if right != nil {
			m.Participant2 = toSlot(right)
		}
		resolveBye(&m)
		round1[i] = m
	}
	matches = append(matches, round1...)

	prevRound := round1
	for r := 2; r <= rounds; r++ {
		count := len(prevRound) / 2
		thisRound := make([]GeneratedMatch, count)
		for i := 0; i < count; i++ {
			thisRound[i] = GeneratedMatch{
				BracketType: models.BracketWinners,
				Round:       r,
				MatchNumber: i + 1,
				Type:        models.MatchTypeWinners,
			}
		}
		for i := range prevRound {
			prevRound[i].HasNext = true
			prevRound[i].NextBracketType = models.BracketWinners
			prevRound[i].NextRound = r
			prevRound[i].NextMatchNumber = i/2 + 1
		}
		// Propagate byes through the newly linked round immediately: if a
		// round-1 (or later) match already produced a winner via bye, feed
		// it straight into the round it points to before moving on.
		propagateByeWinners(prevRound, thisRound)
		matches = append(matches, thisRound...)
		prevRound = thisRound
	}

	return matches, rounds, byeCount, snapshot, nil
}

func toSlot(s *Seed) models.Slot {
	id := s.RegistrationID
	name := s.Name
	seed := s.Seed
	return models.Slot{RegistrationID: &id, Name: &name, Seed: &seed}
}

// resolveBye completes a match at generation time when exactly one slot is
// populated: score becomes 1-0 and the lone participant is the winner.
func resolveBye(m *GeneratedMatch) {
	p1Empty := m.Participant1.IsEmpty()
	p2Empty := m.Participant2.IsEmpty()
	if p1Empty == p2Empty {
		return
	}
	m.IsBye = true
	if !p1Empty {
		m.WinnerID = m.Participant1.RegistrationID
	} else {
		m.WinnerID = m.Participant2.RegistrationID
	}
}

// propagateByeWinners forwards any bye winner already resolved in the
// current round directly into its linked slot in the next round. The
// next-round match is not itself resolved: it waits for its other slot to
// be filled by play. With a bracket size of nextPowerOfTwo(n), every
// round-1 match holds at least one participant, so byes never chain.
func propagateByeWinners(current []GeneratedMatch, next []GeneratedMatch) {
	for i := range current {
		if current[i].WinnerID == nil {
			continue
		}
		target := &next[i/2]
		winner := *current[i].WinnerID
		seed := current[i].Participant1.Seed
		if current[i].Participant1.RegistrationID == nil || *current[i].Participant1.RegistrationID != winner {
			seed = current[i].Participant2.Seed
		}
		name := current[i].Participant1.Name
		if current[i].Participant1.RegistrationID == nil || *current[i].Participant1.RegistrationID != winner {
			name = current[i].Participant2.Name
		}
		filled := models.Slot{RegistrationID: &winner, Name: name, Seed: seed}
		if i%2 == 0 {
			target.Participant1 = filled
		} else {
			target.Participant2 = filled
		}
	}
}

// visualize converts a flat match list into the per-round rendering payload
// persisted on the bracket.
func visualize(matches []GeneratedMatch) []models.VisualizationNode {
	nodes := make([]models.VisualizationNode, 0, len(matches))
	for _, m := range matches {
		node := models.VisualizationNode{
			Round:          m.Round,
			MatchNumber:    m.MatchNumber,
			Participant1ID: m.Participant1.RegistrationID,
			Participant2ID: m.Participant2.RegistrationID,
			IsBye:          m.IsBye,
		}
		if m.HasNext {
			next := m.NextMatchNumber
			node.NextMatchNumber = &next
		}
		nodes = append(nodes, node)
	}
	return nodes
}
