package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/tourney-engine/models"
)

// DoubleEliminationGenerator builds a winners bracket, a losers bracket fed
// by winners-round losers, and a one- or two-match grand finals.
//
// The losers bracket alternates "drop" rounds, where winners-bracket losers
// either pair off among themselves (round 1) or are merged one-to-one with
// the survivors of the previous losers round, and "consolidation" rounds,
// where a merge round's survivors (when more than one) pair off once,
// halving the pool before the next winners round's losers arrive.
type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "double_elimination"
}

func (g *DoubleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]GeneratedBracket, error) {
	seeds := params.Seeds
	n := len(seeds)
	if n < 2 {
		return nil, fmt.Errorf("double elimination requires at least 2 participants, got %d", n)
	}

	winnersRounds, totalWRounds, byeCount, snapshot, err := buildWinnersRoundsPtr(seeds)
	if err != nil {
		return nil, err
	}

	losersRounds := buildLosersRounds(winnersRounds)

	winnersFinal := winnersRounds[len(winnersRounds)-1][0]
	var losersFinal *GeneratedMatch
	if len(losersRounds) > 0 {
		last := losersRounds[len(losersRounds)-1]
		losersFinal = last[0]
	}

	grandFinals := buildGrandFinals(winnersFinal, losersFinal, params.Tournament.GrandFinalsReset)

	allWinners := flatten(winnersRounds)
	allLosers := flatten(losersRounds)

	winnersBracket := GeneratedBracket{
		Type:             models.BracketWinners,
		TotalRounds:      totalWRounds,
		ParticipantCount: n,
		ByeCount:         byeCount,
		SeedSnapshot:     snapshot,
		Matches:          derefAll(allWinners),
		Visualization:    visualize(derefAll(allWinners)),
	}
	losersBracket := GeneratedBracket{
		Type:         models.BracketLosers,
		TotalRounds:  len(losersRounds),
		Matches:      derefAll(allLosers),
		Visualization: visualize(derefAll(allLosers)),
	}
	grandFinalsBracket := GeneratedBracket{
		Type:          models.BracketGrandFinals,
		TotalRounds:   len(grandFinals),
		Matches:       derefAll(grandFinals),
		Visualization: visualize(derefAll(grandFinals)),
	}

	return []GeneratedBracket{winnersBracket, losersBracket, grandFinalsBracket}, nil
}

// buildWinnersRoundsPtr mirrors buildSingleEliminationRound1 but keeps
// matches addressable by pointer, round by round, so the losers bracket
// builder can attach LoserNext* edges once the losers-bracket layout is
// known.
func buildWinnersRoundsPtr(seeds []Seed) ([][]*GeneratedMatch, int, int, []int, error) {
	flat, rounds, byeCount, snapshot, err := buildSingleEliminationRound1(seeds)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	byRound := make(map[int][]*GeneratedMatch)
	for i := range flat {
		m := flat[i]
		byRound[m.Round] = append(byRound[m.Round], &m)
	}
	out := make([][]*GeneratedMatch, rounds)
	for r := 1; r <= rounds; r++ {
		out[r-1] = byRound[r]
	}
	return out, rounds, byeCount, snapshot, nil
}

// buildLosersRounds walks the winners bracket rounds in order, producing the
// alternating drop/consolidation structure described on
// DoubleEliminationGenerator.
//
// The first winners round's losers only ever pair off among themselves
// (there is no losers-bracket survivor pool yet to merge against), and that
// pairing already lands on the exact count the second winners round's
// losers need to merge one-to-one against. Every later winners round's
// losers merge one-to-one with the FULL surviving pool from the previous
// losers round before any consolidation happens — consolidating early
// shrinks that pool and strands a later merge round with nowhere to send
// one of its incoming losers. Once merged, survivors play one consolidation
// round that halves the pool, so the next (half-sized) winners round's
// losers again have an exactly-sized pool to merge against.
func buildLosersRounds(winnersRounds [][]*GeneratedMatch) [][]*GeneratedMatch {
	var losersRounds [][]*GeneratedMatch
	var survivors []*GeneratedMatch

	for wRoundIdx, wRound := range winnersRounds {
		// the winners final's loser feeds the losers final below; every
		// winners round (including the last) contributes losers here.
		losers := nonByeMatches(wRound)
		if len(losers) == 0 {
			continue
		}

		var current []*GeneratedMatch
		if wRoundIdx == 0 {
			current = pairOff(losers, len(losersRounds)+1)
			for i, m := range losers {
				m.HasLoserNext = true
				m.LoserNextBracketType = models.BracketLosers
				m.LoserNextRound = len(losersRounds) + 1
				m.LoserNextMatchNumber = i/2 + 1
			}
		} else {
			current = mergeOneToOne(losers, survivors, len(losersRounds)+1)
			for i, m := range losers {
				m.HasLoserNext = true
				m.LoserNextBracketType = models.BracketLosers
				m.LoserNextRound = len(losersRounds) + 1
				m.LoserNextMatchNumber = i + 1
			}
			for i, m := range survivors {
				m.HasNext = true
				m.NextBracketType = models.BracketLosers
				m.NextRound = len(losersRounds) + 1
				if i < len(current) {
					m.NextMatchNumber = i + 1
				}
			}
		}
		losersRounds = append(losersRounds, current)
		survivors = current

		// A merge round's survivor count matches the losers it just
		// absorbed, which is twice the size the next winners round's
		// losers will be. Consolidate once to get back in step. The
		// round-1 pure pairing skips this: it already produced the
		// halved count the next round's losers need.
		if wRoundIdx > 0 && len(survivors) > 1 {
			consolidation := pairOff(survivors, len(losersRounds)+1)
			for i, m := range survivors {
				m.HasNext = true
				m.NextBracketType = models.BracketLosers
				m.NextRound = len(losersRounds) + 1
				m.NextMatchNumber = i/2 + 1
			}
			losersRounds = append(losersRounds, consolidation)
			survivors = consolidation
		}
	}
	return losersRounds
}

func nonByeMatches(round []*GeneratedMatch) []*GeneratedMatch {
	out := make([]*GeneratedMatch, 0, len(round))
	for _, m := range round {
		if !m.IsBye {
			out = append(out, m)
		}
	}
	return out
}

// pairOff pairs consecutive sources into new losers-bracket matches
// (sources meet each other; used for the first drop round and every
// consolidation round).
func pairOff(sources []*GeneratedMatch, round int) []*GeneratedMatch {
	out := make([]*GeneratedMatch, 0, len(sources)/2+1)
	for i := 0; i < len(sources); i += 2 {
		m := &GeneratedMatch{
			BracketType: models.BracketLosers,
			Round:       round,
			MatchNumber: len(out) + 1,
			Type:        models.MatchTypeLosers,
		}
		out = append(out, m)
	}
	return out
}

// mergeOneToOne pairs a new batch of winners-round losers against the
// survivors of the previous losers round, one per match.
func mergeOneToOne(losers []*GeneratedMatch, prevSurvivors []*GeneratedMatch, round int) []*GeneratedMatch {
	size := len(losers)
	if len(prevSurvivors) < size {
		size = len(prevSurvivors)
	}
	out := make([]*GeneratedMatch, 0, size)
	for i := 0; i < size; i++ {
		m := &GeneratedMatch{
			BracketType: models.BracketLosers,
			Round:       round,
			MatchNumber: i + 1,
			Type:        models.MatchTypeLosers,
		}
		out = append(out, m)
	}
	return out
}

// buildGrandFinals links the winners-bracket and losers-bracket champions
// into a single grand-finals match, plus a reset match when configured.
func buildGrandFinals(winnersFinal, losersFinal *GeneratedMatch, reset bool) []*GeneratedMatch {
	gf := &GeneratedMatch{
		BracketType: models.BracketGrandFinals,
		Round:       1,
		MatchNumber: 1,
		Type:        models.MatchTypeGrandFinals,
	}
	winnersFinal.HasNext = true
	winnersFinal.NextBracketType = models.BracketGrandFinals
	winnersFinal.NextRound = 1
	winnersFinal.NextMatchNumber = 1
	if losersFinal != nil {
		losersFinal.HasNext = true
		losersFinal.NextBracketType = models.BracketGrandFinals
		losersFinal.NextRound = 1
		losersFinal.NextMatchNumber = 1
	}

	matches := []*GeneratedMatch{gf}
	if reset {
		resetMatch := &GeneratedMatch{
			BracketType: models.BracketGrandFinals,
			Round:       2,
			MatchNumber: 1,
			Type:        models.MatchTypeGrandFinalsReset,
		}
		gf.HasNext = true
		gf.NextBracketType = models.BracketGrandFinals
		gf.NextRound = 2
		gf.NextMatchNumber = 1
		matches = append(matches, resetMatch)
	}
	return matches
}

func flatten(rounds [][]*GeneratedMatch) []*GeneratedMatch {
	out := make([]*GeneratedMatch, 0)
	for _, r := range rounds {
		out = append(out, r...)
	}
	return out
}

func derefAll(ptrs []*GeneratedMatch) []GeneratedMatch {
	out := make([]GeneratedMatch, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
