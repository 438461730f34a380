package brackets

import (
	"context"

	"github.com/Dosada05/tourney-engine/models"
)

// Seed is one entry of the ordered seed list fed into a generator: a
// registration id paired with its display name and seed rank (1-based).
type Seed struct {
	RegistrationID int
	Name           string
	Seed           int
}

// GenerateParams is the common input every generator consumes: a tournament
// (for format-specific settings like grand_finals_reset) and its ordered
// seed list.
type GenerateParams struct {
	Tournament *models.Tournament
	Seeds      []Seed
}

// GeneratedMatch is a generator's output row before persistence: a bracket
// slot assignment plus the forward edges needed to wire NextMatchID once IDs
// are known. Matches are addressed by (BracketType, Round, MatchNumber)
// until the caller assigns database ids and resolves Next/LoserNext into
// concrete ids.
type GeneratedMatch struct {
	BracketType models.BracketType
	Round       int
	MatchNumber int
	Type        models.MatchType

	Participant1 models.Slot
	Participant2 models.Slot

	IsBye    bool
	WinnerID *int

	// NextRound/NextMatchNumber and LoserNextRound/LoserNextMatchNumber
	// address the downstream match within the same bracket (or, for
	// double-elim winners matches, the losers bracket) that this match's
	// winner/loser feeds into. Zero value means terminal (e.g. the final).
	NextBracketType models.BracketType
	NextRound       int
	NextMatchNumber int
	HasNext         bool

	LoserNextBracketType models.BracketType
	LoserNextRound       int
	LoserNextMatchNumber int
	HasLoserNext         bool
}

// GeneratedBracket is one bracket's worth of generated matches plus the
// summary fields persisted on models.Bracket.
type GeneratedBracket struct {
	Type             models.BracketType
	TotalRounds      int
	ParticipantCount int
	ByeCount         int
	SeedSnapshot     []int
	Matches          []GeneratedMatch
	Visualization    []models.VisualizationNode
}

// Generator produces the match graph for one tournament format. A format may
// emit more than one bracket (double elimination emits winners, losers, and
// grand finals).
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]GeneratedBracket, error)
	Name() string
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size *= 2
	}
	return size
}

// log2 returns log2(n) for a power-of-two n.
func log2(n int) int {
	rounds := 0
	for n > 1 {
		n /= 2
		rounds++
	}
	return rounds
}

// standardSlotOrder builds the recursive placement that gives standard
// tournament seeding: order(1) = [0]; order(2n)[2i] = order(n)[i] and
// order(2n)[2i+1] = 2n-1-order(n)[i]. The result is a permutation of
// 0..size-1 mapping bracket position -> zero-based seed rank, guaranteeing
// seed 1 meets seed 2 only in the final, seed 1 vs seed 4 in the semifinal,
// and so on at every depth.
func standardSlotOrder(size int) []int {
	if size == 1 {
		return []int{0}
	}
	half := standardSlotOrder(size / 2)
	order := make([]int, size)
	for i, v := range half {
		order[2*i] = v
		order[2*i+1] = size - 1 - v
	}
	return order
}
