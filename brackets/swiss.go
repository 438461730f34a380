package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/tourney-engine/models"
)

// SwissStanding is the pairing-relevant slice of a participant's record
// going into a later round: enough to group by score and break ties the
// same way the standings engine orders the leaderboard.
type SwissStanding struct {
	RegistrationID int
	Name           string
	Seed           int
	Points         int
	Buchholz       float64
	HadBye         bool
}

// SwissPairer produces one round of Swiss pairings at a time: round 1 pairs
// by seed, later rounds pair within score groups while avoiding rematches.
type SwissPairer struct{}

func NewSwissPairer() *SwissPairer {
	return &SwissPairer{}
}

func (g *SwissPairer) Name() string {
	return "swiss"
}

// PairRoundOne pairs (1 vs 2, 3 vs 4, ...) by seed. An odd participant count
// gives the lowest-ranked entrant a bye.
func (g *SwissPairer) PairRoundOne(seeds []Seed) ([]GeneratedMatch, error) {
	n := len(seeds)
	if n < 2 {
		return nil, fmt.Errorf("swiss pairing requires at least 2 participants, got %d", n)
	}
	ordered := make([]Seed, n)
	copy(ordered, seeds)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seed < ordered[j].Seed })

	matches := make([]GeneratedMatch, 0, n/2+1)
	matchNumber := 0
	i := 0
	for ; i+1 < n; i += 2 {
		matchNumber++
		a, b := ordered[i], ordered[i+1]
		matches = append(matches, GeneratedMatch{
			BracketType:  models.BracketSwiss,
			Round:        1,
			MatchNumber:  matchNumber,
			Type:         models.MatchTypeSwiss,
			Participant1: toSlot(&a),
			Participant2: toSlot(&b),
		})
	}
	if i < n {
		matchNumber++
		lowest := ordered[i]
		m := GeneratedMatch{
			BracketType:  models.BracketSwiss,
			Round:        1,
			MatchNumber:  matchNumber,
			Type:         models.MatchTypeSwiss,
			Participant1: toSlot(&lowest),
			IsBye:        true,
		}
		id := lowest.RegistrationID
		m.WinnerID = &id
		matches = append(matches, m)
	}
	return matches, nil
}

// PairNextRound groups standings into score groups (ordered by points desc,
// then buchholz desc, matching the leaderboard ordering), then greedily
// pairs within each group, avoiding rematches recorded in priorOpponents.
// A participant with no valid in-group partner floats down to the next
// lower group. priorOpponents maps a registration id to the set of
// registration ids it has already played. byeHistory marks who has already
// received a bye this event; a leftover without a prior bye is preferred for
// the bye.
func (g *SwissPairer) PairNextRound(round int, standings []SwissStanding, priorOpponents map[int]map[int]bool, byeHistory map[int]bool) ([]GeneratedMatch, error) {
	if len(standings) < 2 {
		return nil, fmt.Errorf("swiss pairing requires at least 2 participants, got %d", len(standings))
	}

	ordered := make([]SwissStanding, len(standings))
	copy(ordered, standings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		if ordered[i].Buchholz != ordered[j].Buchholz {
			return ordered[i].Buchholz > ordered[j].Buchholz
		}
		return ordered[i].Seed < ordered[j].Seed
	})

	var groups [][]SwissStanding
	for i := 0; i < len(ordered); {
		j := i + 1
		for j < len(ordered) && ordered[j].Points == ordered[i].Points {
			j++
		}
		groups = append(groups, ordered[i:j])
		i = j
	}

	paired := make(map[int]bool)
	var pairs [][2]SwissStanding
	var floatQueue []SwissStanding

	hasPlayed := func(a, b int) bool {
		if opponents, ok := priorOpponents[a]; ok {
			return opponents[b]
		}
		return false
	}

	for gi := range groups {
		pool := append(floatQueue, groups[gi]...)
		floatQueue = nil
		for idx := 0; idx < len(pool); idx++ {
			a := pool[idx]
			if paired[a.RegistrationID] {
				continue
			}
			partnerIdx := -1
			for k := idx + 1; k < len(pool); k++ {
				b := pool[k]
				if paired[b.RegistrationID] {
					continue
				}
				if !hasPlayed(a.RegistrationID, b.RegistrationID) {
					partnerIdx = k
					break
				}
			}
			if partnerIdx == -1 {
				if gi == len(groups)-1 {
					// bottom group, no rematch-free partner anywhere left:
					// there is no lower group to float into, so pair anyway
					// against the next unpaired opponent (forced rematch
					// concession). Only when no unpaired opponent remains
					// does this participant float to the bye below.
					for k := idx + 1; k < len(pool); k++ {
						b := pool[k]
						if !paired[b.RegistrationID] {
							partnerIdx = k
							break
						}
					}
				}
			}
			if partnerIdx == -1 {
				floatQueue = append(floatQueue, a)
				continue
			}
			b := pool[partnerIdx]
			paired[a.RegistrationID] = true
			paired[b.RegistrationID] = true
			pairs = append(pairs, [2]SwissStanding{a, b})
		}
	}

	// The first participant left unpaired (typically the bottom group's odd
	// one out) who has not yet had a bye takes the bye. When every leftover
	// has already had one, the first leftover receives a second bye; the
	// one-bye-per-event limit is not enforced in that case.
	var byeCandidate *SwissStanding
	for _, s := range floatQueue {
		if !byeHistory[s.RegistrationID] {
			sc := s
			byeCandidate = &sc
			break
		}
	}
	if byeCandidate == nil && len(floatQueue) > 0 {
		sc := floatQueue[0]
		byeCandidate = &sc
	}

	matches := make([]GeneratedMatch, 0, len(pairs)+1)
	matchNumber := 0
	for _, p := range pairs {
		matchNumber++
		matches = append(matches, GeneratedMatch{
			BracketType:  models.BracketSwiss,
			Round:        round,
			MatchNumber:  matchNumber,
			Type:         models.MatchTypeSwiss,
			Participant1: toSlot(&Seed{RegistrationID: p[0].RegistrationID, Name: p[0].Name, Seed: p[0].Seed}),
			Participant2: toSlot(&Seed{RegistrationID: p[1].RegistrationID, Name: p[1].Name, Seed: p[1].Seed}),
		})
	}
	if byeCandidate != nil {
		matchNumber++
		id := byeCandidate.RegistrationID
		matches = append(matches, GeneratedMatch{
			BracketType:  models.BracketSwiss,
			Round:        round,
			MatchNumber:  matchNumber,
			Type:         models.MatchTypeSwiss,
			Participant1: toSlot(&Seed{RegistrationID: byeCandidate.RegistrationID, Name: byeCandidate.Name, Seed: byeCandidate.Seed}),
			IsBye:        true,
			WinnerID:     &id,
		})
	}
	return matches, nil
}
