package models

import "time"

type BracketType string

const (
	BracketWinners     BracketType = "winners"
	BracketLosers      BracketType = "losers"
	BracketGrandFinals BracketType = "grand_finals"
	BracketSwiss       BracketType = "swiss"
	BracketRoundRobin  BracketType = "round_robin"
	BracketGroups      BracketType = "groups"
)

type BracketStatus string

const (
	BracketPending    BracketStatus = "pending"
	BracketGenerated  BracketStatus = "generated"
	BracketInProgress BracketStatus = "in_progress"
	BracketCompleted  BracketStatus = "completed"
)

// VisualizationNode is one entry of the per-round visualization payload the
// generator emits for any downstream rendering layer.
type VisualizationNode struct {
	Round           int    `json:"round"`
	MatchNumber     int    `json:"match_number"`
	Participant1ID  *int   `json:"participant1_id,omitempty"`
	Participant2ID  *int   `json:"participant2_id,omitempty"`
	NextMatchNumber *int   `json:"next_match_number,omitempty"`
	IsBye           bool   `json:"is_bye"`
}

// Bracket is a directed graph of matches describing one format's schedule
// within a tournament. A tournament may own several (winners, losers,
// grand finals, groups).
type Bracket struct {
	ID               int           `json:"id" db:"id"`
	TournamentID     int           `json:"tournament_id" db:"tournament_id"`
	Type             BracketType   `json:"type" db:"type"`
	Format           Format        `json:"format" db:"format"`
	Status           BracketStatus `json:"status" db:"status"`
	TotalRounds      int           `json:"total_rounds" db:"total_rounds"`
	CurrentRound     int           `json:"current_round" db:"current_round"`
	TotalMatches     int           `json:"total_matches" db:"total_matches"`
	CompletedMatches int           `json:"completed_matches" db:"completed_matches"`
	ParticipantCount int           `json:"participant_count" db:"participant_count"`
	ByeCount         int           `json:"bye_count" db:"bye_count"`
	SeedSnapshot     []int         `json:"seed_snapshot,omitempty" db:"seed_snapshot"`
	Visualization    []VisualizationNode `json:"visualization,omitempty" db:"visualization"`

	Metadata  Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (b *Bracket) RecomputeStatus() {
	switch {
	case b.CompletedMatches <= 0:
		b.Status = BracketGenerated
	case b.CompletedMatches >= b.TotalMatches && b.TotalMatches > 0:
		b.Status = BracketCompleted
	default:
		b.Status = BracketInProgress
	}
}
