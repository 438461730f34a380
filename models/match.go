package models

import "time"

type MatchStatus string

const (
	MatchPending               MatchStatus = "pending"
	MatchScheduled             MatchStatus = "scheduled"
	MatchCheckIn               MatchStatus = "check_in"
	MatchInProgress            MatchStatus = "in_progress"
	MatchAwaitingConfirmation  MatchStatus = "awaiting_confirmation"
	MatchCompleted             MatchStatus = "completed"
	MatchDisputed              MatchStatus = "disputed"
	MatchForfeit               MatchStatus = "forfeit"
	MatchCancelled             MatchStatus = "cancelled"
	MatchPostponed             MatchStatus = "postponed"
)

// matchTransitions is the static state-transition table behind
// IsValidMatchStatusTransition, mirroring the graph in the match lifecycle
// state machine. FORFEIT and CANCELLED are reachable from any non-terminal
// state and are special-cased rather than enumerated from every source.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchPending:              {MatchScheduled, MatchPostponed},
	MatchScheduled:            {MatchCheckIn, MatchInProgress, MatchPostponed},
	MatchCheckIn:              {MatchInProgress},
	MatchInProgress:           {MatchAwaitingConfirmation},
	MatchAwaitingConfirmation: {MatchCompleted, MatchDisputed},
	MatchDisputed:             {MatchCompleted, MatchInProgress},
	MatchPostponed:            {MatchScheduled},
	MatchCompleted:            {},
	MatchForfeit:              {},
	MatchCancelled:            {},
}

func isTerminalMatchStatus(s MatchStatus) bool {
	return s == MatchCompleted || s == MatchForfeit || s == MatchCancelled
}

func IsValidMatchStatusTransition(from, to MatchStatus) bool {
	if to == MatchForfeit || to == MatchCancelled {
		return !isTerminalMatchStatus(from)
	}
	for _, allowed := range matchTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type MatchType string

const (
	MatchTypeWinners          MatchType = "winners"
	MatchTypeLosers           MatchType = "losers"
	MatchTypeGrandFinals      MatchType = "grand_finals"
	MatchTypeGrandFinalsReset MatchType = "grand_finals_reset"
	MatchTypeSwiss            MatchType = "swiss"
	MatchTypeRoundRobin       MatchType = "round_robin"
)

// Slot is one side of a match: a lightweight snapshot of the registration
// occupying it, denormalized so the bracket renders without a join.
type Slot struct {
	RegistrationID *int    `json:"registration_id,omitempty"`
	Name           *string `json:"name,omitempty"`
	Seed           *int    `json:"seed,omitempty"`
}

func (s Slot) IsEmpty() bool {
	return s.RegistrationID == nil
}

// Match is one scheduled (or bye) contest between two slots.
type Match struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	BracketID    int       `json:"bracket_id" db:"bracket_id"`
	Round        int       `json:"round" db:"round"`
	MatchNumber  int       `json:"match_number" db:"match_number"`
	Type         MatchType `json:"type" db:"type"`
	Status       MatchStatus `json:"status" db:"status"`

	Participant1 Slot `json:"participant1" db:"-"`
	Participant2 Slot `json:"participant2" db:"-"`

	Participant1Score *int `json:"participant1_score,omitempty" db:"participant1_score"`
	Participant2Score *int `json:"participant2_score,omitempty" db:"participant2_score"`
	WinnerID          *int `json:"winner_id,omitempty" db:"winner_id"`
	LoserID           *int `json:"loser_id,omitempty" db:"loser_id"`

	Participant1Confirmed bool `json:"participant1_confirmed" db:"participant1_confirmed"`
	Participant2Confirmed bool `json:"participant2_confirmed" db:"participant2_confirmed"`

	Participant1CheckedIn   bool       `json:"participant1_checked_in" db:"participant1_checked_in"`
	Participant2CheckedIn   bool       `json:"participant2_checked_in" db:"participant2_checked_in"`
	Participant1CheckedInAt *time.Time `json:"participant1_checked_in_at,omitempty" db:"participant1_checked_in_at"`
	Participant2CheckedInAt *time.Time `json:"participant2_checked_in_at,omitempty" db:"participant2_checked_in_at"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	ServerID  *string `json:"server_id,omitempty" db:"server_id"`
	LobbyCode *string `json:"lobby_code,omitempty" db:"lobby_code"`
	StreamURL *string `json:"stream_url,omitempty" db:"stream_url"`

	NextMatchID       *int `json:"next_match_id,omitempty" db:"next_match_id"`
	LoserNextMatchID  *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`

	DisputeRaisedBy     *int       `json:"dispute_raised_by,omitempty" db:"dispute_raised_by"`
	DisputeReason       *string    `json:"dispute_reason,omitempty" db:"dispute_reason"`
	DisputeRaisedAt     *time.Time `json:"dispute_raised_at,omitempty" db:"dispute_raised_at"`

	AdminOverride       bool       `json:"admin_override" db:"admin_override"`
	AdminOverrideBy     *int       `json:"admin_override_by,omitempty" db:"admin_override_by"`
	AdminOverrideReason *string    `json:"admin_override_reason,omitempty" db:"admin_override_reason"`
	AdminOverrideAt     *time.Time `json:"admin_override_at,omitempty" db:"admin_override_at"`

	ForfeitReason *string `json:"forfeit_reason,omitempty" db:"forfeit_reason"`

	BestOf       int  `json:"best_of" db:"best_of"`
	GamesPlayed  int  `json:"games_played" db:"games_played"`
	Suspicious   bool `json:"suspicious" db:"suspicious"`

	Version int `json:"version" db:"version"`

	Metadata  Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Match) SlotFor(registrationID int) (*Slot, bool) {
	if m.Participant1.RegistrationID != nil && *m.Participant1.RegistrationID == registrationID {
		return &m.Participant1, true
	}
	if m.Participant2.RegistrationID != nil && *m.Participant2.RegistrationID == registrationID {
		return &m.Participant2, true
	}
	return nil, false
}

// OpponentOf returns the other registration id in the match, if both slots
// are populated.
func (m *Match) OpponentOf(registrationID int) (int, bool) {
	if m.Participant1.RegistrationID != nil && *m.Participant1.RegistrationID == registrationID {
		if m.Participant2.RegistrationID != nil {
			return *m.Participant2.RegistrationID, true
		}
	}
	if m.Participant2.RegistrationID != nil && *m.Participant2.RegistrationID == registrationID {
		if m.Participant1.RegistrationID != nil {
			return *m.Participant1.RegistrationID, true
		}
	}
	return 0, false
}

type MatchFilter struct {
	TournamentID *int
	BracketID    *int
	Statuses     []MatchStatus
	Round        *int
	Page         int
	Limit        int
}

// SubmitResultInput is the typed request DTO for submit-result.
type SubmitResultInput struct {
	MatchID            int
	SubmittedBy        int
	WinnerID           int
	Participant1Score  int
	Participant2Score  int
	GamesPlayed        int
}

// AdminOverrideInput is the typed request DTO for admin-override.
type AdminOverrideInput struct {
	MatchID           int
	AdminID           int
	WinnerID          int
	Participant1Score int
	Participant2Score int
	Reason            string
}
