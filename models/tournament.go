package models

import "time"

// TournamentStatus is the tournament lifecycle state.
type TournamentStatus string

const (
	TournamentDraft              TournamentStatus = "draft"
	TournamentRegistrationOpen   TournamentStatus = "registration_open"
	TournamentRegistrationClosed TournamentStatus = "registration_closed"
	TournamentCheckIn            TournamentStatus = "check_in"
	TournamentInProgress         TournamentStatus = "in_progress"
	TournamentCompleted          TournamentStatus = "completed"
	TournamentCancelled          TournamentStatus = "cancelled"
)

// tournamentTransitions is the static legal-transition table behind
// IsValidTournamentStatusTransition. Any non-terminal status may also jump
// straight to Cancelled.
var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	TournamentDraft:              {TournamentRegistrationOpen, TournamentCancelled},
	TournamentRegistrationOpen:   {TournamentRegistrationClosed, TournamentCancelled},
	TournamentRegistrationClosed: {TournamentCheckIn, TournamentCancelled},
	TournamentCheckIn:            {TournamentInProgress, TournamentCancelled},
	TournamentInProgress:         {TournamentCompleted, TournamentCancelled},
	TournamentCompleted:          {},
	TournamentCancelled:          {},
}

func IsValidTournamentStatusTransition(from, to TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s TournamentStatus) IsTerminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// Format is the bracket generation strategy a tournament is bound to.
type Format string

const (
	FormatSingleElim Format = "single_elim"
	FormatDoubleElim Format = "double_elim"
	FormatSwiss      Format = "swiss"
	FormatRoundRobin Format = "round_robin"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

type RegistrationType string

const (
	RegistrationOpenType RegistrationType = "open"
	RegistrationInvite   RegistrationType = "invite_only"
)

// PrizeDistribution maps a placement to the percentage of the pool it earns.
type PrizeDistribution map[int]float64

func (d PrizeDistribution) Sum() float64 {
	total := 0.0
	for _, pct := range d {
		total += pct
	}
	return total
}

// Tournament is the root aggregate: it owns registrations, brackets,
// matches, standings, and prizes for one competitive event.
type Tournament struct {
	ID               int               `json:"id" db:"id"`
	Name             string            `json:"name" db:"name"`
	Description      *string           `json:"description,omitempty" db:"description"`
	GameID           string            `json:"game_id" db:"game_id"`
	Format           Format            `json:"format" db:"format"`
	Status           TournamentStatus  `json:"status" db:"status"`
	Visibility       Visibility        `json:"visibility" db:"visibility"`
	RegistrationType RegistrationType  `json:"registration_type" db:"registration_type"`
	OrganizerID      int               `json:"organizer_id" db:"organizer_id"`
	TeamSize         int               `json:"team_size" db:"team_size"`
	MinParticipants  int               `json:"min_participants" db:"min_participants"`
	MaxParticipants  int               `json:"max_participants" db:"max_participants"`
	MinMMR           *int              `json:"min_mmr,omitempty" db:"min_mmr"`
	MaxMMR           *int              `json:"max_mmr,omitempty" db:"max_mmr"`
	AllowedRegions   []string          `json:"allowed_regions,omitempty" db:"allowed_regions"`
	IdentityRequired bool              `json:"identity_required" db:"identity_required"`
	PrizePoolAmount  float64           `json:"prize_pool_amount" db:"prize_pool_amount"`
	PrizeCurrency    string            `json:"prize_currency" db:"prize_currency"`
	PrizeDistribution PrizeDistribution `json:"prize_distribution,omitempty" db:"prize_distribution"`
	EntryFee         float64           `json:"entry_fee" db:"entry_fee"`

	RegistrationStart time.Time `json:"registration_start" db:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end" db:"registration_end"`
	CheckInStart      time.Time `json:"check_in_start" db:"check_in_start"`
	CheckInEnd        time.Time `json:"check_in_end" db:"check_in_end"`
	StartDate         time.Time `json:"start_date" db:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty" db:"end_date"`

	MatchIntervalMinutes int    `json:"match_interval_minutes" db:"match_interval_minutes"`
	SwissRounds          int    `json:"swiss_rounds" db:"swiss_rounds"`
	GrandFinalsReset     bool   `json:"grand_finals_reset" db:"grand_finals_reset"`
	TemplateID           *int   `json:"template_id,omitempty" db:"template_id"`
	Rules                *string `json:"rules,omitempty" db:"rules"`
	StreamURL            *string `json:"stream_url,omitempty" db:"stream_url"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	Metadata  Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TournamentFilter is the typed request DTO for the Tournament `list`
// operation.
type TournamentFilter struct {
	GameID     *string
	Statuses   []TournamentStatus
	Visibility *Visibility
	OrganizerID *int
	Format     *Format
	Search     *string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}
