package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP status codes at
// the handler layer.
var (
	ErrNotFound             = errors.New("requested resource not found")
	ErrValidationFailed     = errors.New("validation failed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Tournament
	ErrTournamentNotFound                 = errors.New("tournament not found")
	ErrTournamentNameConflict             = errors.New("tournament name already exists for this organizer")
	ErrTournamentNotOrganizer             = errors.New("only the tournament organizer can perform this action")
	ErrTournamentDatesRequired             = errors.New("tournament start and end dates are required")
	ErrTournamentInvalidRegDate            = errors.New("tournament registration end date must not be after start date")
	ErrTournamentInvalidDateRange          = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity           = errors.New("tournament max participants must be positive and >= min participants")
	ErrTournamentInvalidStatus             = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition   = errors.New("invalid tournament status transition")
	ErrTournamentScheduleInvalid           = errors.New("tournament schedule is not monotonically increasing")
	ErrTournamentFormatLocked              = errors.New("tournament format cannot change once registration has opened")
	ErrTournamentPrizeDistributionInvalid  = errors.New("prize distribution percentages must sum to 100")

	// Registration
	ErrRegistrationNotFound                = errors.New("registration not found")
	ErrRegistrationNotOpen                 = errors.New("tournament registration is not open")
	ErrTournamentFull                      = errors.New("tournament registration is full")
	ErrRegistrationConflict                = errors.New("user is already registered for this tournament")
	ErrRegistrationTeamConflict             = errors.New("team is already registered for this tournament")
	ErrRegistrationInvalidStatusTransition  = errors.New("invalid registration status transition")
	ErrTeamSizeMismatch                    = errors.New("team roster does not match the tournament's required team size")
	ErrMMRRangeViolation                   = errors.New("participant MMR is outside the tournament's allowed range")
	ErrRegionNotAllowed                    = errors.New("participant region is not in the tournament's allowed regions")
	ErrIdentityRequired                    = errors.New("tournament requires identity verification before registration")
	ErrCheckInWindowClosed                 = errors.New("check-in window is not currently open")
	ErrWaitlistEmpty                       = errors.New("no waitlisted registrations to promote")
	ErrSubstituteSameTeam                  = errors.New("substitute must belong to the same team as the registration being replaced")

	// Bracket
	ErrBracketNotFound          = errors.New("bracket not found")
	ErrBracketAlreadyGenerated  = errors.New("bracket has already been generated for this tournament")
	ErrBracketNotGenerated      = errors.New("bracket has not been generated yet")
	ErrInsufficientParticipants = errors.New("not enough confirmed participants to generate a bracket")
	ErrUnsupportedFormat        = errors.New("tournament format is not supported by the bracket generator")
	ErrBracketResetNotAllowed   = errors.New("bracket can only be reset before any match has completed")

	// Match
	ErrMatchNotFound                = errors.New("match not found")
	ErrMatchInvalidStatusTransition = errors.New("invalid match status transition")
	ErrMatchVersionStale            = errors.New("match was modified concurrently, retry with the latest version")
	ErrMatchMissingParticipant      = errors.New("match is missing a participant and cannot be scored")
	ErrMatchScoreInvalid            = errors.New("match score does not determine a winner")
	ErrMatchNotParticipant          = errors.New("actor is not a participant in this match")
	ErrMatchAlreadyConfirmed        = errors.New("match result has already been confirmed by this participant")
	ErrMatchDisputeAlreadyOpen      = errors.New("match already has an open dispute")
	ErrMatchNoDisputeOpen           = errors.New("match has no open dispute to resolve")

	// Standings
	ErrStandingNotFound = errors.New("standing not found")

	// Prize
	ErrPrizeNotFound               = errors.New("prize not found")
	ErrPrizeInvalidStatusTransition = errors.New("invalid prize status transition")
	ErrPrizeRetryLimitExceeded     = errors.New("prize has exceeded its maximum retry count")
	ErrPrizeRecipientWalletMissing = errors.New("prize recipient has no wallet on file")
	ErrPrizeRecipientUnverified    = errors.New("prize recipient has not completed identity verification")
	ErrPrizePoolNotConfigured      = errors.New("tournament has no prize pool configured")
)
