package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/db"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
	"github.com/Dosada05/tourney-engine/storage"
)

const tournamentAutoStatusLockID = db.SchedulerAdvisoryLockID

// CreateTournamentInput is the typed request DTO for create.
type CreateTournamentInput struct {
	Name                 string
	Description          *string
	GameID               string
	Format               models.Format
	Visibility           models.Visibility
	RegistrationType     models.RegistrationType
	OrganizerID          int
	TeamSize             int
	MinParticipants      int
	MaxParticipants      int
	MinMMR               *int
	MaxMMR               *int
	AllowedRegions       []string
	IdentityRequired     bool
	EntryFee             float64
	RegistrationStart    time.Time
	RegistrationEnd      time.Time
	CheckInStart         time.Time
	CheckInEnd           time.Time
	StartDate            time.Time
	EndDate              *time.Time
	MatchIntervalMinutes int
	SwissRounds          int
	GrandFinalsReset     bool
	Rules                *string
}

// UpdateTournamentDetailsInput carries the mutable subset of Tournament for
// update/set-schedule/set-rules/configure-registration/set-entry-requirements.
type UpdateTournamentDetailsInput struct {
	Name                 *string
	Description          *string
	TeamSize             *int
	MinParticipants      *int
	MaxParticipants      *int
	MinMMR               *int
	MaxMMR               *int
	AllowedRegions       []string
	IdentityRequired     *bool
	RegistrationType     *models.RegistrationType
	EntryFee             *float64
	RegistrationStart    *time.Time
	RegistrationEnd      *time.Time
	CheckInStart         *time.Time
	CheckInEnd           *time.Time
	StartDate            *time.Time
	EndDate              *time.Time
	MatchIntervalMinutes *int
	SwissRounds          *int
	GrandFinalsReset     *bool
	Rules                *string
	StreamURL            *string
	Visibility           *models.Visibility
}

// ConfigurePrizePoolInput is the typed request DTO for configure-prize-pool.
type ConfigurePrizePoolInput struct {
	Amount       float64
	Currency     string
	Distribution models.PrizeDistribution
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter models.TournamentFilter) (*models.Page[models.Tournament], error)
	UpdateTournamentDetails(ctx context.Context, id int, actorID int, input UpdateTournamentDetailsInput) (*models.Tournament, error)
	SetFormat(ctx context.Context, id int, actorID int, format models.Format) (*models.Tournament, error)
	ConfigurePrizePool(ctx context.Context, id int, actorID int, input ConfigurePrizePoolInput) (*models.Tournament, error)
	SetVisibility(ctx context.Context, id int, actorID int, visibility models.Visibility) (*models.Tournament, error)
	ConfigureStreaming(ctx context.Context, id int, actorID int, streamURL *string) (*models.Tournament, error)
	CloneTournament(ctx context.Context, id int, actorID int, newName string) (*models.Tournament, error)
	OpenRegistration(ctx context.Context, id int, actorID int) (*models.Tournament, error)
	CloseRegistration(ctx context.Context, id int, actorID int) (*models.Tournament, error)
	StartCheckIn(ctx context.Context, id int, actorID int) (*models.Tournament, error)
	StartTournament(ctx context.Context, id int, actorID int) (*models.Tournament, error)
	CompleteTournament(ctx context.Context, id int, actorID int) (*models.Tournament, error)
	CancelTournament(ctx context.Context, id int, actorID int, reason string) (*models.Tournament, error)
	UploadTournamentLogo(ctx context.Context, id int, actorID int, contentType string, content io.Reader) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int, actorID int) error
	AutoUpdateTournamentStatusesByDates(ctx context.Context, now time.Time) (int, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	sqlDB *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             sqlDB,
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func roomIDForTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (s *tournamentService) broadcastStatusChange(t *models.Tournament) {
	if s.hub == nil || t == nil {
		return
	}
	roomID := roomIDForTournament(t.ID)
	s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{
		Type:    "TOURNAMENT_STATUS_CHANGED",
		Payload: map[string]interface{}{"tournament_id": t.ID, "status": t.Status},
		RoomID:  roomID,
	})
}

func (s *tournamentService) resolveLogoURL(t *models.Tournament) {
	if t != nil && t.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		if url != "" {
			t.LogoURL = &url
		}
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if err := validateTournamentDates(input.RegistrationEnd, input.StartDate, endOrStart(input.EndDate, input.StartDate)); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:                 input.Name,
		Description:          input.Description,
		GameID:               input.GameID,
		Format:               input.Format,
		Status:               models.TournamentDraft,
		Visibility:           input.Visibility,
		RegistrationType:     input.RegistrationType,
		OrganizerID:          input.OrganizerID,
		TeamSize:             input.TeamSize,
		MinParticipants:      input.MinParticipants,
		MaxParticipants:      input.MaxParticipants,
		MinMMR:               input.MinMMR,
		MaxMMR:               input.MaxMMR,
		AllowedRegions:       input.AllowedRegions,
		IdentityRequired:     input.IdentityRequired,
		PrizeCurrency:        "USD",
		PrizeDistribution:    models.PrizeDistribution{},
		EntryFee:             input.EntryFee,
		RegistrationStart:    input.RegistrationStart,
		RegistrationEnd:      input.RegistrationEnd,
		CheckInStart:         input.CheckInStart,
		CheckInEnd:           input.CheckInEnd,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		MatchIntervalMinutes: input.MatchIntervalMinutes,
		SwissRounds:          input.SwissRounds,
		GrandFinalsReset:     input.GrandFinalsReset,
		Rules:                input.Rules,
		Metadata:             models.Metadata{},
	}
	if err := t.ValidateCapacity(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidCapacity, err)
	}
	if err := t.ValidateScheduleMonotonicity(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentScheduleInvalid, err)
	}

	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

func endOrStart(end *time.Time, start time.Time) time.Time {
	if end == nil {
		return start.Add(24 * time.Hour)
	}
	return *end
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	s.resolveLogoURL(t)
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter models.TournamentFilter) (*models.Page[models.Tournament], error) {
	items, total, err := s.tournamentRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.resolveLogoURL(&items[i])
	}
	return &models.Page[models.Tournament]{Items: items, TotalCount: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *tournamentService) requireOrganizer(t *models.Tournament, actorID int) error {
	if t.OrganizerID != actorID {
		return ErrTournamentNotOrganizer
	}
	return nil
}

func (s *tournamentService) UpdateTournamentDetails(ctx context.Context, id int, actorID int, input UpdateTournamentDetailsInput) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		t.Name = *input.Name
	}
	if input.Description != nil {
		t.Description = input.Description
	}
	if input.TeamSize != nil {
		t.TeamSize = *input.TeamSize
	}
	if input.MinParticipants != nil {
		t.MinParticipants = *input.MinParticipants
	}
	if input.MaxParticipants != nil {
		t.MaxParticipants = *input.MaxParticipants
	}
	if input.MinMMR != nil {
		t.MinMMR = input.MinMMR
	}
	if input.MaxMMR != nil {
		t.MaxMMR = input.MaxMMR
	}
	if input.AllowedRegions != nil {
		t.AllowedRegions = input.AllowedRegions
	}
	if input.IdentityRequired != nil {
		t.IdentityRequired = *input.IdentityRequired
	}
	if input.RegistrationType != nil {
		t.RegistrationType = *input.RegistrationType
	}
	if input.EntryFee != nil {
		t.EntryFee = *input.EntryFee
	}
	if input.RegistrationStart != nil {
		t.RegistrationStart = *input.RegistrationStart
	}
	if input.RegistrationEnd != nil {
		t.RegistrationEnd = *input.RegistrationEnd
	}
	if input.CheckInStart != nil {
		t.CheckInStart = *input.CheckInStart
	}
	if input.CheckInEnd != nil {
		t.CheckInEnd = *input.CheckInEnd
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		t.EndDate = input.EndDate
	}
	if input.MatchIntervalMinutes != nil {
		t.MatchIntervalMinutes = *input.MatchIntervalMinutes
	}
	if input.SwissRounds != nil {
		t.SwissRounds = *input.SwissRounds
	}
	if input.GrandFinalsReset != nil {
		t.GrandFinalsReset = *input.GrandFinalsReset
	}
	if input.Rules != nil {
		t.Rules = input.Rules
	}
	if input.StreamURL != nil {
		t.StreamURL = input.StreamURL
	}
	if input.Visibility != nil {
		t.Visibility = *input.Visibility
	}

	if err := t.ValidateCapacity(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidCapacity, err)
	}
	if err := t.ValidateScheduleMonotonicity(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentScheduleInvalid, err)
	}

	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

// SetFormat changes the bracket format. Only legal in Draft: registrants may
// already be seeded against the previous format's bracket shape once
// registration opens.
func (s *tournamentService) SetFormat(ctx context.Context, id int, actorID int, format models.Format) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	if t.Status != models.TournamentDraft {
		return nil, ErrTournamentFormatLocked
	}
	t.Format = format
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

func (s *tournamentService) ConfigurePrizePool(ctx context.Context, id int, actorID int, input ConfigurePrizePoolInput) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	if err := models.ValidatePrizeDistribution(input.Distribution); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentPrizeDistributionInvalid, err)
	}
	t.PrizePoolAmount = input.Amount
	t.PrizeCurrency = input.Currency
	t.PrizeDistribution = input.Distribution
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

func (s *tournamentService) SetVisibility(ctx context.Context, id int, actorID int, visibility models.Visibility) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	t.Visibility = visibility
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

func (s *tournamentService) ConfigureStreaming(ctx context.Context, id int, actorID int, streamURL *string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	t.StreamURL = streamURL
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return t, nil
}

func (s *tournamentService) CloneTournament(ctx context.Context, id int, actorID int, newName string) (*models.Tournament, error) {
	src, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(src, actorID); err != nil {
		return nil, err
	}
	clone := *src
	clone.ID = 0
	clone.Name = newName
	clone.Status = models.TournamentDraft
	clone.LogoKey = nil
	clone.LogoURL = nil
	if err := s.tournamentRepo.Create(ctx, nil, &clone); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	return &clone, nil
}

func (s *tournamentService) transitionStatus(ctx context.Context, id, actorID int, to models.TournamentStatus, checkOrganizer bool) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if checkOrganizer {
		if err := s.requireOrganizer(t, actorID); err != nil {
			return nil, err
		}
	}
	if !models.IsValidTournamentStatusTransition(t.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, to)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, to); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	t.Status = to
	s.broadcastStatusChange(t)
	return t, nil
}

func (s *tournamentService) OpenRegistration(ctx context.Context, id int, actorID int) (*models.Tournament, error) {
	return s.transitionStatus(ctx, id, actorID, models.TournamentRegistrationOpen, true)
}

func (s *tournamentService) CloseRegistration(ctx context.Context, id int, actorID int) (*models.Tournament, error) {
	return s.transitionStatus(ctx, id, actorID, models.TournamentRegistrationClosed, true)
}

func (s *tournamentService) StartCheckIn(ctx context.Context, id int, actorID int) (*models.Tournament, error) {
	return s.transitionStatus(ctx, id, actorID, models.TournamentCheckIn, true)
}

func (s *tournamentService) StartTournament(ctx context.Context, id int, actorID int) (*models.Tournament, error) {
	return s.transitionStatus(ctx, id, actorID, models.TournamentInProgress, true)
}

func (s *tournamentService) CompleteTournament(ctx context.Context, id int, actorID int) (*models.Tournament, error) {
	t, err := s.transitionStatus(ctx, id, actorID, models.TournamentCompleted, true)
	if err != nil {
		return nil, err
	}
	if s.hub != nil {
		roomID := roomIDForTournament(id)
		s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{Type: "TOURNAMENT_COMPLETED", Payload: map[string]interface{}{"tournament_id": id}, RoomID: roomID})
	}
	return t, nil
}

func (s *tournamentService) CancelTournament(ctx context.Context, id int, actorID int, reason string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: tournament already in terminal status %s", ErrTournamentInvalidStatusTransition, t.Status)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, models.TournamentCancelled); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	t.Status = models.TournamentCancelled
	if t.Metadata == nil {
		t.Metadata = models.Metadata{}
	}
	t.Metadata["cancellation_reason"] = reason
	_ = s.tournamentRepo.Update(ctx, nil, t)
	s.broadcastStatusChange(t)
	return t, nil
}

func (s *tournamentService) UploadTournamentLogo(ctx context.Context, id int, actorID int, contentType string, content io.Reader) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return nil, err
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("tournaments/%d/logo%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, content)
	if err != nil {
		return nil, fmt.Errorf("upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, nil, id, &result.Key); err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	t.LogoKey = &result.Key
	t.LogoURL = &result.Location
	return t, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int, actorID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapTournamentRepoErr(err)
	}
	if err := s.requireOrganizer(t, actorID); err != nil {
		return err
	}
	if t.Status != models.TournamentDraft {
		return fmt.Errorf("%w: only draft tournaments can be deleted", ErrTournamentInvalidStatus)
	}
	return mapTournamentRepoErr(s.tournamentRepo.Delete(ctx, nil, id))
}

// AutoUpdateTournamentStatusesByDates advances every tournament whose
// schedule window has elapsed for its current status, guarded by a
// transactional advisory lock so only one scheduler replica acts on a given
// sweep at a time.
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin scheduler transaction: %w", err)
	}
	defer tx.Rollback()

	acquired, err := db.TryAcquireTransactionalLock(ctx, tx, tournamentAutoStatusLockID, s.logger)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}

	candidates, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, tx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range candidates {
		next, ok := nextAutoStatus(t, now)
		if !ok {
			continue
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, next); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "auto status update failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			}
			continue
		}
		updated++
		s.broadcastStatusChange(&models.Tournament{ID: t.ID, Status: next})
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scheduler transaction: %w", err)
	}
	return updated, nil
}

func nextAutoStatus(t *models.Tournament, now time.Time) (models.TournamentStatus, bool) {
	switch t.Status {
	case models.TournamentDraft:
		if !now.Before(t.RegistrationStart) {
			return models.TournamentRegistrationOpen, true
		}
	case models.TournamentRegistrationOpen:
		if !now.Before(t.RegistrationEnd) {
			return models.TournamentRegistrationClosed, true
		}
	case models.TournamentRegistrationClosed:
		if !now.Before(t.CheckInStart) {
			return models.TournamentCheckIn, true
		}
	case models.TournamentCheckIn:
		if !now.Before(t.CheckInEnd) {
			return models.TournamentInProgress, true
		}
	}
	return "", false
}

func mapTournamentRepoErr(err error) error {
	switch err {
	case repositories.ErrTournamentNotFound:
		return ErrTournamentNotFound
	case repositories.ErrTournamentNameConflict:
		return ErrTournamentNameConflict
	default:
		return err
	}
}
