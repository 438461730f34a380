package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/tourney-engine/brackets"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
)

// IssueRefundInput is the typed request DTO for issue-refund.
type IssueRefundInput struct {
	RegistrationID int
	Amount         float64
}

// SubstituteInput is the typed request DTO for substitute.
type SubstituteInput struct {
	RegistrationID   int
	NewParticipantID int
	DisplayName      string
}

// SetManualSeedInput is the typed request DTO for set-manual-seed.
type SetManualSeedInput struct {
	RegistrationID int
	Seed           int
}

type RegistrationService interface {
	RegisterIndividual(ctx context.Context, input models.RegisterIndividualInput) (*models.Registration, error)
	RegisterTeam(ctx context.Context, input models.RegisterTeamInput) (*models.Registration, error)
	ListRegistrations(ctx context.Context, filter models.RegistrationFilter) (*models.Page[models.Registration], error)
	GetRegistrationByID(ctx context.Context, id int) (*models.Registration, error)
	GetWaitlist(ctx context.Context, tournamentID int) ([]models.Registration, error)
	CancelRegistration(ctx context.Context, id int, actorID int) (*models.Registration, error)
	IssueRefund(ctx context.Context, input IssueRefundInput) (*models.Registration, error)
	CheckIn(ctx context.Context, id int) (*models.Registration, error)
	MarkNoShow(ctx context.Context, id int) (*models.Registration, error)
	Substitute(ctx context.Context, input SubstituteInput) (*models.Registration, error)
	SeedByMMR(ctx context.Context, tournamentID int) ([]models.Registration, error)
	SetManualSeed(ctx context.Context, input SetManualSeedInput) (*models.Registration, error)
	SetBulkSeeds(ctx context.Context, tournamentID int, seeds map[int]int) ([]models.Registration, error)
}

type registrationService struct {
	db               *sql.DB
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewRegistrationService(
	sqlDB *sql.DB,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		db:               sqlDB,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		hub:              hub,
		logger:           logger,
	}
}

func (s *registrationService) withTransaction(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if opErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				if s.logger != nil {
					s.logger.Error("registration transaction rollback failed", slog.Any("op_error", opErr), slog.Any("rollback_error", rbErr))
				}
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				opErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()
	opErr = fn(tx)
	return opErr
}

func (s *registrationService) broadcastRegistration(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	roomID := roomIDForTournament(tournamentID)
	s.hub.BroadcastToRoom(roomID, brackets.WebSocketMessage{Type: eventType, Payload: payload, RoomID: roomID})
}

func (s *registrationService) checkCapacityAndWindow(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (bool, error) {
	if t.Status != models.TournamentRegistrationOpen {
		return false, ErrRegistrationNotOpen
	}
	activeCount, err := s.registrationRepo.CountActive(ctx, exec, t.ID)
	if err != nil {
		return false, err
	}
	return activeCount < t.MaxParticipants, nil
}

func (s *registrationService) RegisterIndividual(ctx context.Context, input models.RegisterIndividualInput) (*models.Registration, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.TeamSize > 1 {
		return nil, fmt.Errorf("%w: tournament requires team registration", ErrValidationFailed)
	}
	if err := s.validateEntryRequirements(t, input.MMR, input.Region, input.IdentityVerified); err != nil {
		return nil, err
	}

	var result *models.Registration
	err = s.withTransaction(ctx, func(tx repositories.SQLExecutor) error {
		hasRoom, err := s.checkCapacityAndWindow(ctx, tx, t)
		if err != nil {
			return err
		}
		reg := &models.Registration{
			TournamentID:     input.TournamentID,
			ParticipantID:    input.ParticipantID,
			DisplayName:      input.DisplayName,
			Status:           models.RegistrationPending,
			MMR:              input.MMR,
			IdentityVerified: input.IdentityVerified,
			Region:           input.Region,
			EntryFeePaid:     input.EntryFeePaid,
			Metadata:         models.Metadata{},
		}
		if hasRoom {
			reg.Status = models.RegistrationConfirmed
		} else {
			reg.Status = models.RegistrationWaitlisted
			pos, err := s.nextWaitlistPosition(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			reg.WaitlistPosition = &pos
		}
		if err := s.registrationRepo.Create(ctx, tx, reg); err != nil {
			return mapRegistrationRepoErr(err)
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcastRegistration(input.TournamentID, "REGISTRATION_CREATED", result)
	return result, nil
}

func (s *registrationService) RegisterTeam(ctx context.Context, input models.RegisterTeamInput) (*models.Registration, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.TeamSize <= 1 {
		return nil, fmt.Errorf("%w: tournament does not accept team registration", ErrValidationFailed)
	}
	if err := models.ValidateTeamSizeConsistency(t.TeamSize, input.TeamMemberIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTeamSizeMismatch, err)
	}
	if err := s.validateEntryRequirements(t, input.MMR, input.Region, input.IdentityVerified); err != nil {
		return nil, err
	}

	var result *models.Registration
	err = s.withTransaction(ctx, func(tx repositories.SQLExecutor) error {
		hasRoom, err := s.checkCapacityAndWindow(ctx, tx, t)
		if err != nil {
			return err
		}
		reg := &models.Registration{
			TournamentID:     input.TournamentID,
			ParticipantID:    input.ParticipantID,
			DisplayName:      input.DisplayName,
			TeamID:           &input.TeamID,
			TeamName:         &input.TeamName,
			TeamMemberIDs:    input.TeamMemberIDs,
			Status:           models.RegistrationPending,
			MMR:              input.MMR,
			IdentityVerified: input.IdentityVerified,
			Region:           input.Region,
			EntryFeePaid:     input.EntryFeePaid,
			Metadata:         models.Metadata{},
		}
		if hasRoom {
			reg.Status = models.RegistrationConfirmed
		} else {
			reg.Status = models.RegistrationWaitlisted
			pos, err := s.nextWaitlistPosition(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			reg.WaitlistPosition = &pos
		}
		if err := s.registrationRepo.Create(ctx, tx, reg); err != nil {
			return mapRegistrationRepoErr(err)
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcastRegistration(input.TournamentID, "REGISTRATION_CREATED", result)
	return result, nil
}

func (s *registrationService) validateEntryRequirements(t *models.Tournament, mmr *int, region *string, identityVerified bool) error {
	if t.IdentityRequired && !identityVerified {
		return ErrIdentityRequired
	}
	if t.MinMMR != nil && (mmr == nil || *mmr < *t.MinMMR) {
		return ErrMMRRangeViolation
	}
	if t.MaxMMR != nil && (mmr == nil || *mmr > *t.MaxMMR) {
		return ErrMMRRangeViolation
	}
	if len(t.AllowedRegions) > 0 {
		if region == nil {
			return ErrRegionNotAllowed
		}
		allowed := false
		for _, r := range t.AllowedRegions {
			if r == *region {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrRegionNotAllowed
		}
	}
	return nil
}

func (s *registrationService) nextWaitlistPosition(ctx context.Context, tx repositories.SQLExecutor, tournamentID int) (int, error) {
	waitlist, err := s.registrationRepo.ListWaitlist(ctx, tx, tournamentID)
	if err != nil {
		return 0, err
	}
	return len(waitlist) + 1, nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, filter models.RegistrationFilter) (*models.Page[models.Registration], error) {
	items, total, err := s.registrationRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Registration]{Items: items, TotalCount: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *registrationService) GetRegistrationByID(ctx context.Context, id int) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

func (s *registrationService) GetWaitlist(ctx context.Context, tournamentID int) ([]models.Registration, error) {
	return s.registrationRepo.ListWaitlist(ctx, nil, tournamentID)
}

// CancelRegistration cancels a registration and, if it held a confirmed slot,
// promotes the earliest waitlisted registration into the vacated slot.
func (s *registrationService) CancelRegistration(ctx context.Context, id int, actorID int) (*models.Registration, error) {
	var cancelled *models.Registration
	var promoted *models.Registration
	err := s.withTransaction(ctx, func(tx repositories.SQLExecutor) error {
		reg, err := s.registrationRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return mapRegistrationRepoErr(err)
		}
		if !models.IsValidRegistrationStatusTransition(reg.Status, models.RegistrationCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrRegistrationInvalidStatusTransition, reg.Status, models.RegistrationCancelled)
		}
		wasConfirmed := reg.Status == models.RegistrationConfirmed || reg.Status == models.RegistrationCheckedIn
		reg.Status = models.RegistrationCancelled
		if err := s.registrationRepo.Update(ctx, tx, reg); err != nil {
			return mapRegistrationRepoErr(err)
		}
		cancelled = reg

		if wasConfirmed {
			waitlist, err := s.registrationRepo.ListWaitlist(ctx, tx, reg.TournamentID)
			if err != nil {
				return err
			}
			if len(waitlist) > 0 {
				next := waitlist[0]
				next.Status = models.RegistrationConfirmed
				next.WaitlistPosition = nil
				if err := s.registrationRepo.Update(ctx, tx, &next); err != nil {
					return mapRegistrationRepoErr(err)
				}
				if err := s.resequenceWaitlist(ctx, tx, reg.TournamentID); err != nil {
					return err
				}
				promoted = &next
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcastRegistration(cancelled.TournamentID, "REGISTRATION_CANCELLED", cancelled)
	if promoted != nil {
		s.broadcastRegistration(promoted.TournamentID, "REGISTRATION_PROMOTED", promoted)
	}
	return cancelled, nil
}

func (s *registrationService) resequenceWaitlist(ctx context.Context, tx repositories.SQLExecutor, tournamentID int) error {
	waitlist, err := s.registrationRepo.ListWaitlist(ctx, tx, tournamentID)
	if err != nil {
		return err
	}
	sort.Slice(waitlist, func(i, j int) bool {
		pi, pj := 0, 0
		if waitlist[i].WaitlistPosition != nil {
			pi = *waitlist[i].WaitlistPosition
		}
		if waitlist[j].WaitlistPosition != nil {
			pj = *waitlist[j].WaitlistPosition
		}
		return pi < pj
	})
	for i := range waitlist {
		pos := i + 1
		if waitlist[i].WaitlistPosition != nil && *waitlist[i].WaitlistPosition == pos {
			continue
		}
		waitlist[i].WaitlistPosition = &pos
		if err := s.registrationRepo.Update(ctx, tx, &waitlist[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *registrationService) IssueRefund(ctx context.Context, input IssueRefundInput) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, input.RegistrationID)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	if reg.RefundIssued {
		return reg, nil
	}
	now := time.Now()
	reg.RefundIssued = true
	reg.RefundAmount = &input.Amount
	reg.RefundAt = &now
	if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

func (s *registrationService) CheckIn(ctx context.Context, id int) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, reg.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	now := time.Now()
	if t.Status != models.TournamentCheckIn || now.Before(t.CheckInStart) || now.After(t.CheckInEnd) {
		return nil, ErrCheckInWindowClosed
	}
	if !models.IsValidRegistrationStatusTransition(reg.Status, models.RegistrationCheckedIn) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRegistrationInvalidStatusTransition, reg.Status, models.RegistrationCheckedIn)
	}
	reg.Status = models.RegistrationCheckedIn
	reg.CheckedInAt = &now
	if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

func (s *registrationService) MarkNoShow(ctx context.Context, id int) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	if !models.IsValidRegistrationStatusTransition(reg.Status, models.RegistrationNoShow) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRegistrationInvalidStatusTransition, reg.Status, models.RegistrationNoShow)
	}
	reg.Status = models.RegistrationNoShow
	if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

// Substitute swaps the participant on an existing registration without
// losing its seed, waitlist position, or match-lifecycle state, since the
// slot it occupies in an already-generated bracket must not move.
func (s *registrationService) Substitute(ctx context.Context, input SubstituteInput) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, input.RegistrationID)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	if reg.TeamID == nil {
		return nil, fmt.Errorf("%w: substitution only applies to team registrations", ErrValidationFailed)
	}
	found := false
	for _, id := range reg.TeamMemberIDs {
		if id == input.NewParticipantID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrSubstituteSameTeam
	}
	now := time.Now()
	reg.SubstitutedFromParticipantID = &reg.ParticipantID
	reg.SubstitutedAt = &now
	reg.ParticipantID = input.NewParticipantID
	reg.DisplayName = input.DisplayName
	if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

// SeedByMMR assigns seeds 1..n to confirmed/checked-in registrations ordered
// by descending MMR, highest MMR earning seed 1.
func (s *registrationService) SeedByMMR(ctx context.Context, tournamentID int) ([]models.Registration, error) {
	regs, err := s.registrationRepo.ListConfirmedAndCheckedIn(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(regs, func(i, j int) bool {
		mi, mj := derefInt(regs[i].MMR), derefInt(regs[j].MMR)
		return mi > mj
	})
	for i := range regs {
		seed := i + 1
		regs[i].Seed = &seed
		if err := s.registrationRepo.Update(ctx, nil, &regs[i]); err != nil {
			return nil, mapRegistrationRepoErr(err)
		}
	}
	return regs, nil
}

func (s *registrationService) SetManualSeed(ctx context.Context, input SetManualSeedInput) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, input.RegistrationID)
	if err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	reg.Seed = &input.Seed
	if err := s.registrationRepo.Update(ctx, nil, reg); err != nil {
		return nil, mapRegistrationRepoErr(err)
	}
	return reg, nil
}

func (s *registrationService) SetBulkSeeds(ctx context.Context, tournamentID int, seeds map[int]int) ([]models.Registration, error) {
	var updated []models.Registration
	err := s.withTransaction(ctx, func(tx repositories.SQLExecutor) error {
		for registrationID, seed := range seeds {
			reg, err := s.registrationRepo.GetByID(ctx, tx, registrationID)
			if err != nil {
				return mapRegistrationRepoErr(err)
			}
			if reg.TournamentID != tournamentID {
				return fmt.Errorf("%w: registration %d does not belong to tournament %d", ErrValidationFailed, registrationID, tournamentID)
			}
			seedCopy := seed
			reg.Seed = &seedCopy
			if err := s.registrationRepo.Update(ctx, tx, reg); err != nil {
				return mapRegistrationRepoErr(err)
			}
			updated = append(updated, *reg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func mapRegistrationRepoErr(err error) error {
	switch err {
	case repositories.ErrRegistrationNotFound:
		return ErrRegistrationNotFound
	case repositories.ErrRegistrationConflict:
		return ErrRegistrationConflict
	case repositories.ErrRegistrationTeamConflict:
		return ErrRegistrationTeamConflict
	default:
		return err
	}
}
