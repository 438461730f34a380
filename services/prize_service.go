package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tourney-engine/metrics"
	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
	"github.com/Dosada05/tourney-engine/wallet"
)

// bulkDistributeConcurrency caps how many DistributePrize calls BulkDistribute
// fans out at once, so a large payout run doesn't open one wallet transfer
// per prize simultaneously.
const bulkDistributeConcurrency = 4

// PrizeService manages a tournament's prize pool from setup through payout:
// defining placements, binding winners once final standings are known, and
// driving the wallet service to distribute (and retry) payouts.
type PrizeService interface {
	SetupPrizePool(ctx context.Context, tournamentID, actorID int, entries []models.PrizePoolEntry) ([]models.Prize, error)
	CalculatePrizes(ctx context.Context, tournamentID, actorID int) ([]models.Prize, error)
	GetPrize(ctx context.Context, id int) (*models.Prize, error)
	ListPrizes(ctx context.Context, filter models.PrizeFilter) ([]models.Prize, int, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error)
	ListByRecipient(ctx context.Context, recipientID int) ([]models.Prize, error)
	TotalEarnings(ctx context.Context, recipientID int) (float64, error)
	PoolSummary(ctx context.Context, tournamentID int) (*PrizePoolSummary, error)
	SetTaxRate(ctx context.Context, id, actorID int, taxRate float64) (*models.Prize, error)
	DistributePrize(ctx context.Context, id, actorID int) (*models.Prize, error)
	BulkDistribute(ctx context.Context, tournamentID, actorID int, verifiedOnly bool) (successful, failed []models.Prize, err error)
	RetryPrize(ctx context.Context, id, actorID int) (*models.Prize, error)
	UpdateStatus(ctx context.Context, id, actorID int, status models.PrizeStatus) (*models.Prize, error)
	SetRecipientWallet(ctx context.Context, id, actorID int, walletID, address string) (*models.Prize, error)
	VerifyRecipient(ctx context.Context, id, actorID int) (*models.Prize, error)
	CancelPrize(ctx context.Context, id, actorID int) error
}

// PrizePoolSummary aggregates a tournament's prize rows for display without
// requiring the caller to walk every row itself.
type PrizePoolSummary struct {
	TournamentID    int     `json:"tournament_id"`
	TotalAmount     float64 `json:"total_amount"`
	TotalNetAmount  float64 `json:"total_net_amount"`
	PendingCount    int     `json:"pending_count"`
	CalculatedCount int     `json:"calculated_count"`
	DistributedCount int    `json:"distributed_count"`
	FailedCount     int     `json:"failed_count"`
}

type prizeService struct {
	db               *sql.DB
	prizeRepo        repositories.PrizeRepository
	standingRepo     repositories.StandingRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	wallet           wallet.Client
	escrowWalletID   string
	walletTimeout    time.Duration
	logger           *slog.Logger
}

// NewPrizeService wires the prize payout workflow to its storage and
// external dependencies. escrowWalletID identifies the tournament's source
// wallet for outgoing transfers; walletTimeout bounds every wallet call and
// defaults to 30s (§4.10's suggested deadline) when zero.
func NewPrizeService(
	db *sql.DB,
	prizeRepo repositories.PrizeRepository,
	standingRepo repositories.StandingRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	walletClient wallet.Client,
	escrowWalletID string,
	walletTimeout time.Duration,
	logger *slog.Logger,
) PrizeService {
	if logger == nil {
		logger = slog.Default()
	}
	if walletTimeout <= 0 {
		walletTimeout = 30 * time.Second
	}
	return &prizeService{
		db:               db,
		prizeRepo:        prizeRepo,
		standingRepo:     standingRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		wallet:           walletClient,
		escrowWalletID:   escrowWalletID,
		walletTimeout:    walletTimeout,
		logger:           logger,
	}
}

func mapPrizeRepoErr(err error) error {
	if errors.Is(err, repositories.ErrPrizeNotFound) {
		return ErrPrizeNotFound
	}
	return err
}

func (s *prizeService) requireOrganizer(ctx context.Context, tournamentID, actorID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoErr(err)
	}
	if t.OrganizerID != actorID {
		return nil, ErrTournamentNotOrganizer
	}
	return t, nil
}

// SetupPrizePool replaces the tournament's entire prize pool with the given
// placements. Rejects configuration once the tournament has already
// finished, since a completed event's payouts should only be recalculated
// through the dispute-resolution path, not re-planned from scratch.
func (s *prizeService) SetupPrizePool(ctx context.Context, tournamentID, actorID int, entries []models.PrizePoolEntry) ([]models.Prize, error) {
	t, err := s.requireOrganizer(ctx, tournamentID, actorID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TournamentCompleted {
		return nil, fmt.Errorf("%w: prize pool cannot be reconfigured after the tournament has completed", ErrValidationFailed)
	}

	var percentageTotal float64
	prizes := make([]models.Prize, 0, len(entries))
	for _, e := range entries {
		if e.PercentageOfPool != nil {
			percentageTotal += *e.PercentageOfPool
		}
		p := models.Prize{
			TournamentID:     tournamentID,
			Placement:        e.Placement,
			Type:             e.Type,
			Currency:         t.PrizeCurrency,
			PercentageOfPool: e.PercentageOfPool,
			Status:           models.PrizePending,
		}
		if e.Amount != nil {
			p.Amount = *e.Amount
		} else if e.PercentageOfPool != nil {
			p.Amount = t.PrizePoolAmount * (*e.PercentageOfPool / 100)
		}
		p.ApplyTax()
		prizes = append(prizes, p)
	}
	if percentageTotal > 100 {
		return nil, fmt.Errorf("%w: prize placements sum to %.2f%% of the pool, exceeds 100%%", ErrTournamentPrizeDistributionInvalid, percentageTotal)
	}

	if err := s.prizeRepo.ReplaceForTournament(ctx, nil, tournamentID, prizes); err != nil {
		return nil, err
	}
	return s.prizeRepo.ListByTournament(ctx, nil, tournamentID)
}

// CalculatePrizes binds each pending prize to the standing that finished in
// its placement and moves it to calculated. Only runs once the tournament
// has completed, since final placements aren't settled before then.
func (s *prizeService) CalculatePrizes(ctx context.Context, tournamentID, actorID int) ([]models.Prize, error) {
	t, err := s.requireOrganizer(ctx, tournamentID, actorID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TournamentCompleted {
		return nil, fmt.Errorf("%w: prizes can only be calculated once the tournament has completed", ErrTournamentInvalidStatusTransition)
	}

	var result []models.Prize
	err = withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		prizes, err := s.prizeRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(prizes) == 0 {
			return ErrPrizePoolNotConfigured
		}

		standings, err := s.standingRepo.ListAllByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		byPlacement := make(map[int]*models.Standing, len(standings))
		for i := range standings {
			st := &standings[i]
			placement := st.Rank
			if st.FinalPlacement != nil {
				placement = *st.FinalPlacement
			}
			if _, exists := byPlacement[placement]; !exists {
				byPlacement[placement] = st
			}
		}

		for i := range prizes {
			p := &prizes[i]
			if p.Status != models.PrizePending {
				continue
			}
			st, ok := byPlacement[p.Placement]
			if !ok {
				continue
			}
			reg, err := s.registrationRepo.GetByID(ctx, exec, st.RegistrationID)
			if err == nil {
				p.RecipientID = &reg.ParticipantID
				name := displayNameForRegistration(reg)
				p.RecipientName = &name
				p.TeamID = reg.TeamID
			}
			if !models.IsValidPrizeStatusTransition(p.Status, models.PrizeCalculated) {
				continue
			}
			p.Status = models.PrizeCalculated
			p.ApplyTax()
			if err := s.prizeRepo.Update(ctx, exec, p); err != nil {
				return err
			}
		}
		result = prizes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *prizeService) GetPrize(ctx context.Context, id int) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	return p, nil
}

func (s *prizeService) ListPrizes(ctx context.Context, filter models.PrizeFilter) ([]models.Prize, int, error) {
	return s.prizeRepo.List(ctx, nil, filter)
}

func (s *prizeService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error) {
	return s.prizeRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *prizeService) ListByRecipient(ctx context.Context, recipientID int) ([]models.Prize, error) {
	return s.prizeRepo.ListByRecipient(ctx, nil, recipientID)
}

func (s *prizeService) TotalEarnings(ctx context.Context, recipientID int) (float64, error) {
	prizes, err := s.prizeRepo.ListByRecipient(ctx, nil, recipientID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range prizes {
		if p.Status == models.PrizeDistributed {
			total += p.NetAmount
		}
	}
	return total, nil
}

func (s *prizeService) PoolSummary(ctx context.Context, tournamentID int) (*PrizePoolSummary, error) {
	prizes, err := s.prizeRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	summary := &PrizePoolSummary{TournamentID: tournamentID}
	for _, p := range prizes {
		summary.TotalAmount += p.Amount
		summary.TotalNetAmount += p.NetAmount
		switch p.Status {
		case models.PrizePending:
			summary.PendingCount++
		case models.PrizeCalculated:
			summary.CalculatedCount++
		case models.PrizeDistributed:
			summary.DistributedCount++
		case models.PrizeFailed:
			summary.FailedCount++
		}
	}
	return summary, nil
}

func (s *prizeService) SetTaxRate(ctx context.Context, id, actorID int, taxRate float64) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return nil, err
	}
	if p.Status == models.PrizeDistributed {
		return nil, fmt.Errorf("%w: tax rate cannot change after distribution", ErrPrizeInvalidStatusTransition)
	}
	p.TaxRate = taxRate
	p.ApplyTax()
	if err := s.prizeRepo.Update(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

// prizeReference is the stable idempotency key handed to the wallet
// service: retrying a distribution for the same prize always reuses it, so
// a duplicate call can never double-pay.
func prizeReference(prizeID int) string {
	return fmt.Sprintf("tournament-prize-%d", prizeID)
}

// DistributePrize moves a calculated prize through processing to either
// distributed or failed, resolving the recipient's wallet and identity
// verification status along the way.
func (s *prizeService) DistributePrize(ctx context.Context, id, actorID int) (*models.Prize, error) {
	var result *models.Prize
	err := withDBTransaction(ctx, s.db, func(exec repositories.SQLExecutor) error {
		p, err := s.prizeRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return mapPrizeRepoErr(err)
		}
		if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
			return err
		}
		if p.Status != models.PrizeCalculated {
			return fmt.Errorf("%w: prize must be calculated before it can be distributed", ErrPrizeInvalidStatusTransition)
		}
		if p.RecipientID == nil {
			return fmt.Errorf("%w: prize has no bound recipient", ErrValidationFailed)
		}

		if err := s.resolveRecipientWallet(ctx, p); err != nil {
			return err
		}

		p.Status = models.PrizeProcessing
		if err := s.prizeRepo.Update(ctx, exec, p); err != nil {
			return err
		}

		transferCtx, cancel := context.WithTimeout(ctx, s.walletTimeout)
		defer cancel()
		txResult, txErr := s.wallet.Transfer(transferCtx, wallet.TransferRequest{
			FromWallet: s.escrowWalletID,
			ToWallet:   *p.WalletID,
			Amount:     p.NetAmount,
			Currency:   p.Currency,
			Reference:  prizeReference(p.ID),
		})
		if txErr != nil || txResult == nil || !txResult.Success {
			p.Status = models.PrizeFailed
			p.RetryCount++
			reason := distributionFailureReason(transferCtx, txErr, txResult)
			p.FailureReason = &reason
			if updErr := s.prizeRepo.Update(ctx, exec, p); updErr != nil {
				return updErr
			}
			s.logger.WarnContext(ctx, "prize distribution failed", "prize_id", p.ID, "reason", reason)
			metrics.RecordPrizeDistributionOutcome("failure")
			result = p
			return nil
		}

		p.Status = models.PrizeDistributed
		p.TransactionID = &txResult.TransactionID
		p.DistributedBy = &actorID
		if err := s.prizeRepo.Update(ctx, exec, p); err != nil {
			return err
		}
		metrics.RecordPrizeDistributionOutcome("success")
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// distributionFailureReason reports "timeout" when the wallet deadline was
// the actual cause, per the cancellation/timeout contract, falling back to
// the transport error or the wallet's own rejection reason.
func distributionFailureReason(ctx context.Context, err error, result *wallet.TransferResult) string {
	if errors.Is(err, wallet.ErrTransferTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	if err != nil {
		return err.Error()
	}
	if result != nil && result.Error != "" {
		return result.Error
	}
	return "wallet transfer rejected"
}

// resolveRecipientWallet looks up the recipient's wallet handle and identity
// verification status if they have not already been resolved, and rejects
// distribution outright when either is missing.
func (s *prizeService) resolveRecipientWallet(ctx context.Context, p *models.Prize) error {
	if p.WalletID == nil {
		account, err := s.wallet.GetWallet(ctx, *p.RecipientID)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return ErrPrizeRecipientWalletMissing
			}
			return err
		}
		p.WalletID = &account.WalletID
		p.WalletAddress = &account.Address
	}
	if !p.IdentityVerified {
		verified, err := s.wallet.VerifyIdentity(ctx, *p.RecipientID)
		if err != nil {
			return err
		}
		if !verified {
			return ErrPrizeRecipientUnverified
		}
		p.IdentityVerified = true
	}
	return nil
}

// BulkDistribute distributes every calculated prize for a tournament
// concurrently (bounded by bulkDistributeConcurrency), optionally skipping
// recipients without identity verification on file. Each prize distributes
// independently through its own DistributePrize transaction: one failure
// does not block the rest of the pool.
func (s *prizeService) BulkDistribute(ctx context.Context, tournamentID, actorID int, verifiedOnly bool) ([]models.Prize, []models.Prize, error) {
	if _, err := s.requireOrganizer(ctx, tournamentID, actorID); err != nil {
		return nil, nil, err
	}
	prizes, err := s.prizeRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(prizes, func(i, j int) bool { return prizes[i].Placement < prizes[j].Placement })

	var mu sync.Mutex
	var successful, failed []models.Prize
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDistributeConcurrency)
	for _, p := range prizes {
		if p.Status != models.PrizeCalculated {
			continue
		}
		if verifiedOnly && !p.IdentityVerified {
			continue
		}
		p := p
		g.Go(func() error {
			distributed, err := s.DistributePrize(gctx, p.ID, actorID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.ErrorContext(gctx, "bulk distribute step failed", "prize_id", p.ID, "error", err)
				failed = append(failed, p)
				return nil
			}
			if distributed.Status == models.PrizeDistributed {
				successful = append(successful, *distributed)
			} else {
				failed = append(failed, *distributed)
			}
			return nil
		})
	}
	_ = g.Wait()
	return successful, failed, nil
}

// RetryPrize moves a failed prize back to calculated and immediately
// attempts redistribution, as long as it hasn't exhausted its retry budget.
func (s *prizeService) RetryPrize(ctx context.Context, id, actorID int) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return nil, err
	}
	if !p.RetryEligible() {
		return nil, ErrPrizeRetryLimitExceeded
	}
	p.Status = models.PrizeCalculated
	now := time.Now()
	p.LastRetryAt = &now
	if err := s.prizeRepo.Update(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.RecordPrizeDistributionOutcome("retry")
	return s.DistributePrize(ctx, id, actorID)
}

// UpdateStatus applies an administrator-directed status override, checked
// against the same transition table every other lifecycle method relies on
// implicitly. Used for corrections that fall outside the normal
// calculate/distribute/retry flow, e.g. force-cancelling a stuck prize.
func (s *prizeService) UpdateStatus(ctx context.Context, id, actorID int, status models.PrizeStatus) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return nil, err
	}
	if !models.IsValidPrizeStatusTransition(p.Status, status) {
		return nil, ErrPrizeInvalidStatusTransition
	}
	p.Status = status
	if err := s.prizeRepo.Update(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetRecipientWallet manually records a recipient's wallet handle, bypassing
// the lazy GetWallet lookup distribution otherwise performs. Used when the
// wallet service has no record yet and the organizer collects it out of
// band.
func (s *prizeService) SetRecipientWallet(ctx context.Context, id, actorID int, walletID, address string) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return nil, err
	}
	p.WalletID = &walletID
	p.WalletAddress = &address
	if err := s.prizeRepo.Update(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

// VerifyRecipient re-checks the recipient's identity verification status
// against the wallet service and persists the result.
func (s *prizeService) VerifyRecipient(ctx context.Context, id, actorID int) (*models.Prize, error) {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return nil, err
	}
	if p.RecipientID == nil {
		return nil, fmt.Errorf("%w: prize has no bound recipient", ErrValidationFailed)
	}
	verified, err := s.wallet.VerifyIdentity(ctx, *p.RecipientID)
	if err != nil {
		return nil, err
	}
	p.IdentityVerified = verified
	if err := s.prizeRepo.Update(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *prizeService) CancelPrize(ctx context.Context, id, actorID int) error {
	p, err := s.prizeRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapPrizeRepoErr(err)
	}
	if _, err := s.requireOrganizer(ctx, p.TournamentID, actorID); err != nil {
		return err
	}
	if !models.IsValidPrizeStatusTransition(p.Status, models.PrizeCancelled) {
		return ErrPrizeInvalidStatusTransition
	}
	p.Status = models.PrizeCancelled
	return s.prizeRepo.Update(ctx, nil, p)
}
