package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
	"github.com/Dosada05/tourney-engine/wallet"
)

// fakePrizeRepo is an in-memory stand-in for repositories.PrizeRepository.
// It ignores the exec argument entirely: DistributePrize and RetryPrize only
// need a repository that reads and writes prize rows, not one that actually
// participates in the surrounding SQL transaction.
type fakePrizeRepo struct {
	mu     sync.Mutex
	prizes map[int]*models.Prize
}

func newFakePrizeRepo(prizes ...*models.Prize) *fakePrizeRepo {
	r := &fakePrizeRepo{prizes: make(map[int]*models.Prize)}
	for _, p := range prizes {
		r.prizes[p.ID] = p
	}
	return r
}

func (r *fakePrizeRepo) get(id int) (*models.Prize, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prizes[id]
	if !ok {
		return nil, repositories.ErrPrizeNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePrizeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Prize) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prizes[p.ID] = p
	return nil
}
func (r *fakePrizeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Prize, error) {
	return r.get(id)
}
func (r *fakePrizeRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Prize, error) {
	return r.get(id)
}
func (r *fakePrizeRepo) List(ctx context.Context, exec repositories.SQLExecutor, filter models.PrizeFilter) ([]models.Prize, int, error) {
	return nil, 0, nil
}
func (r *fakePrizeRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Prize, error) {
	return nil, nil
}
func (r *fakePrizeRepo) ListByRecipient(ctx context.Context, exec repositories.SQLExecutor, recipientID int) ([]models.Prize, error) {
	return nil, nil
}
func (r *fakePrizeRepo) ListRetryEligible(ctx context.Context, exec repositories.SQLExecutor) ([]models.Prize, error) {
	return nil, nil
}
func (r *fakePrizeRepo) Update(ctx context.Context, exec repositories.SQLExecutor, p *models.Prize) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.prizes[p.ID] = &cp
	return nil
}
func (r *fakePrizeRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, prizes []models.Prize) error {
	return nil
}
func (r *fakePrizeRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return nil
}

// fakeTournamentRepo only ever needs to answer GetByID for requireOrganizer.
type fakeTournamentRepo struct {
	repositories.TournamentRepository
	tournament *models.Tournament
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.tournament, nil
}

const (
	testOrganizerID  = 1
	testRecipientID  = 2
	testTournamentID = 10
)

func newPrizeServiceForTest(t *testing.T, prize *models.Prize, walletClient wallet.Client) (PrizeService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tournamentRepo := &fakeTournamentRepo{tournament: &models.Tournament{
		ID:          testTournamentID,
		OrganizerID: testOrganizerID,
	}}
	prizeRepo := newFakePrizeRepo(prize)
	svc := NewPrizeService(db, prizeRepo, nil, tournamentRepo, nil, walletClient, "escrow-wallet", time.Second, slog.Default())
	return svc, mock
}

func calculatedPrize() *models.Prize {
	recipient := testRecipientID
	return &models.Prize{
		ID:           1,
		TournamentID: testTournamentID,
		Status:       models.PrizeCalculated,
		RecipientID:  &recipient,
		Amount:       1000,
		NetAmount:    1000,
		Currency:     "USD",
	}
}

func TestDistributePrizeSuccessTransfersAndMarksDistributed(t *testing.T) {
	wc := wallet.NewMemoryClient()
	wc.Accounts[testRecipientID] = wallet.Account{WalletID: "w-1", Address: "addr-1"}
	wc.Verified[testRecipientID] = true

	svc, mock := newPrizeServiceForTest(t, calculatedPrize(), wc)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.DistributePrize(context.Background(), 1, testOrganizerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.PrizeDistributed {
		t.Errorf("status = %s, want %s", got.Status, models.PrizeDistributed)
	}
	if got.TransactionID == nil || *got.TransactionID == "" {
		t.Error("expected a transaction id to be recorded")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestDistributePrizeFailureRecordsFailureReasonAndIncrementsRetryCount(t *testing.T) {
	wc := wallet.NewMemoryClient()
	wc.Accounts[testRecipientID] = wallet.Account{WalletID: "w-1", Address: "addr-1"}
	wc.Verified[testRecipientID] = true
	wc.FailReferences[prizeReference(1)] = true

	svc, mock := newPrizeServiceForTest(t, calculatedPrize(), wc)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.DistributePrize(context.Background(), 1, testOrganizerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.PrizeFailed {
		t.Errorf("status = %s, want %s", got.Status, models.PrizeFailed)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
	if got.FailureReason == nil || *got.FailureReason == "" {
		t.Error("expected a failure reason to be recorded")
	}
}

func TestDistributePrizeRejectsNonOrganizerActor(t *testing.T) {
	wc := wallet.NewMemoryClient()
	svc, mock := newPrizeServiceForTest(t, calculatedPrize(), wc)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.DistributePrize(context.Background(), 1, testOrganizerID+1)
	if err != ErrTournamentNotOrganizer {
		t.Fatalf("err = %v, want ErrTournamentNotOrganizer", err)
	}
}

func TestDistributePrizeRejectsPrizeNotYetCalculated(t *testing.T) {
	wc := wallet.NewMemoryClient()
	prize := calculatedPrize()
	prize.Status = models.PrizePending
	svc, mock := newPrizeServiceForTest(t, prize, wc)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.DistributePrize(context.Background(), 1, testOrganizerID)
	if err == nil {
		t.Fatal("expected an error distributing a prize that has not been calculated")
	}
}

func TestDistributePrizeRejectsUnverifiedRecipient(t *testing.T) {
	wc := wallet.NewMemoryClient()
	wc.Accounts[testRecipientID] = wallet.Account{WalletID: "w-1", Address: "addr-1"}
	// Verified left false.
	svc, mock := newPrizeServiceForTest(t, calculatedPrize(), wc)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.DistributePrize(context.Background(), 1, testOrganizerID)
	if err != ErrPrizeRecipientUnverified {
		t.Fatalf("err = %v, want ErrPrizeRecipientUnverified", err)
	}
}

func TestRetryPrizeStopsAtMaxRetries(t *testing.T) {
	prize := calculatedPrize()
	prize.Status = models.PrizeFailed
	prize.RetryCount = models.MaxPrizeRetries
	wc := wallet.NewMemoryClient()
	svc, _ := newPrizeServiceForTest(t, prize, wc)

	_, err := svc.RetryPrize(context.Background(), 1, testOrganizerID)
	if err != ErrPrizeRetryLimitExceeded {
		t.Fatalf("err = %v, want ErrPrizeRetryLimitExceeded", err)
	}
}

func TestRetryPrizeRedistributesWhenEligible(t *testing.T) {
	prize := calculatedPrize()
	prize.Status = models.PrizeFailed
	prize.RetryCount = models.MaxPrizeRetries - 1
	wc := wallet.NewMemoryClient()
	wc.Accounts[testRecipientID] = wallet.Account{WalletID: "w-1", Address: "addr-1"}
	wc.Verified[testRecipientID] = true

	svc, mock := newPrizeServiceForTest(t, prize, wc)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.RetryPrize(context.Background(), 1, testOrganizerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.PrizeDistributed {
		t.Errorf("status = %s, want %s after a successful retry", got.Status, models.PrizeDistributed)
	}
}
