package services

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Dosada05/tourney-engine/models"
	"github.com/Dosada05/tourney-engine/repositories"
)

// fakeMatchRepo is an in-memory stand-in for repositories.MatchRepository.
// Only the methods the match lifecycle actually calls are exercised.
type fakeMatchRepo struct {
	repositories.MatchRepository
	mu      sync.Mutex
	matches map[int]*models.Match
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{matches: make(map[int]*models.Match)}
	for _, m := range matches {
		r.matches[m.ID] = m
	}
	return r
}

func (r *fakeMatchRepo) get(id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *fakeMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *fakeMatchRepo) UpdateWithVersion(ctx context.Context, exec repositories.SQLExecutor, m *models.Match, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if existing.Version != expectedVersion {
		return repositories.ErrMatchVersionStale
	}
	cp := *m
	cp.Version++
	r.matches[m.ID] = &cp
	return nil
}

func newMatchServiceForTest(t *testing.T, matches ...*models.Match) (MatchService, *fakeMatchRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := newFakeMatchRepo(matches...)
	svc := NewMatchService(db, repo, nil, nil, nil, nil, nil)
	return svc, repo, mock
}

func inProgressMatch(id int) *models.Match {
	p1, p2 := 1, 2
	return &models.Match{
		ID:           id,
		TournamentID: 100,
		BracketID:    1,
		Round:        1,
		Status:       models.MatchInProgress,
		Participant1: models.Slot{RegistrationID: &p1},
		Participant2: models.Slot{RegistrationID: &p2},
		BestOf:       1,
		Version:      1,
	}
}

func TestSubmitResultAwaitsOpposingConfirmation(t *testing.T) {
	m := inProgressMatch(1)
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.SubmitResult(context.Background(), models.SubmitResultInput{
		MatchID: 1, SubmittedBy: 1, WinnerID: 1, Participant1Score: 2, Participant2Score: 0, GamesPlayed: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.MatchAwaitingConfirmation {
		t.Errorf("status = %s, want %s", got.Status, models.MatchAwaitingConfirmation)
	}
	if !got.Participant1Confirmed || got.Participant2Confirmed {
		t.Errorf("expected only the submitting side confirmed, got p1=%v p2=%v", got.Participant1Confirmed, got.Participant2Confirmed)
	}
}

func TestSubmitResultCompletesWhenBothSidesConfirm(t *testing.T) {
	m := inProgressMatch(1)
	m.Status = models.MatchAwaitingConfirmation
	m.Participant1Confirmed = true
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.SubmitResult(context.Background(), models.SubmitResultInput{
		MatchID: 1, SubmittedBy: 2, WinnerID: 1, Participant1Score: 2, Participant2Score: 0, GamesPlayed: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.MatchCompleted {
		t.Errorf("status = %s, want %s", got.Status, models.MatchCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if got.WinnerID == nil || *got.WinnerID != 1 {
		t.Errorf("winner id = %v, want 1", got.WinnerID)
	}
}

func TestSubmitResultRejectsNonParticipant(t *testing.T) {
	m := inProgressMatch(1)
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.SubmitResult(context.Background(), models.SubmitResultInput{
		MatchID: 1, SubmittedBy: 99, WinnerID: 1, Participant1Score: 2, Participant2Score: 0,
	})
	if err != ErrMatchNotParticipant {
		t.Fatalf("err = %v, want ErrMatchNotParticipant", err)
	}
}

func TestSubmitResultRejectsAlreadyCompletedMatch(t *testing.T) {
	m := inProgressMatch(1)
	m.Status = models.MatchCompleted
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.SubmitResult(context.Background(), models.SubmitResultInput{
		MatchID: 1, SubmittedBy: 1, WinnerID: 1,
	})
	if err != ErrMatchAlreadyConfirmed {
		t.Fatalf("err = %v, want ErrMatchAlreadyConfirmed", err)
	}
}

func TestConfirmResultAdvancesWinnerIntoNextMatch(t *testing.T) {
	winner := 1
	m := inProgressMatch(1)
	m.Status = models.MatchAwaitingConfirmation
	m.Participant1Confirmed = true
	m.WinnerID = &winner
	nextID := 2
	m.NextMatchID = &nextID

	next := &models.Match{ID: 2, TournamentID: 100, BracketID: 1, Status: models.MatchPending, Version: 1}

	svc, repo, mock := newMatchServiceForTest(t, m, next)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := svc.ConfirmResult(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.MatchCompleted {
		t.Errorf("status = %s, want %s", got.Status, models.MatchCompleted)
	}

	stored, err := repo.GetByID(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("fetching next match: %v", err)
	}
	if stored.Participant1.RegistrationID == nil || *stored.Participant1.RegistrationID != winner {
		t.Errorf("next match participant1 = %+v, want registration %d", stored.Participant1, winner)
	}
}

func TestConfirmResultRejectsWhenNotAwaitingConfirmation(t *testing.T) {
	m := inProgressMatch(1)
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ConfirmResult(context.Background(), 1, 2)
	if err != ErrMatchInvalidStatusTransition {
		t.Fatalf("err = %v, want ErrMatchInvalidStatusTransition", err)
	}
}

func TestConfirmResultRejectsDoubleConfirmationBySameSide(t *testing.T) {
	m := inProgressMatch(1)
	m.Status = models.MatchAwaitingConfirmation
	m.Participant1Confirmed = true
	svc, _, mock := newMatchServiceForTest(t, m)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ConfirmResult(context.Background(), 1, 1)
	if err != ErrMatchAlreadyConfirmed {
		t.Fatalf("err = %v, want ErrMatchAlreadyConfirmed", err)
	}
}
