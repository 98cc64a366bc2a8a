package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
	"github.com/Arideno/quiz-time/internal/infra/memory"
)

const owner = "owner.near"

func newTestService(t *testing.T) (*app.Service, *memory.Store, *memory.Treasury) {
	t.Helper()
	store := memory.NewStore()
	treasury := memory.NewTreasury()
	return app.NewService(owner, store, treasury, nil), store, treasury
}

func createQuiz(t *testing.T, service *app.Service, question, answer string, prize int64, publish bool) string {
	t.Helper()
	id, err := service.CreateQuiz(context.Background(), owner, question, domain.HashAnswer(answer), big.NewInt(prize), publish)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return id
}

func TestCreateStartsUnpublished(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	id := createQuiz(t, service, "What is the capital of France?", "Paris", 12, false)

	status, found, err := service.QuizStatus(ctx, id)
	if err != nil || !found {
		t.Fatalf("expected status, got found=%v err=%v", found, err)
	}
	if status != domain.StatusUnpublished {
		t.Fatalf("expected unpublished, got %s", status)
	}
}

func TestCreateWithPublish(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	id := createQuiz(t, service, "What is 2 + 2?", "4", 12, true)

	status, _, err := service.QuizStatus(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.StatusPublished {
		t.Fatalf("expected published, got %s", status)
	}

	quizzes, err := service.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].ID != id {
		t.Fatalf("expected quiz %s listed, got %+v", id, quizzes)
	}
	if quizzes[0].MaxPrize != "12" {
		t.Fatalf("expected prize 12, got %s", quizzes[0].MaxPrize)
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	id := createQuiz(t, service, "Q?", "a", 1, false)

	if err := service.PublishQuiz(ctx, owner, id); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := service.PublishQuiz(ctx, owner, id); err != nil {
		t.Fatalf("second publish should not fail: %v", err)
	}

	quizzes, err := service.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("expected exactly one listing, got %d", len(quizzes))
	}
}

func TestPublishUnknownQuiz(t *testing.T) {
	service, _, _ := newTestService(t)
	err := service.PublishQuiz(context.Background(), owner, "no-such-id")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestOwnerOnlyOperations(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	_, err := service.CreateQuiz(ctx, "alice.near", "Q?", domain.HashAnswer("a"), big.NewInt(1), false)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	id := createQuiz(t, service, "Q?", "a", 1, false)
	if err := service.PublishQuiz(ctx, "alice.near", id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// The failed publish must leave state unchanged.
	status, _, err := service.QuizStatus(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.StatusUnpublished {
		t.Fatalf("expected quiz still unpublished, got %s", status)
	}
}

func TestDuplicateQuiz(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	createQuiz(t, service, "Same question", "a", 5, true)
	_, err := service.CreateQuiz(ctx, owner, "Same question", domain.HashAnswer("b"), big.NewInt(9), false)
	if !errors.Is(err, domain.ErrDuplicateQuiz) {
		t.Fatalf("expected ErrDuplicateQuiz, got %v", err)
	}

	// Pre-existing record unchanged.
	quizzes, err := service.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].MaxPrize != "5" {
		t.Fatalf("expected original record intact, got %+v", quizzes)
	}
}

func TestStatusOfUnknownQuizIsAbsentNotError(t *testing.T) {
	service, _, _ := newTestService(t)
	_, found, err := service.QuizStatus(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found {
		t.Fatalf("expected absent status")
	}
}

func TestPrizeShrinksWithWrongAttempts(t *testing.T) {
	ctx := context.Background()
	service, _, treasury := newTestService(t)
	id := createQuiz(t, service, "Capital of France?", "Paris", 12, true)

	// A solves on the first attempt: full prize.
	outcome, err := service.SubmitAnswer(ctx, "a.near", id, "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Correct || outcome.Prize.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected prize 12, got %+v", outcome)
	}
	if treasury.Balance("a.near").Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected a.near credited 12, got %s", treasury.Balance("a.near"))
	}

	// B misses once: half.
	if _, err := service.SubmitAnswer(ctx, "b.near", id, "Kyiv"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	outcome, err = service.SubmitAnswer(ctx, "b.near", id, "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Prize.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("expected prize 6, got %s", outcome.Prize)
	}

	// C misses twice: a third.
	for _, wrong := range []string{"Berlin", "Madrid"} {
		if _, err := service.SubmitAnswer(ctx, "c.near", id, wrong); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	outcome, err = service.SubmitAnswer(ctx, "c.near", id, "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Prize.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("expected prize 4, got %s", outcome.Prize)
	}
}

func TestAlreadySolvedIsTerminal(t *testing.T) {
	ctx := context.Background()
	service, _, treasury := newTestService(t)
	id := createQuiz(t, service, "Q?", "a", 12, true)

	if _, err := service.SubmitAnswer(ctx, "a.near", id, "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := service.SubmitAnswer(ctx, "a.near", id, "a")
	if !errors.Is(err, domain.ErrAlreadySolved) {
		t.Fatalf("expected ErrAlreadySolved, got %v", err)
	}
	// No double payout.
	if treasury.Balance("a.near").Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected single payout of 12, got %s", treasury.Balance("a.near"))
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	ctx := context.Background()
	service, _, treasury := newTestService(t)
	id := createQuiz(t, service, "Q?", "a", 12, true)

	wantRetries := []int{2, 1, 0}
	for i, want := range wantRetries {
		outcome, err := service.SubmitAnswer(ctx, "d.near", id, "wrong")
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if outcome.RetriesLeft != want {
			t.Fatalf("attempt %d: expected %d retries left, got %d", i, want, outcome.RetriesLeft)
		}
		if (want == 0) != outcome.Exhausted {
			t.Fatalf("attempt %d: unexpected exhausted=%v", i, outcome.Exhausted)
		}
	}

	// Even the correct answer fails now, with no payout.
	_, err := service.SubmitAnswer(ctx, "d.near", id, "a")
	if !errors.Is(err, domain.ErrOutOfRetries) {
		t.Fatalf("expected ErrOutOfRetries, got %v", err)
	}
	if treasury.Balance("d.near").Sign() != 0 {
		t.Fatalf("expected no payout, got %s", treasury.Balance("d.near"))
	}
}

func TestSubmitToUnpublishedQuiz(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)
	id := createQuiz(t, service, "Q?", "a", 1, false)

	if _, err := service.SubmitAnswer(ctx, "a.near", id, "a"); !errors.Is(err, domain.ErrQuizNotPublished) {
		t.Fatalf("expected ErrQuizNotPublished, got %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "a.near", "missing", "a"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestPayoutFailureRollsBackSolvedState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	treasury := memory.NewTreasury()
	broken := app.NewService(owner, store, failingPayer{}, nil)

	id, err := broken.CreateQuiz(ctx, owner, "Q?", domain.HashAnswer("a"), big.NewInt(12), true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := broken.SubmitAnswer(ctx, "a.near", id, "a"); err == nil {
		t.Fatalf("expected payout failure to abort the call")
	}

	// A second service over the same store must still see the pair unsolved
	// with a full budget: full prize on the retried call.
	working := app.NewService(owner, store, treasury, nil)
	outcome, err := working.SubmitAnswer(ctx, "a.near", id, "a")
	if err != nil {
		t.Fatalf("submit after rollback: %v", err)
	}
	if outcome.Prize.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected full prize after rollback, got %s", outcome.Prize)
	}
}

func TestListPublishedDetectsCorruptIndex(t *testing.T) {
	service := app.NewService(owner, corruptStore{}, memory.NewTreasury(), nil)
	_, err := service.ListPublished(context.Background())
	if !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestSubscribeReceivesPublishedQuizzes(t *testing.T) {
	service, _, _ := newTestService(t)

	updates, cancel := service.Subscribe()
	defer cancel()

	id := createQuiz(t, service, "Q?", "a", 7, true)

	summary := <-updates
	if summary.ID != id || summary.MaxPrize != "7" {
		t.Fatalf("expected published summary for %s, got %+v", id, summary)
	}
}

type failingPayer struct{}

func (failingPayer) Pay(context.Context, string, *big.Int) error {
	return fmt.Errorf("transfer rejected")
}

// corruptStore simulates a published id that cannot be resolved.
type corruptStore struct{}

func (corruptStore) Update(ctx context.Context, fn func(tx app.Tx) error) error {
	return fn(corruptTx{})
}

func (corruptStore) View(ctx context.Context, fn func(tx app.Tx) error) error {
	return fn(corruptTx{})
}

type corruptTx struct{}

func (corruptTx) GetQuiz(string) (domain.Quiz, bool, error)     { return domain.Quiz{}, false, nil }
func (corruptTx) InsertQuiz(domain.Quiz) error                  { return nil }
func (corruptTx) SetQuizStatus(string, domain.QuizStatus) error { return nil }
func (corruptTx) AddPublished(string) error                     { return nil }
func (corruptTx) PublishedIDs() ([]string, error)               { return []string{"ghost"}, nil }
func (corruptTx) HasSolved(string, string) (bool, error)        { return false, nil }
func (corruptTx) MarkSolved(string, string) error               { return nil }
func (corruptTx) RetriesLeft(string, string) (int, bool, error) { return 0, false, nil }
func (corruptTx) SetRetriesLeft(string, string, int) error      { return nil }
