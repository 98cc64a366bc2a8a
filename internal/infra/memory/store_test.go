package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
)

func TestUpdateCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.Update(ctx, func(tx app.Tx) error {
		if err := tx.InsertQuiz(testQuiz("q-1")); err != nil {
			return err
		}
		return tx.AddPublished("q-1")
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = store.View(ctx, func(tx app.Tx) error {
		if _, exists, _ := tx.GetQuiz("q-1"); !exists {
			t.Fatalf("expected quiz committed")
		}
		ids, _ := tx.PublishedIDs()
		if len(ids) != 1 || ids[0] != "q-1" {
			t.Fatalf("expected published set {q-1}, got %v", ids)
		}
		return nil
	})
}

func TestUpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx app.Tx) error {
		_ = tx.InsertQuiz(testQuiz("q-1"))
		_ = tx.AddPublished("q-1")
		_ = tx.MarkSolved("alice", "q-1")
		_ = tx.SetRetriesLeft("alice", "q-1", 1)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_ = store.View(ctx, func(tx app.Tx) error {
		if _, exists, _ := tx.GetQuiz("q-1"); exists {
			t.Fatalf("expected insert rolled back")
		}
		if ids, _ := tx.PublishedIDs(); len(ids) != 0 {
			t.Fatalf("expected empty published set, got %v", ids)
		}
		if solved, _ := tx.HasSolved("alice", "q-1"); solved {
			t.Fatalf("expected solved mark rolled back")
		}
		if _, ok, _ := tx.RetriesLeft("alice", "q-1"); ok {
			t.Fatalf("expected retry counter rolled back")
		}
		return nil
	})
}

func TestTransactionSeesOwnWrites(t *testing.T) {
	store := NewStore()
	_ = store.Update(context.Background(), func(tx app.Tx) error {
		_ = tx.InsertQuiz(testQuiz("q-1"))
		if _, exists, _ := tx.GetQuiz("q-1"); !exists {
			t.Fatalf("expected staged quiz visible inside the transaction")
		}
		if err := tx.SetQuizStatus("q-1", domain.StatusPublished); err != nil {
			t.Fatalf("set status on staged quiz: %v", err)
		}
		quiz, _, _ := tx.GetQuiz("q-1")
		if quiz.Status != domain.StatusPublished {
			t.Fatalf("expected staged status update visible, got %s", quiz.Status)
		}
		return nil
	})
}

func TestAccountNamespacesDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.Update(ctx, func(tx app.Tx) error {
		_ = tx.MarkSolved("alice", "q-1")
		return tx.SetRetriesLeft("alice", "q-2", 1)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = store.View(ctx, func(tx app.Tx) error {
		if solved, _ := tx.HasSolved("bob", "q-1"); solved {
			t.Fatalf("bob must not inherit alice's solved set")
		}
		if _, ok, _ := tx.RetriesLeft("bob", "q-2"); ok {
			t.Fatalf("bob must not inherit alice's retry counter")
		}
		if solved, _ := tx.HasSolved("alice", "q-1"); !solved {
			t.Fatalf("alice's solved mark missing")
		}
		return nil
	})
}

func testQuiz(id string) domain.Quiz {
	return domain.Quiz{
		ID:         id,
		Status:     domain.StatusUnpublished,
		Question:   "What is 2 + 2?",
		AnswerHash: domain.HashAnswer("4"),
		MaxPrize:   big.NewInt(12),
	}
}
