package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Arideno/quiz-time/internal/domain"
)

func TestQuizCacheCachesPublished(t *testing.T) {
	reader := &countingReader{quiz: publishedQuiz()}
	cache := NewQuizCache(reader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "q-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected reader called once, got %d", reader.calls)
	}

	// Second call should hit cache, reader not incremented.
	if _, err := cache.GetQuiz(context.Background(), "q-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected cache hit, reader calls=%d", reader.calls)
	}
}

func TestQuizCacheSkipsUnpublished(t *testing.T) {
	quiz := publishedQuiz()
	quiz.Status = domain.StatusUnpublished
	reader := &countingReader{quiz: quiz}
	cache := NewQuizCache(reader, time.Minute)

	_, _ = cache.GetQuiz(context.Background(), "q-1")
	_, _ = cache.GetQuiz(context.Background(), "q-1")
	if reader.calls != 2 {
		t.Fatalf("unpublished quizzes must not be cached, reader calls=%d", reader.calls)
	}
}

type countingReader struct {
	quiz  domain.Quiz
	calls int
}

func (r *countingReader) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	r.calls++
	if quizID != r.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return r.quiz, nil
}

func publishedQuiz() domain.Quiz {
	return domain.Quiz{
		ID:         "q-1",
		Status:     domain.StatusPublished,
		Question:   "What is 2 + 2?",
		AnswerHash: domain.HashAnswer("4"),
		MaxPrize:   big.NewInt(12),
	}
}
