package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
)

// Store is an in-memory implementation of app.Store. Each Update stages its
// mutations in a transaction overlay and folds them into the base maps only
// when the callback succeeds. The store mutex is held across the whole call,
// which reinstates the single-call-at-a-time execution model the contract's
// state machine assumes.
type Store struct {
	mu        sync.Mutex
	quizzes   map[string]domain.Quiz
	published map[string]struct{}
	solved    map[string]map[string]struct{}
	retries   map[string]map[string]int
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]domain.Quiz),
		published: make(map[string]struct{}),
		solved:    make(map[string]map[string]struct{}),
		retries:   make(map[string]map[string]int),
	}
}

func (s *Store) Update(ctx context.Context, fn func(tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(newTx(s))
}

// tx overlays staged writes on top of the base maps. Reads consult the overlay
// first so a transaction observes its own mutations.
type tx struct {
	store     *Store
	quizzes   map[string]domain.Quiz
	published map[string]struct{}
	solved    map[string]map[string]struct{}
	retries   map[string]map[string]int
}

func newTx(s *Store) *tx {
	return &tx{
		store:     s,
		quizzes:   make(map[string]domain.Quiz),
		published: make(map[string]struct{}),
		solved:    make(map[string]map[string]struct{}),
		retries:   make(map[string]map[string]int),
	}
}

func (t *tx) commit() {
	for id, quiz := range t.quizzes {
		t.store.quizzes[id] = quiz
	}
	for id := range t.published {
		t.store.published[id] = struct{}{}
	}
	for ns, ids := range t.solved {
		base, ok := t.store.solved[ns]
		if !ok {
			base = make(map[string]struct{})
			t.store.solved[ns] = base
		}
		for id := range ids {
			base[id] = struct{}{}
		}
	}
	for ns, counters := range t.retries {
		base, ok := t.store.retries[ns]
		if !ok {
			base = make(map[string]int)
			t.store.retries[ns] = base
		}
		for id, n := range counters {
			base[id] = n
		}
	}
}

func (t *tx) GetQuiz(id string) (domain.Quiz, bool, error) {
	if quiz, ok := t.quizzes[id]; ok {
		return copyQuiz(quiz), true, nil
	}
	if quiz, ok := t.store.quizzes[id]; ok {
		return copyQuiz(quiz), true, nil
	}
	return domain.Quiz{}, false, nil
}

func (t *tx) InsertQuiz(quiz domain.Quiz) error {
	t.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (t *tx) SetQuizStatus(id string, status domain.QuizStatus) error {
	quiz, exists, err := t.GetQuiz(id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrQuizNotFound
	}
	quiz.Status = status
	t.quizzes[id] = quiz
	return nil
}

func (t *tx) AddPublished(id string) error {
	t.published[id] = struct{}{}
	return nil
}

func (t *tx) PublishedIDs() ([]string, error) {
	seen := make(map[string]struct{}, len(t.store.published)+len(t.published))
	for id := range t.store.published {
		seen[id] = struct{}{}
	}
	for id := range t.published {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *tx) HasSolved(account, quizID string) (bool, error) {
	ns := domain.AccountNamespace(account, 's')
	if ids, ok := t.solved[ns]; ok {
		if _, ok := ids[quizID]; ok {
			return true, nil
		}
	}
	if ids, ok := t.store.solved[ns]; ok {
		if _, ok := ids[quizID]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) MarkSolved(account, quizID string) error {
	ns := domain.AccountNamespace(account, 's')
	ids, ok := t.solved[ns]
	if !ok {
		ids = make(map[string]struct{})
		t.solved[ns] = ids
	}
	ids[quizID] = struct{}{}
	return nil
}

func (t *tx) RetriesLeft(account, quizID string) (int, bool, error) {
	ns := domain.AccountNamespace(account, 'r')
	if counters, ok := t.retries[ns]; ok {
		if n, ok := counters[quizID]; ok {
			return n, true, nil
		}
	}
	if counters, ok := t.store.retries[ns]; ok {
		if n, ok := counters[quizID]; ok {
			return n, true, nil
		}
	}
	return 0, false, nil
}

func (t *tx) SetRetriesLeft(account, quizID string, n int) error {
	ns := domain.AccountNamespace(account, 'r')
	counters, ok := t.retries[ns]
	if !ok {
		counters = make(map[string]int)
		t.retries[ns] = counters
	}
	counters[quizID] = n
	return nil
}

func copyQuiz(quiz domain.Quiz) domain.Quiz {
	if quiz.MaxPrize != nil {
		quiz.MaxPrize = new(big.Int).Set(quiz.MaxPrize)
	}
	return quiz
}
