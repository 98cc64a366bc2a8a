package app

import (
	"context"
	"math/big"

	"github.com/Arideno/quiz-time/internal/domain"
)

// Tx is a transactional view over the contract's durable state. Mutations made
// through a Tx become visible only if the enclosing Update callback returns nil;
// any error discards all of them, as if the call never ran.
type Tx interface {
	// GetQuiz returns the quiz record and whether it exists.
	GetQuiz(id string) (domain.Quiz, bool, error)
	// InsertQuiz stores a new record. The caller checks for duplicates first.
	InsertQuiz(quiz domain.Quiz) error
	// SetQuizStatus overwrites the status of an existing record.
	SetQuizStatus(id string, status domain.QuizStatus) error

	// AddPublished inserts an id into the published set. Entries are never removed.
	AddPublished(id string) error
	// PublishedIDs enumerates the published set in no particular order.
	PublishedIDs() ([]string, error)

	// HasSolved reports membership in the account's solved set.
	HasSolved(account, quizID string) (bool, error)
	// MarkSolved inserts into the account's solved set; idempotent.
	MarkSolved(account, quizID string) error
	// RetriesLeft returns the remaining retry counter and whether an entry exists.
	// Absence means the full budget remains.
	RetriesLeft(account, quizID string) (int, bool, error)
	// SetRetriesLeft persists the counter for the (account, quiz) pair.
	SetRetriesLeft(account, quizID string, n int) error
}

// Store abstracts how contract state is persisted (in-memory, Redis, Postgres).
type Store interface {
	// Update runs fn against a transaction and commits its staged mutations only
	// if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn read-only; mutations through the Tx are not committed.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Payer schedules a token transfer to an account. Settlement happens outside
// the contract; a scheduling failure must abort the whole call.
type Payer interface {
	Pay(ctx context.Context, account string, amount *big.Int) error
}

// QuizReader resolves quiz records by id. Used on the listing read path so a
// cache can sit in front of the store: published records are immutable, which
// makes them safe to cache indefinitely.
type QuizReader interface {
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
}
