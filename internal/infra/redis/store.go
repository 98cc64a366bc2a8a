package redis

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed implementation of app.Store.
// Key layout:
//
//	quiz:{id}        HASH  status, question, answer_hash, max_prize
//	quiz:published   SET   quiz ids
//	acct:{ns}        SET   solved quiz ids   (ns = 's' + sha256(account))
//	acct:{ns}        HASH  quizID -> retries (ns = 'r' + sha256(account))
//
// Reads go straight to Redis; writes are staged into a TxPipeline that only
// executes when the Update callback succeeds, so a failed call leaves no keys
// behind. Like the original contract's host, this assumes calls for the same
// (account, quiz) pair do not race; the staged-write scheme is not a substitute
// for optimistic locking under concurrent submissions.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Update(ctx context.Context, fn func(tx app.Tx) error) error {
	t := newTx(ctx, s.client)
	if err := fn(t); err != nil {
		return err
	}
	if _, err := t.pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit redis transaction: %w", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx app.Tx) error) error {
	// The staged pipeline is simply never executed.
	return fn(newTx(ctx, s.client))
}

type tx struct {
	ctx    context.Context
	client *redis.Client
	pipe   redis.Pipeliner

	// read-own-writes overlay for the few paths that need it
	stagedQuizzes   map[string]domain.Quiz
	stagedPublished map[string]struct{}
}

func newTx(ctx context.Context, client *redis.Client) *tx {
	return &tx{
		ctx:             ctx,
		client:          client,
		pipe:            client.TxPipeline(),
		stagedQuizzes:   make(map[string]domain.Quiz),
		stagedPublished: make(map[string]struct{}),
	}
}

func quizKey(id string) string        { return "quiz:" + id }
func accountKey(ns string) string     { return "acct:" + ns }
func solvedKey(account string) string { return accountKey(domain.AccountNamespace(account, 's')) }
func retryKey(account string) string  { return accountKey(domain.AccountNamespace(account, 'r')) }

const publishedKey = "quiz:published"

func (t *tx) GetQuiz(id string) (domain.Quiz, bool, error) {
	if quiz, ok := t.stagedQuizzes[id]; ok {
		return quiz, true, nil
	}
	fields, err := t.client.HGetAll(t.ctx, quizKey(id)).Result()
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("load quiz %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Quiz{}, false, nil
	}
	prize, ok := new(big.Int).SetString(fields["max_prize"], 10)
	if !ok {
		return domain.Quiz{}, false, fmt.Errorf("%w: quiz %s has malformed prize %q", domain.ErrCorruptState, id, fields["max_prize"])
	}
	return domain.Quiz{
		ID:         id,
		Status:     domain.QuizStatus(fields["status"]),
		Question:   fields["question"],
		AnswerHash: fields["answer_hash"],
		MaxPrize:   prize,
	}, true, nil
}

func (t *tx) InsertQuiz(quiz domain.Quiz) error {
	t.pipe.HSet(t.ctx, quizKey(quiz.ID),
		"status", string(quiz.Status),
		"question", quiz.Question,
		"answer_hash", quiz.AnswerHash,
		"max_prize", quiz.MaxPrize.String(),
	)
	t.stagedQuizzes[quiz.ID] = quiz
	return nil
}

func (t *tx) SetQuizStatus(id string, status domain.QuizStatus) error {
	t.pipe.HSet(t.ctx, quizKey(id), "status", string(status))
	if quiz, ok := t.stagedQuizzes[id]; ok {
		quiz.Status = status
		t.stagedQuizzes[id] = quiz
	}
	return nil
}

func (t *tx) AddPublished(id string) error {
	t.pipe.SAdd(t.ctx, publishedKey, id)
	t.stagedPublished[id] = struct{}{}
	return nil
}

func (t *tx) PublishedIDs() ([]string, error) {
	ids, err := t.client.SMembers(t.ctx, publishedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for id := range t.stagedPublished {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *tx) HasSolved(account, quizID string) (bool, error) {
	solved, err := t.client.SIsMember(t.ctx, solvedKey(account), quizID).Result()
	if err != nil {
		return false, fmt.Errorf("check solved: %w", err)
	}
	return solved, nil
}

func (t *tx) MarkSolved(account, quizID string) error {
	t.pipe.SAdd(t.ctx, solvedKey(account), quizID)
	return nil
}

func (t *tx) RetriesLeft(account, quizID string) (int, bool, error) {
	n, err := t.client.HGet(t.ctx, retryKey(account), quizID).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load retries: %w", err)
	}
	return n, true, nil
}

func (t *tx) SetRetriesLeft(account, quizID string, n int) error {
	t.pipe.HSet(t.ctx, retryKey(account), quizID, n)
	return nil
}
