package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store persists contract state in Postgres. Every Update runs inside one
// database transaction, which gives the per-call all-or-nothing commit the
// state machine requires.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Update(ctx context.Context, fn func(tx app.Tx) error) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&tx{ctx: ctx, q: dbTx}); err != nil {
		_ = dbTx.Rollback(ctx)
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx app.Tx) error) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()
	return fn(&tx{ctx: ctx, q: dbTx})
}

type tx struct {
	ctx context.Context
	q   pgx.Tx
}

func (t *tx) GetQuiz(id string) (domain.Quiz, bool, error) {
	var (
		status, question, answerHash, prizeText string
	)
	err := t.q.QueryRow(t.ctx,
		`SELECT status, question, answer_hash, max_prize::text FROM quizzes WHERE id=$1`, id,
	).Scan(&status, &question, &answerHash, &prizeText)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, false, nil
	}
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("load quiz %s: %w", id, err)
	}
	prize, ok := new(big.Int).SetString(prizeText, 10)
	if !ok {
		return domain.Quiz{}, false, fmt.Errorf("%w: quiz %s has malformed prize %q", domain.ErrCorruptState, id, prizeText)
	}
	return domain.Quiz{
		ID:         id,
		Status:     domain.QuizStatus(status),
		Question:   question,
		AnswerHash: answerHash,
		MaxPrize:   prize,
	}, true, nil
}

func (t *tx) InsertQuiz(quiz domain.Quiz) error {
	_, err := t.q.Exec(t.ctx,
		`INSERT INTO quizzes (id, status, question, answer_hash, max_prize) VALUES ($1, $2, $3, $4, $5::numeric)`,
		quiz.ID, string(quiz.Status), quiz.Question, quiz.AnswerHash, quiz.MaxPrize.String(),
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (t *tx) SetQuizStatus(id string, status domain.QuizStatus) error {
	tag, err := t.q.Exec(t.ctx, `UPDATE quizzes SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update quiz status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (t *tx) AddPublished(id string) error {
	_, err := t.q.Exec(t.ctx,
		`INSERT INTO published_quizzes (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("add published: %w", err)
	}
	return nil
}

func (t *tx) PublishedIDs() ([]string, error) {
	rows, err := t.q.Query(t.ctx, `SELECT id FROM published_quizzes`)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan published id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *tx) HasSolved(account, quizID string) (bool, error) {
	ns := domain.AccountNamespace(account, 's')
	var solved bool
	err := t.q.QueryRow(t.ctx,
		`SELECT EXISTS (SELECT 1 FROM solved_quizzes WHERE ns=$1 AND quiz_id=$2)`, ns, quizID,
	).Scan(&solved)
	if err != nil {
		return false, fmt.Errorf("check solved: %w", err)
	}
	return solved, nil
}

func (t *tx) MarkSolved(account, quizID string) error {
	ns := domain.AccountNamespace(account, 's')
	_, err := t.q.Exec(t.ctx,
		`INSERT INTO solved_quizzes (ns, quiz_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, ns, quizID)
	if err != nil {
		return fmt.Errorf("mark solved: %w", err)
	}
	return nil
}

func (t *tx) RetriesLeft(account, quizID string) (int, bool, error) {
	ns := domain.AccountNamespace(account, 'r')
	var n int
	err := t.q.QueryRow(t.ctx,
		`SELECT retries_left FROM retries WHERE ns=$1 AND quiz_id=$2`, ns, quizID,
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load retries: %w", err)
	}
	return n, true, nil
}

func (t *tx) SetRetriesLeft(account, quizID string, n int) error {
	ns := domain.AccountNamespace(account, 'r')
	_, err := t.q.Exec(t.ctx,
		`INSERT INTO retries (ns, quiz_id, retries_left) VALUES ($1, $2, $3)
		 ON CONFLICT (ns, quiz_id) DO UPDATE SET retries_left=EXCLUDED.retries_left`,
		ns, quizID, n)
	if err != nil {
		return fmt.Errorf("set retries: %w", err)
	}
	return nil
}
