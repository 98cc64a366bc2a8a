package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/Arideno/quiz-time/internal/domain"
)

// Service contains the contract's use cases: quiz authoring and publication
// (owner only) and answer evaluation with prize payout.
type Service struct {
	owner  string
	store  Store
	payer  Payer
	reader QuizReader
	announcer
}

// NewService constructs the contract with empty collaborator-backed state.
// reader may be nil, in which case listing resolves quizzes directly from the
// store.
func NewService(owner string, store Store, payer Payer, reader QuizReader) *Service {
	s := &Service{owner: owner, store: store, payer: payer, reader: reader}
	if s.reader == nil {
		s.reader = storeReader{store}
	}
	s.announcer.init()
	return s
}

// Owner returns the account authorized for quiz authoring.
func (s *Service) Owner() string { return s.owner }

// requireOwner is the single authorization guard for owner-only mutations.
func (s *Service) requireOwner(caller string) error {
	if caller != s.owner {
		return domain.ErrUnauthorized
	}
	return nil
}

// CreateQuiz stores a new quiz under a content-derived id and optionally
// publishes it in the same call. Only the owner may create quizzes.
func (s *Service) CreateQuiz(ctx context.Context, caller, question, answerHash string, maxPrize *big.Int, publish bool) (string, error) {
	if err := s.requireOwner(caller); err != nil {
		return "", err
	}
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	if answerHash == "" {
		return "", fmt.Errorf("answer hash must not be empty")
	}
	if maxPrize == nil || maxPrize.Sign() < 0 {
		return "", fmt.Errorf("max prize must be a non-negative amount")
	}
	if maxPrize.BitLen() > 128 {
		return "", fmt.Errorf("max prize exceeds the 128-bit amount range")
	}

	id := domain.QuizID(question)
	status := domain.StatusUnpublished
	if publish {
		status = domain.StatusPublished
	}
	quiz := domain.Quiz{
		ID:         id,
		Status:     status,
		Question:   question,
		AnswerHash: answerHash,
		MaxPrize:   new(big.Int).Set(maxPrize),
	}

	err := s.store.Update(ctx, func(tx Tx) error {
		if _, exists, err := tx.GetQuiz(id); err != nil {
			return err
		} else if exists {
			return domain.ErrDuplicateQuiz
		}
		if err := tx.InsertQuiz(quiz); err != nil {
			return err
		}
		if publish {
			return tx.AddPublished(id)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if publish {
		s.announce(summaryOf(quiz))
	}
	return id, nil
}

// PublishQuiz transitions a quiz to Published. Calling it on an already
// published quiz is a no-op, not an error.
func (s *Service) PublishQuiz(ctx context.Context, caller, quizID string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	var published domain.Quiz
	transitioned := false
	err := s.store.Update(ctx, func(tx Tx) error {
		transitioned = false
		quiz, exists, err := tx.GetQuiz(quizID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		if quiz.Status == domain.StatusPublished {
			return nil
		}
		if err := tx.SetQuizStatus(quizID, domain.StatusPublished); err != nil {
			return err
		}
		if err := tx.AddPublished(quizID); err != nil {
			return err
		}
		quiz.Status = domain.StatusPublished
		published = quiz
		transitioned = true
		return nil
	})
	if err != nil {
		return err
	}
	if transitioned {
		s.announce(summaryOf(published))
	}
	return nil
}

// QuizStatus returns the status of a quiz, or ok=false if the id is unknown.
// Requires no authorization: publication state is not sensitive.
func (s *Service) QuizStatus(ctx context.Context, quizID string) (domain.QuizStatus, bool, error) {
	var status domain.QuizStatus
	found := false
	err := s.store.View(ctx, func(tx Tx) error {
		quiz, exists, err := tx.GetQuiz(quizID)
		if err != nil {
			return err
		}
		if exists {
			status = quiz.Status
			found = true
		}
		return nil
	})
	return status, found, err
}

// ListPublished resolves every id in the published set against the registry.
// An id that cannot be resolved means the store broke an invariant; that
// surfaces as ErrCorruptState rather than being skipped.
func (s *Service) ListPublished(ctx context.Context) ([]domain.QuizSummary, error) {
	var ids []string
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.PublishedIDs()
		return err
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.QuizSummary, 0, len(ids))
	for _, id := range ids {
		quiz, err := s.reader.GetQuiz(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrQuizNotFound) {
				return nil, fmt.Errorf("%w: published quiz %s missing from registry", domain.ErrCorruptState, id)
			}
			return nil, err
		}
		summaries = append(summaries, summaryOf(quiz))
	}
	return summaries, nil
}

// SubmitAnswer evaluates an answer on behalf of caller and pays out on success.
// Prize = MaxPrize / (4 - retriesLeft-before-this-attempt): solving first try
// pays the full amount, each prior wrong attempt halves or thirds it. All
// mutations and the payment request commit atomically or not at all.
func (s *Service) SubmitAnswer(ctx context.Context, caller, quizID, answer string) (domain.SubmitOutcome, error) {
	var outcome domain.SubmitOutcome
	err := s.store.Update(ctx, func(tx Tx) error {
		outcome = domain.SubmitOutcome{}
		quiz, exists, err := tx.GetQuiz(quizID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		if quiz.Status != domain.StatusPublished {
			return domain.ErrQuizNotPublished
		}

		solved, err := tx.HasSolved(caller, quizID)
		if err != nil {
			return err
		}
		if solved {
			return domain.ErrAlreadySolved
		}

		retries, ok, err := tx.RetriesLeft(caller, quizID)
		if err != nil {
			return err
		}
		if !ok {
			retries = domain.DefaultRetries
		}
		if retries == 0 {
			return domain.ErrOutOfRetries
		}

		digest := domain.HashAnswer(answer)
		if subtle.ConstantTimeCompare([]byte(digest), []byte(quiz.AnswerHash)) == 1 {
			if err := tx.MarkSolved(caller, quizID); err != nil {
				return err
			}
			// retries is 1..3 here, so the divisor is never zero.
			divisor := big.NewInt(int64(4 - retries))
			prize := new(big.Int).Quo(quiz.MaxPrize, divisor)
			if err := s.payer.Pay(ctx, caller, prize); err != nil {
				return fmt.Errorf("schedule payout: %w", err)
			}
			outcome = domain.SubmitOutcome{
				Correct:     true,
				Prize:       prize,
				RetriesLeft: retries,
				Message:     domain.CorrectMessage(prize),
			}
			return nil
		}

		retries--
		if err := tx.SetRetriesLeft(caller, quizID, retries); err != nil {
			return err
		}
		outcome = domain.SubmitOutcome{
			RetriesLeft: retries,
			Exhausted:   retries == 0,
		}
		if retries == 0 {
			outcome.Message = domain.ExhaustedMessage()
		} else {
			outcome.Message = domain.WrongMessage(retries)
		}
		return nil
	})
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	return outcome, nil
}

func summaryOf(quiz domain.Quiz) domain.QuizSummary {
	return domain.QuizSummary{
		ID:       quiz.ID,
		Question: quiz.Question,
		MaxPrize: quiz.MaxPrize.String(),
	}
}

// storeReader resolves quizzes straight from the store when no cache is wired.
type storeReader struct {
	store Store
}

func (r storeReader) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := r.store.View(ctx, func(tx Tx) error {
		q, exists, err := tx.GetQuiz(id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		quiz = q
		return nil
	})
	return quiz, err
}
