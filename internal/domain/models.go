package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// QuizStatus is the publication state of a quiz. The only legal transition is
// Unpublished -> Published.
type QuizStatus string

const (
	StatusUnpublished QuizStatus = "unpublished"
	StatusPublished   QuizStatus = "published"
)

// Quiz is an owner-authored question with a hashed correct answer and a prize pool.
// Everything except Status is immutable after creation. Note that AnswerHash is a
// public value: short natural-language answers can be dictionary-attacked offline
// by anyone with read access to the store. That mirrors the original contract and
// is deliberately left as-is.
type Quiz struct {
	ID         string
	Status     QuizStatus
	Question   string
	AnswerHash string
	// MaxPrize is the full prize in the smallest token unit. Amounts fit 128 bits.
	MaxPrize *big.Int
}

// QuizSummary is the listing view of a published quiz. The answer hash is
// intentionally omitted; the prize is serialized as a decimal string since
// 128-bit amounts overflow JSON numbers.
type QuizSummary struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	MaxPrize string `json:"maxPrize"`
}

// DefaultRetries is the per-(account, quiz) budget of wrong answers.
const DefaultRetries = 3

// SubmitOutcome reports the result of a single answer submission.
type SubmitOutcome struct {
	Correct     bool     `json:"correct"`
	Prize       *big.Int `json:"-"`
	RetriesLeft int      `json:"retriesLeft"`
	Exhausted   bool     `json:"exhausted"`
	Message     string   `json:"message"`
}

// HashAnswer derives the digest stored and compared for answer texts.
func HashAnswer(answer string) string {
	sum := sha256.Sum256([]byte(answer))
	return hex.EncodeToString(sum[:])
}

// QuizID derives a content-hash identifier from the question text. Creating the
// same question twice therefore collides, which the registry rejects.
func QuizID(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])
}

// AccountNamespace derives the collision-resistant storage prefix isolating one
// account's sub-collection. tag distinguishes the collection kind ('s' solved
// set, 'r' retry map).
func AccountNamespace(account string, tag byte) string {
	sum := sha256.Sum256([]byte(account))
	return string(tag) + hex.EncodeToString(sum[:])
}

// Outcome message texts kept close to the original contract's replies.

func CorrectMessage(prize *big.Int) string {
	return fmt.Sprintf("Your answer is correct. You've got %s tokens", prize.String())
}

func WrongMessage(retriesLeft int) string {
	return fmt.Sprintf("The answer is not right. You have %d retries left", retriesLeft)
}

// ExhaustedMessage is the terminal reply for the final wrong answer. Unlike the
// original contract, the correct answer cannot be revealed here: only its hash
// is stored.
func ExhaustedMessage() string {
	return "The answer is not right, you are out of tries"
}
