package domain

import "errors"

var (
	// ErrUnauthorized is returned when a non-owner calls an owner-only operation.
	ErrUnauthorized = errors.New("only the owner may call this operation")
	// ErrQuizNotFound indicates an unknown quiz id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrDuplicateQuiz indicates an id collision on creation.
	ErrDuplicateQuiz = errors.New("quiz with the same id already exists")
	// ErrQuizNotPublished is returned when answering a quiz that is not visible yet.
	ErrQuizNotPublished = errors.New("quiz is not published")
	// ErrAlreadySolved is returned once an account has solved a quiz; terminal.
	ErrAlreadySolved = errors.New("quiz already solved by this account")
	// ErrOutOfRetries is returned when the retry budget is spent; terminal.
	ErrOutOfRetries = errors.New("out of retries for this quiz")
	// ErrCorruptState signals an invariant violation, e.g. a published id missing
	// from the registry. Not user-recoverable.
	ErrCorruptState = errors.New("corrupt quiz state")
)
