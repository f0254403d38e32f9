// internal/game/errors.go
//
// Move rejection taxonomy.
//
// Every rejected move is a *MoveError whose Kind says how the transport should
// react:
//   - invalid_input, constraint_violation, not_found, lookup_failed,
//     already_used: recoverable; prompt the player again, session unchanged.
//   - no_valid_word: the machine could not answer; the human wins the round.
//
// Callers match kinds with errors.Is against the exported sentinels.

package game

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected move.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindConstraintViolation Kind = "constraint_violation"
	KindNotFound            Kind = "not_found"
	KindLookupFailed        Kind = "lookup_failed"
	KindAlreadyUsed         Kind = "already_used"
	KindNoValidWord         Kind = "no_valid_word"
)

// MoveError describes why a word was rejected or could not be produced.
type MoveError struct {
	Kind     Kind
	Word     string
	Msg      string
	Attempts int   // search attempts made; set for KindNoValidWord
	Err      error // underlying cause, if any
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput        = &MoveError{Kind: KindInvalidInput}
	ErrConstraintViolation = &MoveError{Kind: KindConstraintViolation}
	ErrNotFound            = &MoveError{Kind: KindNotFound}
	ErrLookupFailed        = &MoveError{Kind: KindLookupFailed}
	ErrAlreadyUsed         = &MoveError{Kind: KindAlreadyUsed}
	ErrNoValidWord         = &MoveError{Kind: KindNoValidWord}
)

var (
	// ErrFinished is returned for moves on a finished session.
	ErrFinished = errors.New("game: session finished")
	// ErrUnknownVariant is returned by Start for an unregistered variant.
	ErrUnknownVariant = errors.New("game: unknown variant")
	// ErrUnavailable is returned by Start when a variant's collaborator is missing.
	ErrUnavailable = errors.New("game: variant unavailable")
)

func (e *MoveError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Word != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Word)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MoveError) Unwrap() error { return e.Err }

// Is matches any MoveError of the same Kind.
func (e *MoveError) Is(target error) bool {
	t, ok := target.(*MoveError)
	return ok && t.Kind == e.Kind
}

func reject(kind Kind, word, format string, args ...any) *MoveError {
	return &MoveError{Kind: kind, Word: word, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err is not a MoveError.
func KindOf(err error) Kind {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}
