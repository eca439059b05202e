package game

import (
	"errors"
	"fmt"
)

// Code classifies engine errors for callers.
type Code string

const (
	CodeNotFound                Code = "not_found"
	CodeInvalidConfiguration    Code = "invalid_configuration"
	CodeOutOfRangeGuess         Code = "out_of_range_guess"
	CodeOutOfRangeHits          Code = "out_of_range_hits"
	CodeForcedConflictViolation Code = "forced_conflict_violation"
	CodeIncompleteGuesses       Code = "incomplete_guesses"
	CodeIncompleteResults       Code = "incomplete_results"
	CodeInvalidStateTransition  Code = "invalid_state_transition"
	CodeAlreadyExists           Code = "already_exists"
	CodeInUse                   Code = "in_use"
	CodeInvalidArgument         Code = "invalid_argument"
)

// Error is the engine error type. Every error is recoverable: the engine
// leaves stored state untouched when it returns one.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidConfiguration   = &Error{Code: CodeInvalidConfiguration, Message: "invalid configuration"}
	ErrOutOfRangeGuess        = &Error{Code: CodeOutOfRangeGuess, Message: "guess out of range"}
	ErrOutOfRangeHits         = &Error{Code: CodeOutOfRangeHits, Message: "hits out of range"}
	ErrForcedConflict         = &Error{Code: CodeForcedConflictViolation, Message: "forced conflict violation"}
	ErrIncompleteGuesses      = &Error{Code: CodeIncompleteGuesses, Message: "incomplete guesses"}
	ErrIncompleteResults      = &Error{Code: CodeIncompleteResults, Message: "incomplete results"}
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition, Message: "invalid state transition"}
	ErrAlreadyExists          = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrInUse                  = &Error{Code: CodeInUse, Message: "in use"}
	ErrInvalidArgument        = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error carrying cause. The message is taken from cause.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: cause.Error(), Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
