// Package apperror classifies failures surfaced by the matchup and voting core.
// Transport code maps a Kind to a status code; Code is the stable machine string
// clients switch on.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindStateInvalid
	KindUnauthorized
	KindDependencyFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindStateInvalid:
		return "STATE_INVALID"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindDependencyFailure:
		return "DEPENDENCY_FAILURE"
	default:
		return "UNKNOWN"
	}
}

const (
	CodeVoteInvalid       = "VOTE_INVALID"
	CodeMatchupNotFound   = "MATCHUP_NOT_FOUND"
	CodeMatchupNotActive  = "MATCHUP_NOT_ACTIVE"
	CodeMatchupNotStarted = "MATCHUP_NOT_STARTED"
	CodeMatchupEnded      = "MATCHUP_ENDED"
	CodeVoteAlreadyCast   = "VOTE_ALREADY_CAST"
	CodeMissingField      = "MISSING_FIELD"
	CodeNotFound          = "NOT_FOUND"
	CodeEntryNotFound     = "ENTRY_NOT_FOUND"
	CodeEntryInvalid      = "ENTRY_INVALID"
	CodeSameEntry         = "SAME_ENTRY"
	CodeInvalidTime       = "INVALID_TIME"
	CodeInvalidSchedule   = "INVALID_SCHEDULE"
	CodeNoFields          = "NO_FIELDS"
	CodeDuplicateActive   = "DUPLICATE_ACTIVE"
	CodeStoreFailure      = "STORE_FAILURE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidBody       = "INVALID_BODY"
)

// Error is a classified failure. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, format string, args ...any) *Error {
	return New(KindValidation, code, fmt.Sprintf(format, args...))
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, fmt.Sprintf(format, args...))
}

func Conflict(code, format string, args ...any) *Error {
	return New(KindConflict, code, fmt.Sprintf(format, args...))
}

func StateInvalid(code, format string, args ...any) *Error {
	return New(KindStateInvalid, code, fmt.Sprintf(format, args...))
}

// Dependency wraps a failed store call. The message stays generic so store
// details never leak to callers.
func Dependency(op string, err error) *Error {
	return &Error{
		Kind:    KindDependencyFailure,
		Code:    CodeStoreFailure,
		Message: op + " failed",
		Err:     err,
	}
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the Kind of err. Unclassified non-nil errors are dependency failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindDependencyFailure
}

// CodeOf reports the Code of err, or CodeStoreFailure for unclassified errors.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeStoreFailure
}

// Retryable reports whether a caller may retry the operation. Only dependency
// failures qualify; every other kind is deterministic.
func Retryable(err error) bool {
	return KindOf(err) == KindDependencyFailure
}
