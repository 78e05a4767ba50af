package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// Per-kind sentinels. Handlers match on these with errors.Is to pick a
// status code without inspecting the concrete error value.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state transition")
	ErrStorage      = errors.New("storage failure")
)

// Error is a domain error carrying a taxonomy kind, a human-readable
// reason and, for eligibility interval failures, the date on which the
// donor becomes eligible again.
type Error struct {
	kind         error
	Reason       string
	NextEligible *time.Time
	cause        error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Retryable reports whether the caller may retry the whole operation.
// Only transient storage failures qualify.
func (e *Error) Retryable() bool {
	return e.kind == ErrStorage
}

func NewValidation(reason string) *Error {
	return &Error{kind: ErrValidation, Reason: reason}
}

// NewIneligible is a validation error with the computed next-eligible date
// attached so the caller can surface it without a second round trip.
func NewIneligible(reason string, nextEligible time.Time) *Error {
	return &Error{kind: ErrValidation, Reason: reason, NextEligible: &nextEligible}
}

func NewConflict(reason string) *Error {
	return &Error{kind: ErrConflict, Reason: reason}
}

func NewNotFound(reason string) *Error {
	return &Error{kind: ErrNotFound, Reason: reason}
}

func NewForbidden(reason string) *Error {
	return &Error{kind: ErrForbidden, Reason: reason}
}

func NewInvalidState(reason string) *Error {
	return &Error{kind: ErrInvalidState, Reason: reason}
}

func NewStorage(reason string, cause error) *Error {
	return &Error{kind: ErrStorage, Reason: reason, cause: cause}
}

// NextEligibleDate extracts the next-eligible date from err if it carries
// one.
func NextEligibleDateOf(err error) (time.Time, bool) {
	var de *Error
	if errors.As(err, &de) && de.NextEligible != nil {
		return *de.NextEligible, true
	}
	return time.Time{}, false
}
