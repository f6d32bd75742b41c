// Package errs defines the error taxonomy shared by the ledger components.
//
// Every domain error carries a Kind that tells the caller what to do with it:
// fix the input (Validation), refetch and retry (StateConflict), or give up
// (InvariantViolation, which always indicates corrupted state).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStateConflict
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is a domain error. Two errors match under errors.Is when their codes
// are equal, so sentinels keep matching after WithDetail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of e with a formatted detail appended to the message.
func (e *Error) WithDetail(format string, args ...any) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
	}
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation returns a caller-correctable error with a free-form message.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, "invalid_argument", fmt.Sprintf(format, args...))
}

// NotFound returns an error for a missing entity.
func NotFound(entity, id string) *Error {
	return newError(KindNotFound, entity+"_not_found", fmt.Sprintf("%s not found: %s", entity, id))
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Validation errors.
var (
	ErrAmountMismatch = newError(KindValidation, "amount_mismatch", "amount does not match the group contribution")
	ErrNotContributor = newError(KindValidation, "not_contributor", "member is not a contributor of this cycle")
	ErrGroupInactive  = newError(KindValidation, "group_inactive", "group is not active")
)

// State conflicts: the caller's view is stale and should be refetched.
var (
	ErrDuplicateContribution   = newError(KindStateConflict, "duplicate_contribution", "member already has a contribution for this cycle")
	ErrDuplicatePayout         = newError(KindStateConflict, "duplicate_payout", "cycle already has a payout")
	ErrIncompleteContributions = newError(KindStateConflict, "incomplete_contributions", "cycle contributions are not fully collected")
	ErrNoActiveMembers         = newError(KindStateConflict, "no_active_members", "group has no active members")
	ErrCycleInProgress         = newError(KindStateConflict, "cycle_in_progress", "group has an open cycle")
	ErrCycleClosed             = newError(KindStateConflict, "cycle_closed", "cycle is already completed")
	ErrInvalidTransition       = newError(KindStateConflict, "invalid_transition", "transaction status cannot change")
	ErrPayoutOutstanding       = newError(KindStateConflict, "payout_outstanding", "a recipient of the rotation has no completed payout")
)

// Invariant violations: never retried.
var (
	ErrLastAdmin          = newError(KindInvariantViolation, "last_admin", "group must keep at least one admin")
	ErrDuplicateRecipient = newError(KindInvariantViolation, "duplicate_recipient", "member already received a payout in this rotation")
	ErrCycleSequence      = newError(KindInvariantViolation, "cycle_sequence", "cycle numbers are not contiguous")
)
