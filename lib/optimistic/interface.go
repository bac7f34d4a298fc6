package optimistic

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IRecordStore holds an ordered collection of optimistic records and exposes the
// primitive mutators the coordinators are built on. It has no knowledge of networking.
//
// All mutators are safe no-ops for unknown tokens: a confirmation may resolve after its
// record was already removed or rolled back by another path.
type IRecordStore[T any] interface {

	// --------------------------------------------------------------------------
	// Primitive Mutators
	// --------------------------------------------------------------------------

	// Add inserts a pending, optimistic record and returns its freshly minted token.
	// If auto-rollback is configured a rollback is scheduled for the record.
	Add(value T) (id Token)
	// Update shallow-merges partial into the record's data.
	// Status, IsOptimistic and OriginalData are not touched.
	Update(id Token, partial Partial[T])
	// Remove deletes the record outright and cancels its pending auto-rollback.
	Remove(id Token)
	// Rollback marks the record as rolled back (not optimistic, StatusRollback), cancels its
	// pending auto-rollback and reports its current data to the OnRollback callback.
	// The record stays in the store.
	Rollback(id Token)
	// RollbackAll applies Rollback to every currently optimistic record and clears all timers.
	RollbackAll()
	// ClearErrors resets every record in StatusError to StatusSuccess (not optimistic) and
	// clears its error. Calling it again has no further effect.
	ClearErrors()

	// --------------------------------------------------------------------------
	// State Machine Helpers (used by the coordinators)
	// --------------------------------------------------------------------------

	// Seed inserts already confirmed records (StatusSuccess, not optimistic, no timer).
	Seed(values ...T) (ids []Token)
	// Checkpoint captures the current data as OriginalData unless a snapshot already exists.
	// It returns whether the record holds a snapshot afterwards.
	Checkpoint(id Token) (ok bool)
	// Restore writes OriginalData back into the data and clears the snapshot.
	// It returns false if the record is unknown or holds no snapshot.
	Restore(id Token) (ok bool)
	// Confirm marks the record as accepted by the remote authority (StatusSuccess, not optimistic).
	Confirm(id Token)
	// MarkPending marks the record as in flight again (StatusPending, optimistic).
	MarkPending(id Token)
	// MarkError marks the record as failed (StatusError) and keeps it optimistic so it can be retried.
	MarkError(id Token, err error)
	// Reinsert puts a removed record back under its original token at the given position.
	// The position is clamped to the current length. A token that is still present is left alone.
	Reinsert(rec Record[T], index int)

	// --------------------------------------------------------------------------
	// Read Model
	// --------------------------------------------------------------------------

	// IsOptimistic reports whether the record exists and is unconfirmed.
	IsOptimistic(id Token) (ok bool)
	// Get returns a copy of the record.
	Get(id Token) (rec Record[T], ok bool)
	// IndexOf returns the insertion position of the record or -1.
	IndexOf(id Token) (index int)
	// Data returns the data of every record in insertion order.
	Data() (data []T)
	// Records returns a copy of every record in insertion order.
	Records() (records []Record[T])
	// Len returns the number of records.
	Len() (n int)
	// Subscribe registers fn to be called with the new read model after every change.
	// Calls never overlap. Under concurrent changes an intermediate snapshot may be
	// skipped, but the last call always carries the current read model. fn may change
	// the store; the resulting snapshot is delivered after fn returns.
	// The returned function removes the subscription.
	Subscribe(fn func(data []T)) (cancel func())

	// Close tears down the auto-rollback scheduler. Pending rollbacks are dropped.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code (of type RetCode), a message and the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The cause, e.g. the error returned by a confirmation call
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("optimistic (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("optimistic (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause so errors.Is and errors.As see through the wrapper.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, &Error{Code: RetCValidation})
// works as a category check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code and message wrapping cause.
func WrapError(code RetCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

// CodeOf returns the RetCode of err if it is (or wraps) an *Error, RetCInternalError otherwise.
// A nil error maps to RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Operation succeeded.
	RetCInternalError                // 1: Operation failed due to an internal error.
	RetCConfirmFailed                // 2: The confirmation call was rejected by the remote authority.
	RetCUnknownRecord                // 3: The token does not map to a record.
	RetCInvalidState                 // 4: The record is not in the state the operation requires.
	RetCValidation                   // 5: The input was rejected before touching the store.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCConfirmFailed:
		return "ConfirmFailed"
	case RetCUnknownRecord:
		return "UnknownRecord"
	case RetCInvalidState:
		return "InvalidState"
	case RetCValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}
