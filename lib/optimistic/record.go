package optimistic

import (
	"time"
)

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status is the life cycle state of a record.
type Status int

const (
	StatusPending  Status = iota // Unconfirmed, waiting for the remote authority
	StatusSuccess                // Confirmed (or seeded from confirmed data)
	StatusError                  // Confirmation failed, kept for a retry
	StatusRollback               // Confirmation failed or timed out, change abandoned
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Record
// --------------------------------------------------------------------------

// Record is one entry in the record store.
type Record[T any] struct {
	ID           Token     // Opaque token minted by the store
	Data         T         // Current, possibly speculative, value
	IsOptimistic bool      // True while the value is unconfirmed
	Timestamp    time.Time // Creation time
	OriginalData *T        // Snapshot of the pre-mutation value (nil = none captured)
	Error        string    // Last failure message, only set in StatusError
	Status       Status
}

// clone returns a copy that does not share the OriginalData snapshot.
func (r Record[T]) clone() Record[T] {
	if r.OriginalData != nil {
		orig := *r.OriginalData
		r.OriginalData = &orig
	}
	return r
}

// --------------------------------------------------------------------------
// Partial updates
// --------------------------------------------------------------------------

// Partial is a typed partial update of T. Implementations merge only the fields
// they carry, e.g. a patch struct with pointer fields where nil means "unchanged".
type Partial[T any] interface {
	MergeInto(current T) (merged T)
}

// PatchFunc adapts a plain function to the Partial interface.
type PatchFunc[T any] func(current T) T

func (f PatchFunc[T]) MergeInto(current T) T {
	return f(current)
}

type replace[T any] struct {
	value T
}

func (r replace[T]) MergeInto(T) T {
	return r.value
}

// Replace returns a partial that replaces the whole value.
func Replace[T any](value T) Partial[T] {
	return replace[T]{value: value}
}
