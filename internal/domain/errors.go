package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced object or document is absent. Never
	// retried; surfaced to the caller.
	ErrNotFound = errors.New("docdb: not found")
	// ErrConflict means a conditional update of the root pointer lost a race.
	// Retried internally with backoff.
	ErrConflict = errors.New("docdb: metadata conflict")
	// ErrRetriesExhausted means the bounded retry budget ran out while the
	// root pointer kept changing underneath.
	ErrRetriesExhausted = errors.New("docdb: retries exhausted")
	// ErrStopped means the store has been shut down.
	ErrStopped = errors.New("docdb: store stopped")
)

// ApplicationConflictError means a pending write assumed a prior revision
// that is stale relative to the index. Not retried: retrying a stale-logic
// mutation silently would violate caller intent.
type ApplicationConflictError struct {
	DocumentID      string
	AssumedRevision string
	CurrentRevision string
}

func (e *ApplicationConflictError) Error() string {
	return fmt.Sprintf("docdb: conflict on %q: write assumed revision %q but current is %q",
		e.DocumentID, e.AssumedRevision, e.CurrentRevision)
}

// CorruptObjectError means a remote object's content does not match its
// expected schema. Treated as NotFound for the affected body.
type CorruptObjectError struct {
	ObjectID string
	Err      error
}

func (e *CorruptObjectError) Error() string {
	return fmt.Sprintf("docdb: corrupt object %q: %v", e.ObjectID, e.Err)
}

func (e *CorruptObjectError) Unwrap() error { return e.Err }
