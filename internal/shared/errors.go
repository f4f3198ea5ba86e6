package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input on a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConflictError reports a uniqueness violation or referential block.
type ConflictError struct {
	Entity string
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: %s", e.Entity, e.Reason)
}

// InvalidTransitionError names the state that made a transition illegal.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// PreconditionError reports an operation blocked by outstanding work.
type PreconditionError struct {
	Reason       string
	PendingCount int64
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s (%d pending)", e.Reason, e.PendingCount)
}
