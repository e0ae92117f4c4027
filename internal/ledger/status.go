package ledger

import (
	"fmt"

	"github.com/tinoosan/bizbooks/internal/errs"
)

// Status is the lifecycle state shared by journal entries and documents.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPosted   Status = "posted"
	StatusReversed Status = "reversed"
	StatusDeleted  Status = "deleted"
)

// AllowedTransitions lists every permitted move. Posted and reversed records
// are never edited in place; corrections go through a compensating entry.
func AllowedTransitions() map[Status][]Status {
	return map[Status][]Status{
		StatusDraft:    {StatusPosted, StatusDeleted},
		StatusPosted:   {StatusReversed},
		StatusReversed: {},
		StatusDeleted:  {},
	}
}

// CanTransition reports whether from -> to is permitted.
func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions()[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Editable reports whether a record in this state may still be changed.
func (s Status) Editable() bool { return s == StatusDraft }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := AllowedTransitions()[s]
	return ok
}

// TransitionError describes a rejected lifecycle move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

// Is makes every TransitionError match errs.ErrPolicy.
func (e *TransitionError) Is(target error) bool { return target == errs.ErrPolicy }

// Transition returns a *TransitionError when from -> to is not permitted.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
