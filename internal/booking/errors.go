// Package booking implements the appointment scheduling core: duplicate
// detection, slot availability, blackout windows, the atomic booking
// transaction and the archival sweeper.
package booking

import (
	"fmt"

	"barberdesk/internal/models"
)

// Conflict kinds carried by ConflictError.
const (
	ConflictSameDate     = "same_date"
	ConflictRecent       = "recent_booking"
	ConflictSlotTaken    = "slot_taken"
	ConflictWindowExists = "window_exists"
)

// ValidationError reports malformed or missing input. Always recoverable
// client-side; never worth a retry.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a duplicate booking, an occupied slot or a
// colliding blackout window. Recent-booking duplicates may be overridden
// by explicit caller intent; same-date duplicates may not.
type ConflictError struct {
	Kind        string
	Msg         string
	Overridable bool
	Existing    *models.Booking
}

func (e *ConflictError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("conflict: %s", e.Kind)
}

// NotFoundError reports an unknown booking or blackout.
type NotFoundError struct {
	Resource string
	ID       int64
	Ref      string
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s not found", e.Resource, e.Ref)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// TransitionError reports an illegal booking status transition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
