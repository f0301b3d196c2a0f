// Package schedule enforces the shop's business hours and computes
// suggested alternative slots for rejected booking times.
package schedule

import (
	"fmt"

	"barberdesk/internal/timeslot"
)

// Rejection reasons for a requested booking time.
const (
	ReasonPast          = "past"
	ReasonOutsideHours  = "outside_hours"
	ReasonSameDayPassed = "same_day_passed"
	ReasonNearClosing   = "near_closing"
)

// Hours describes the shop's daily opening window.
type Hours struct {
	Open  timeslot.TimeOfDay // first bookable slot
	Close timeslot.TimeOfDay // last bookable slot
	// CutoffMin: once the current time is within this many minutes of
	// Close, no further same-day bookings are accepted at all.
	CutoffMin int
}

// DefaultHours is the standard 09:00-19:30 schedule with the 60-minute
// end-of-day cutoff.
func DefaultHours() Hours {
	return Hours{
		Open:      timeslot.TimeOfDay(9 * 60),
		Close:     timeslot.TimeOfDay(19*60 + 30),
		CutoffMin: 60,
	}
}

// Suggestion is an alternative slot offered alongside a rejection.
type Suggestion struct {
	Date    timeslot.Date      `json:"date"`
	Time    timeslot.TimeOfDay `json:"time"`
	Display string             `json:"display"`
}

func suggest(date timeslot.Date, tod timeslot.TimeOfDay) *Suggestion {
	return &Suggestion{Date: date, Time: tod, Display: timeslot.DisplayAt(date, tod)}
}

// TimeWindowError is a business-hours rejection, optionally carrying a
// suggested alternative slot.
type TimeWindowError struct {
	Reason     string
	Suggestion *Suggestion
}

func (e *TimeWindowError) Error() string {
	if e.Suggestion != nil {
		return fmt.Sprintf("time window rejected (%s), try %s", e.Reason, e.Suggestion.Display)
	}
	return fmt.Sprintf("time window rejected (%s)", e.Reason)
}

// Validator checks requested booking times against business hours. Pure
// given its clock; no I/O.
type Validator struct {
	hours Hours
	clock Clock
}

// NewValidator creates a validator with the given hours and clock.
func NewValidator(hours Hours, clock Clock) *Validator {
	return &Validator{hours: hours, clock: clock}
}

// Validate returns nil when (date, tod) is bookable, or a *TimeWindowError
// describing why it is not.
//
// Same-day requests get the smart treatment: an already-passed time is
// rejected with the next free 30-minute boundary as a suggestion, and once
// the clock is within the end-of-day cutoff every same-day request is
// rejected with a tomorrow-at-opening suggestion regardless of the slot
// asked for.
func (v *Validator) Validate(date timeslot.Date, tod timeslot.TimeOfDay) error {
	if tod < v.hours.Open || tod > v.hours.Close {
		return &TimeWindowError{Reason: ReasonOutsideHours}
	}

	now := v.clock.Now()
	today := timeslot.DateOf(now)
	nowTod := timeslot.TimeOfDayOf(now)

	if date.Before(today) {
		return &TimeWindowError{Reason: ReasonPast}
	}
	if !date.Equal(today) {
		return nil
	}

	// End-of-day cutoff dominates: within the last CutoffMin minutes
	// before closing no same-day slot is accepted, not even a future one.
	if int(v.hours.Close-nowTod) <= v.hours.CutoffMin {
		return &TimeWindowError{
			Reason:     ReasonNearClosing,
			Suggestion: suggest(today.AddDays(1), v.hours.Open),
		}
	}

	if tod <= nowTod {
		nextSlot := (nowTod + timeslot.SlotMinutes).CeilToSlot()
		if nextSlot <= v.hours.Close-timeslot.SlotMinutes {
			return &TimeWindowError{
				Reason:     ReasonSameDayPassed,
				Suggestion: suggest(today, nextSlot),
			}
		}
		return &TimeWindowError{
			Reason:     ReasonSameDayPassed,
			Suggestion: suggest(today.AddDays(1), v.hours.Open),
		}
	}

	return nil
}

// Hours returns the configured opening window.
func (v *Validator) Hours() Hours { return v.hours }
