// Package timeslot holds the calendar arithmetic shared by the scheduling
// components: calendar dates, minute-resolution times of day and the
// 30-minute slot grid bookings are aligned to.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotMinutes is the booking granularity. Every booking and blackout
// marker sits on a multiple of this.
const SlotMinutes = 30

// Date is a calendar date with no time component and no timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf extracts the calendar date from t in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// At combines the date with a time of day in the given location.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour(), tod.Minute(), 0, 0, loc)
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return DateOf(t)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Equal reports whether two dates name the same day.
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// TimeOfDay is a time of day expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a time in HH:MM format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayOf extracts the minute-resolution time of day from t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Display formats the time in 12-hour clock for user-facing messages.
func (t TimeOfDay) Display() string {
	hour := t.Hour()
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), suffix)
}

// FloorToSlot rounds down to the nearest slot boundary.
func (t TimeOfDay) FloorToSlot() TimeOfDay {
	return t - t%SlotMinutes
}

// CeilToSlot rounds up to the nearest slot boundary.
func (t TimeOfDay) CeilToSlot() TimeOfDay {
	if t%SlotMinutes == 0 {
		return t
	}
	return t.FloorToSlot() + SlotMinutes
}

// OnSlotBoundary reports whether the time sits exactly on the slot grid.
func (t TimeOfDay) OnSlotBoundary() bool { return t%SlotMinutes == 0 }

// SlotsCovering expands a window of durationMin minutes starting at start
// into every slot marker it overlaps. The start is floored and the end
// ceiled to the grid, so a partial overlap still marks the whole slot.
func SlotsCovering(start TimeOfDay, durationMin int) []TimeOfDay {
	if durationMin <= 0 {
		return nil
	}
	first := start.FloorToSlot()
	last := (start + TimeOfDay(durationMin)).CeilToSlot()
	slots := make([]TimeOfDay, 0, (last-first)/SlotMinutes)
	for cursor := first; cursor < last; cursor += SlotMinutes {
		slots = append(slots, cursor)
	}
	return slots
}

// DisplayAt formats a date and time for user-facing suggestion messages.
func DisplayAt(d Date, t TimeOfDay) string {
	at := d.At(t, time.UTC)
	return fmt.Sprintf("%s at %s", at.Format("Monday, Jan 2 2006"), t.Display())
}
