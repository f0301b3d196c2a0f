package schedule

import "time"

// Clock supplies the current time. Injected so validation is testable
// without wall-clock dependence.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the shop's timezone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
