package booking

import (
	"context"
	"fmt"

	"barberdesk/internal/timeslot"
)

// OccupancyStore answers slot occupancy questions.
type OccupancyStore interface {
	CountActiveAt(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (int, error)
	BarberBookedAt(ctx context.Context, barberID int64, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error)
	CountAvailableBarbers(ctx context.Context) (int, error)
}

// AvailabilityChecker determines whether a slot is free, consulting
// existing bookings and the blackout registry.
//
// Occupancy policy: a barber-specific request is blocked by that barber's
// own booking or by the shop running out of chairs; a barber-agnostic
// request is blocked once active bookings reach the number of available
// barbers (or one, in single-chair mode).
type AvailabilityChecker struct {
	store     OccupancyStore
	blackouts *BlackoutRegistry
	perBarber bool
}

// NewAvailabilityChecker creates a checker. perBarber selects per-barber
// capacity; false means the whole shop is one chair.
func NewAvailabilityChecker(store OccupancyStore, blackouts *BlackoutRegistry, perBarber bool) *AvailabilityChecker {
	return &AvailabilityChecker{store: store, blackouts: blackouts, perBarber: perBarber}
}

// IsAvailable reports whether the slot can take one more booking. A nil
// barberID means "any available barber".
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, barberID *int64, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	blocked, err := c.blackouts.IsBlocked(ctx, date, tod)
	if err != nil {
		return false, fmt.Errorf("check blackout: %w", err)
	}
	if blocked {
		return false, nil
	}

	if barberID != nil {
		taken, err := c.store.BarberBookedAt(ctx, *barberID, date, tod)
		if err != nil {
			return false, fmt.Errorf("check barber: %w", err)
		}
		if taken {
			return false, nil
		}
	}

	occupied, err := c.store.CountActiveAt(ctx, date, tod)
	if err != nil {
		return false, fmt.Errorf("count occupancy: %w", err)
	}

	limit := 1
	if c.perBarber {
		limit, err = c.store.CountAvailableBarbers(ctx)
		if err != nil {
			return false, fmt.Errorf("count barbers: %w", err)
		}
	}
	return occupied < limit, nil
}

// FreeSlots returns the open slot markers for a date within hours, used to
// offer alternatives to the UI.
func (c *AvailabilityChecker) FreeSlots(ctx context.Context, barberID *int64, date timeslot.Date, open, close timeslot.TimeOfDay) ([]timeslot.TimeOfDay, error) {
	var free []timeslot.TimeOfDay
	for cursor := open; cursor <= close; cursor += timeslot.SlotMinutes {
		ok, err := c.IsAvailable(ctx, barberID, date, cursor)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, cursor)
		}
	}
	return free, nil
}
