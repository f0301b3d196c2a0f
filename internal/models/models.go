// Package models defines the domain records shared across the scheduling
// core: bookings, the service catalog, barbers and blackout windows.
package models

import (
	"time"

	"barberdesk/internal/timeslot"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	// StatusPast marks bookings whose date has gone by without being
	// completed or cancelled. Assigned by the archival sweeper only.
	StatusPast = "past"
)

// statusTransitions is the legal transition set. Cancellation is reachable
// from pending or confirmed only; completed, cancelled and past are terminal.
var statusTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled, StatusPast},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusPast},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusPast:      {},
}

// IsValidStatus reports whether s is a known booking status.
func IsValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether a booking may move from one status to
// another. A same-status transition is allowed (idempotent update).
func CanTransition(from, to string) bool {
	if from == to {
		return IsValidStatus(from)
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Booking is a confirmed or pending appointment.
type Booking struct {
	ID            int64                `json:"id"`
	Ref           string               `json:"ref"` // public UUID reference
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	CustomerPhone string               `json:"customer_phone"`
	BarberID      *int64               `json:"barber_id,omitempty"` // nil means any available barber
	Date          timeslot.Date        `json:"date"`
	Time          timeslot.TimeOfDay   `json:"time"`
	Services      []BookingService     `json:"services"`
	Status        string               `json:"status"`
	SubtotalCents int64                `json:"subtotal_cents"`
	TipCents      int64                `json:"tip_cents"`
	TotalCents    int64                `json:"total_cents"`
	PaymentMethod string               `json:"payment_method,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// IsActive reports whether the booking still occupies its slot.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled && b.Status != StatusPast
}

// BookingService is a service line on a booking with the price captured at
// booking time. Later catalog price changes do not affect it.
type BookingService struct {
	ServiceID   int64  `json:"service_id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	DurationMin int    `json:"duration_min"`
}

// Service is a catalog entry.
type Service struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	DurationMin int    `json:"duration_min"`
	Category    string `json:"category"`
	IsActive    bool   `json:"is_active"`
}

// Barber is a capacity unit. Unavailable barbers take no new bookings and
// do not count toward "any barber" capacity.
type Barber struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// BlackoutWindow is an administrator-imposed span during which no booking
// may be made.
type BlackoutWindow struct {
	ID          int64              `json:"id"`
	Date        timeslot.Date      `json:"date"`
	Start       timeslot.TimeOfDay `json:"start"`
	DurationMin int                `json:"duration_min"`
	Reason      string             `json:"reason,omitempty"`
	CreatedBy   string             `json:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Slots returns every slot marker the window overlaps. Boundaries are
// rounded outward so a partial overlap blocks the whole slot.
func (w *BlackoutWindow) Slots() []timeslot.TimeOfDay {
	return timeslot.SlotsCovering(w.Start, w.DurationMin)
}
