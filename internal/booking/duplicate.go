package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"barberdesk/internal/models"
	"barberdesk/internal/schedule"
	"barberdesk/internal/timeslot"
)

// DuplicateStore answers customer booking history questions.
type DuplicateStore interface {
	FindActiveByCustomerOnDate(ctx context.Context, phone, email string, date timeslot.Date, excludeID int64) (*models.Booking, error)
	FindRecentByCustomer(ctx context.Context, phone, email string, since time.Time, excludeID int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

// DuplicateDetector flags likely repeat bookings by the same customer.
//
// Same-date repeats are a hard block. A booking created within the recent
// trailing window is a soft warning the caller may override. Recent
// lookups go through Redis when configured, falling back to a SQL scan
// when Redis is down.
type DuplicateDetector struct {
	store  DuplicateStore
	rdb    *redis.Client
	window time.Duration
	clock  schedule.Clock
	logger *zerolog.Logger
}

// NewDuplicateDetector creates a detector. rdb may be nil; the detector
// then uses the store exclusively.
func NewDuplicateDetector(store DuplicateStore, rdb *redis.Client, window time.Duration, clock schedule.Clock, logger *zerolog.Logger) *DuplicateDetector {
	if window <= 0 {
		window = 3 * time.Hour
	}
	return &DuplicateDetector{store: store, rdb: rdb, window: window, clock: clock, logger: logger}
}

// Check returns a ConflictError describing the duplicate, or nil when the
// request looks fresh. excludeID omits the booking's own row when the
// caller is updating an existing booking.
func (d *DuplicateDetector) Check(ctx context.Context, phone, email string, date timeslot.Date, excludeID int64) (*ConflictError, error) {
	existing, err := d.store.FindActiveByCustomerOnDate(ctx, phone, email, date, excludeID)
	if err != nil {
		return nil, fmt.Errorf("same-date scan: %w", err)
	}
	if existing != nil {
		return &ConflictError{
			Kind:        ConflictSameDate,
			Msg:         fmt.Sprintf("customer already has a booking on %s", date),
			Overridable: false,
			Existing:    existing,
		}, nil
	}

	recent, err := d.findRecent(ctx, phone, email, excludeID)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		return &ConflictError{
			Kind:        ConflictRecent,
			Msg:         "customer booked within the last few hours",
			Overridable: true,
			Existing:    recent,
		}, nil
	}
	return nil, nil
}

func (d *DuplicateDetector) findRecent(ctx context.Context, phone, email string, excludeID int64) (*models.Booking, error) {
	if d.rdb != nil {
		recent, ok := d.findRecentCached(ctx, phone, email, excludeID)
		if ok {
			return recent, nil
		}
		// Redis unavailable; fall through to the store.
	}

	since := d.clock.Now().Add(-d.window)
	recent, err := d.store.FindRecentByCustomer(ctx, phone, email, since, excludeID)
	if err != nil {
		return nil, fmt.Errorf("recent scan: %w", err)
	}
	return recent, nil
}

// findRecentCached consults the Redis recent-booking keys. The second
// return is false when Redis failed and the store should decide instead.
func (d *DuplicateDetector) findRecentCached(ctx context.Context, phone, email string, excludeID int64) (*models.Booking, bool) {
	for _, key := range recentKeys(phone, email) {
		val, err := d.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			d.logger.Warn().Err(err).Msg("redis recent lookup failed, falling back to store")
			return nil, false
		}

		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil || id == excludeID {
			continue
		}
		existing, err := d.store.GetBooking(ctx, id)
		if err != nil {
			// Key points at a booking we cannot load; treat as no hit.
			continue
		}
		if existing.IsActive() {
			return existing, true
		}
	}
	return nil, true
}

// Record remembers a created booking for recent-duplicate detection.
// Failures only cost cache hits, so they are logged and swallowed.
func (d *DuplicateDetector) Record(ctx context.Context, b *models.Booking) {
	if d.rdb == nil {
		return
	}
	val := strconv.FormatInt(b.ID, 10)
	for _, key := range recentKeys(b.CustomerPhone, b.CustomerEmail) {
		if err := d.rdb.Set(ctx, key, val, d.window).Err(); err != nil {
			d.logger.Warn().Err(err).Str("key", key).Msg("redis recent record failed")
		}
	}
}

func recentKeys(phone, email string) []string {
	var keys []string
	if phone != "" {
		keys = append(keys, "recent:phone:"+phone)
	}
	if email != "" {
		keys = append(keys, "recent:email:"+email)
	}
	return keys
}
