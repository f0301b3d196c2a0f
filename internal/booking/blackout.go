package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"barberdesk/internal/database"
	"barberdesk/internal/events"
	"barberdesk/internal/metrics"
	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// BlackoutStore persists administrator-defined blocked windows.
type BlackoutStore interface {
	CreateBlackout(ctx context.Context, w *models.BlackoutWindow) error
	DeleteBlackout(ctx context.Context, id int64) error
	GetBlackout(ctx context.Context, id int64) (*models.BlackoutWindow, error)
	IsBlackedOut(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error)
	ListBlackoutsByDate(ctx context.Context, date timeslot.Date) ([]models.BlackoutWindow, error)
}

// BlackoutRegistry manages administrator blackout windows. Mutations hold
// a lock so an add or remove cannot interleave with an in-process
// availability check; persistence adds the SQLite write lock underneath.
type BlackoutRegistry struct {
	store  BlackoutStore
	bus    *events.EventBus
	logger *zerolog.Logger
	mu     sync.RWMutex
}

// NewBlackoutRegistry creates a registry over the given store.
func NewBlackoutRegistry(store BlackoutStore, bus *events.EventBus, logger *zerolog.Logger) *BlackoutRegistry {
	return &BlackoutRegistry{store: store, bus: bus, logger: logger}
}

// Add stores a new window. The window must start inside a day and cover at
// least one minute; an identical date+start pair is a conflict.
func (r *BlackoutRegistry) Add(ctx context.Context, w *models.BlackoutWindow) error {
	if w.Date.IsZero() {
		return invalidf("date", "required")
	}
	if w.DurationMin <= 0 {
		return invalidf("duration", "must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.CreateBlackout(ctx, w); err != nil {
		if errors.Is(err, database.ErrDuplicateWindow) {
			return &ConflictError{
				Kind: ConflictWindowExists,
				Msg:  fmt.Sprintf("blackout already exists on %s at %s", w.Date, w.Start),
			}
		}
		return fmt.Errorf("create blackout: %w", err)
	}

	metrics.IncBlackoutAdded()
	if r.bus != nil {
		_ = r.bus.PublishJSON(events.TypeBlackoutAdded, w)
	}
	r.logger.Info().
		Int64("blackout_id", w.ID).
		Str("date", w.Date.String()).
		Str("start", w.Start.String()).
		Int("duration_min", w.DurationMin).
		Msg("blackout window added")
	return nil
}

// Remove deletes a window by id.
func (r *BlackoutRegistry) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteBlackout(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &NotFoundError{Resource: "blackout", ID: id}
		}
		return fmt.Errorf("delete blackout: %w", err)
	}

	if r.bus != nil {
		_ = r.bus.PublishJSON(events.TypeBlackoutRemoved, map[string]int64{"id": id})
	}
	r.logger.Info().Int64("blackout_id", id).Msg("blackout window removed")
	return nil
}

// IsBlocked reports whether the slot marker falls inside any window.
func (r *BlackoutRegistry) IsBlocked(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.IsBlackedOut(ctx, date, tod)
}

// ListForDate returns the windows on a date.
func (r *BlackoutRegistry) ListForDate(ctx context.Context, date timeslot.Date) ([]models.BlackoutWindow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.ListBlackoutsByDate(ctx, date)
}
