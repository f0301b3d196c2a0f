package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"barberdesk/internal/events"
	"barberdesk/internal/metrics"
	"barberdesk/internal/schedule"
	"barberdesk/internal/timeslot"
)

// SweepStore archives expired bookings.
type SweepStore interface {
	SweepPast(ctx context.Context, before timeslot.Date) (int, error)
}

// ArchivalSweeper reclassifies bookings whose date has gone by while they
// were still pending or confirmed. It can be run on demand or as a
// background loop.
type ArchivalSweeper struct {
	store  SweepStore
	clock  schedule.Clock
	bus    *events.EventBus
	logger *zerolog.Logger
}

// NewArchivalSweeper creates a sweeper.
func NewArchivalSweeper(store SweepStore, clock schedule.Clock, bus *events.EventBus, logger *zerolog.Logger) *ArchivalSweeper {
	return &ArchivalSweeper{store: store, clock: clock, bus: bus, logger: logger}
}

// Sweep archives everything dated strictly before today and returns how
// many bookings moved.
func (s *ArchivalSweeper) Sweep(ctx context.Context) (int, error) {
	today := timeslot.DateOf(s.clock.Now())
	moved, err := s.store.SweepPast(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if moved > 0 {
		metrics.AddSweepArchived(moved)
		if s.bus != nil {
			_ = s.bus.PublishJSON(events.TypeSweepCompleted, map[string]int{"archived": moved})
		}
		s.logger.Info().Int("archived", moved).Msg("archival sweep completed")
	}
	return moved, nil
}

// Run sweeps immediately and then on every tick until the context is
// cancelled.
func (s *ArchivalSweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial sweep failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("archival sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
