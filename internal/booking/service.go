package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"barberdesk/internal/database"
	"barberdesk/internal/events"
	"barberdesk/internal/metrics"
	"barberdesk/internal/models"
	"barberdesk/internal/schedule"
	"barberdesk/internal/timeslot"
)

// Store is the persistence port the booking transaction needs.
type Store interface {
	CreateBooking(ctx context.Context, b *models.Booking, capacity database.Capacity) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByRef(ctx context.Context, ref string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to string) error
}

// CreateRequest carries a booking request through the gates.
type CreateRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	BarberID      *int64
	Date          timeslot.Date
	Time          timeslot.TimeOfDay
	ServiceIDs    []int64
	TipPercent    int   // percentage tip; wins when positive
	TipCents      int64 // fixed tip, used when TipPercent is zero
	PaymentMethod string
	Notes         string
	// Override bypasses the recent-booking soft warning. Same-date
	// duplicates stay blocked.
	Override bool
}

// Service orchestrates validator, duplicate detector and availability
// checker, then persists the booking atomically.
type Service struct {
	store     Store
	catalog   *Catalog
	validator *schedule.Validator
	detector  *DuplicateDetector
	checker   *AvailabilityChecker
	bus       *events.EventBus
	perBarber bool
	logger    *zerolog.Logger
}

// NewService wires the booking transaction.
func NewService(
	store Store,
	catalog *Catalog,
	validator *schedule.Validator,
	detector *DuplicateDetector,
	checker *AvailabilityChecker,
	bus *events.EventBus,
	perBarber bool,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		validator: validator,
		detector:  detector,
		checker:   checker,
		bus:       bus,
		perBarber: perBarber,
		logger:    logger,
	}
}

// Create runs every gate in order and persists the booking only when all
// pass. Any rejection aborts before persistence; nothing is ever partially
// written.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	services, err := s.validateRequest(ctx, req)
	if err != nil {
		metrics.IncBookingRejected("validation")
		return nil, err
	}

	if err := s.validator.Validate(req.Date, req.Time); err != nil {
		metrics.IncBookingRejected("time_window")
		return nil, err
	}

	dup, err := s.detector.Check(ctx, req.CustomerPhone, req.CustomerEmail, req.Date, 0)
	if err != nil {
		return nil, err
	}
	// Override only silences the soft warning; a same-date repeat still
	// blocks.
	if dup != nil && !(req.Override && dup.Overridable) {
		metrics.IncBookingRejected("duplicate")
		return nil, dup
	}

	available, err := s.checker.IsAvailable(ctx, req.BarberID, req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if !available {
		metrics.IncBookingRejected("slot_conflict")
		return nil, &ConflictError{
			Kind: ConflictSlotTaken,
			Msg:  fmt.Sprintf("slot %s %s is not available", req.Date, req.Time),
		}
	}

	b := s.buildBooking(req, services)

	capacity := database.CapacitySingleChair
	if s.perBarber {
		capacity = database.CapacityPerBarber
	}
	if err := s.store.CreateBooking(ctx, b, capacity); err != nil {
		// The atomic re-check may lose a race the pre-check won.
		if errors.Is(err, database.ErrSlotTaken) || errors.Is(err, database.ErrSlotBlackedOut) {
			metrics.IncBookingRejected("slot_conflict")
			return nil, &ConflictError{
				Kind: ConflictSlotTaken,
				Msg:  fmt.Sprintf("slot %s %s is not available", req.Date, req.Time),
			}
		}
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	s.detector.Record(ctx, b)
	metrics.IncBookingCreated()
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingCreated, b)
	}
	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("ref", b.Ref).
		Str("date", b.Date.String()).
		Str("time", b.Time.String()).
		Int64("total_cents", b.TotalCents).
		Msg("booking created")
	return b, nil
}

func (s *Service) validateRequest(ctx context.Context, req CreateRequest) ([]models.BookingService, error) {
	if req.CustomerName == "" {
		return nil, invalidf("customer_name", "required")
	}
	if req.CustomerPhone == "" && req.CustomerEmail == "" {
		return nil, invalidf("customer_contact", "phone or email required")
	}
	if req.Date.IsZero() {
		return nil, invalidf("date", "required")
	}
	if !req.Time.OnSlotBoundary() {
		return nil, invalidf("time", "must fall on a %d-minute boundary", timeslot.SlotMinutes)
	}
	if len(req.ServiceIDs) == 0 {
		return nil, invalidf("services", "at least one service required")
	}
	if req.TipPercent < 0 || req.TipCents < 0 {
		return nil, invalidf("tip", "must not be negative")
	}

	if req.BarberID != nil {
		barber, ok, err := s.catalog.Barber(ctx, *req.BarberID)
		if err != nil {
			return nil, fmt.Errorf("barber lookup: %w", err)
		}
		if !ok {
			return nil, invalidf("barber_id", "unknown barber %d", *req.BarberID)
		}
		if !barber.Available {
			return nil, invalidf("barber_id", "barber %s is not taking bookings", barber.Name)
		}
	}

	seen := make(map[int64]bool, len(req.ServiceIDs))
	lines := make([]models.BookingService, 0, len(req.ServiceIDs))
	for _, id := range req.ServiceIDs {
		if seen[id] {
			return nil, invalidf("services", "service %d listed twice", id)
		}
		seen[id] = true

		svc, ok, err := s.catalog.Service(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("service lookup: %w", err)
		}
		if !ok {
			return nil, invalidf("services", "unknown service %d", id)
		}
		lines = append(lines, models.BookingService{
			ServiceID:   svc.ID,
			Name:        svc.Name,
			PriceCents:  svc.PriceCents,
			DurationMin: svc.DurationMin,
		})
	}
	return lines, nil
}

func (s *Service) buildBooking(req CreateRequest, services []models.BookingService) *models.Booking {
	var subtotal int64
	for _, svc := range services {
		subtotal += svc.PriceCents
	}

	tip := req.TipCents
	if req.TipPercent > 0 {
		// Round half up on cents.
		tip = (subtotal*int64(req.TipPercent) + 50) / 100
	}

	return &models.Booking{
		Ref:           uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		BarberID:      req.BarberID,
		Date:          req.Date,
		Time:          req.Time,
		Services:      services,
		Status:        models.StatusPending,
		SubtotalCents: subtotal,
		TipCents:      tip,
		TotalCents:    subtotal + tip,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NotFoundError{Resource: "booking", ID: id}
		}
		return nil, err
	}
	return b, nil
}

// GetByRef returns a booking by its public reference.
func (s *Service) GetByRef(ctx context.Context, ref string) (*models.Booking, error) {
	b, err := s.store.GetBookingByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NotFoundError{Resource: "booking", Ref: ref}
		}
		return nil, err
	}
	return b, nil
}

// UpdateStatus applies a status transition. Setting the current status
// again is an idempotent no-op.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus string) error {
	if !models.IsValidStatus(newStatus) {
		return invalidf("status", "unknown status %q", newStatus)
	}

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &NotFoundError{Resource: "booking", ID: id}
		}
		return err
	}

	if b.Status == newStatus {
		return nil
	}
	if !models.CanTransition(b.Status, newStatus) {
		return &TransitionError{From: b.Status, To: newStatus}
	}

	if err := s.store.UpdateBookingStatus(ctx, id, b.Status, newStatus); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &NotFoundError{Resource: "booking", ID: id}
		}
		if errors.Is(err, database.ErrConcurrentModification) {
			return fmt.Errorf("booking %d changed concurrently: %w", id, err)
		}
		return err
	}

	metrics.IncStatusChanged(newStatus)
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingStatusChanged, map[string]any{
			"booking_id": id,
			"from":       b.Status,
			"to":         newStatus,
		})
	}
	s.logger.Info().
		Int64("booking_id", id).
		Str("from", b.Status).
		Str("to", newStatus).
		Msg("booking status changed")
	return nil
}
