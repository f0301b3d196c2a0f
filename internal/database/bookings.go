package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// blackoutOverlapCond matches blackout windows covering a slot marker.
// Window boundaries are rounded outward to the 30-minute grid in SQL so a
// partial overlap still blocks the whole slot.
const blackoutOverlapCond = `date = ?
	AND (start_min / 30) * 30 <= ?
	AND ? < ((start_min + duration_min + 29) / 30) * 30`

// Capacity selects how "any barber" occupancy is counted.
type Capacity int

const (
	// CapacitySingleChair treats the shop as one chair: any active
	// booking at a slot fills it.
	CapacitySingleChair Capacity = iota
	// CapacityPerBarber fills a slot only when active bookings reach the
	// number of available barbers.
	CapacityPerBarber
)

// CreateBooking atomically reserves the slot and persists the booking with
// its service lines. The occupancy re-check and the insert run in one
// immediate transaction, so two concurrent requests for the same slot
// serialize on SQLite's write lock and the loser sees ErrSlotTaken.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking, capacity Capacity) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	date := b.Date.String()
	slot := int(b.Time)

	var blacked int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blackout_windows WHERE "+blackoutOverlapCond,
		date, slot, slot,
	).Scan(&blacked)
	if err != nil {
		return fmt.Errorf("check blackout: %w", err)
	}
	if blacked > 0 {
		return ErrSlotBlackedOut
	}

	if b.BarberID != nil {
		var taken int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM bookings
			WHERE barber_id = ? AND date = ? AND time_min = ? AND status != 'cancelled'`,
			*b.BarberID, date, slot,
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("check barber slot: %w", err)
		}
		if taken > 0 {
			return ErrSlotTaken
		}
	}

	var occupied int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE date = ? AND time_min = ? AND status != 'cancelled'`,
		date, slot,
	).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("check occupancy: %w", err)
	}

	limit := 1
	if capacity == CapacityPerBarber {
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM barbers WHERE is_available = 1",
		).Scan(&limit)
		if err != nil {
			return fmt.Errorf("count barbers: %w", err)
		}
	}
	if occupied >= limit {
		return ErrSlotTaken
	}

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = models.StatusPending
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			ref, customer_name, customer_email, customer_phone, barber_id,
			date, time_min, status, subtotal_cents, tip_cents, total_cents,
			payment_method, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Ref, b.CustomerName, b.CustomerEmail, b.CustomerPhone, b.BarberID,
		date, slot, b.Status, b.SubtotalCents, b.TipCents, b.TotalCents,
		b.PaymentMethod, b.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	bookingID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	for i, svc := range b.Services {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO booking_services (booking_id, service_id, service_name, price_cents, duration_min, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			bookingID, svc.ServiceID, svc.Name, svc.PriceCents, svc.DurationMin, i,
		)
		if err != nil {
			return fmt.Errorf("insert booking service %d: %w", svc.ServiceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	b.ID = bookingID
	return nil
}

const bookingColumns = `id, ref, customer_name, customer_email, customer_phone,
	barber_id, date, time_min, status, subtotal_cents, tip_cents, total_cents,
	payment_method, notes, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var barberID sql.NullInt64
	var dateStr string
	var timeMin int
	var paymentMethod, notes sql.NullString

	err := row.Scan(
		&b.ID, &b.Ref, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&barberID, &dateStr, &timeMin, &b.Status,
		&b.SubtotalCents, &b.TipCents, &b.TotalCents,
		&paymentMethod, &notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if barberID.Valid {
		b.BarberID = &barberID.Int64
	}
	if paymentMethod.Valid {
		b.PaymentMethod = paymentMethod.String
	}
	if notes.Valid {
		b.Notes = notes.String
	}

	date, err := timeslot.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("stored date: %w", err)
	}
	b.Date = date
	b.Time = timeslot.TimeOfDay(timeMin)
	return &b, nil
}

func (db *DB) loadServices(ctx context.Context, b *models.Booking) error {
	rows, err := db.QueryContext(ctx, `
		SELECT service_id, service_name, price_cents, duration_min
		FROM booking_services WHERE booking_id = ? ORDER BY position`,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var svc models.BookingService
		if err := rows.Scan(&svc.ServiceID, &svc.Name, &svc.PriceCents, &svc.DurationMin); err != nil {
			return err
		}
		b.Services = append(b.Services, svc)
	}
	return rows.Err()
}

// GetBooking returns a booking with its service lines.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if err := db.loadServices(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookingByRef returns a booking by its public reference.
func (db *DB) GetBookingByRef(ctx context.Context, ref string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE ref = ?", ref,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by ref: %w", err)
	}
	if err := db.loadServices(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBookingStatus moves a booking from one status to another. The
// expected current status guards against concurrent transitions; a lost
// race surfaces as ErrConcurrentModification.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, from, to string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM bookings WHERE id = ?", id,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

// FindActiveByCustomerOnDate returns a non-cancelled booking by the same
// customer (matched by phone OR email) on the date, or nil when none
// exists. excludeID omits the booking being updated.
func (db *DB) FindActiveByCustomerOnDate(ctx context.Context, phone, email string, date timeslot.Date, excludeID int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE (customer_phone = ? OR customer_email = ?)
		  AND date = ? AND status != 'cancelled' AND id != ?
		ORDER BY created_at LIMIT 1`,
		phone, email, date.String(), excludeID,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find same-date booking: %w", err)
	}
	return b, nil
}

// FindRecentByCustomer returns the customer's most recent booking created
// at or after since, regardless of date, or nil when none exists.
func (db *DB) FindRecentByCustomer(ctx context.Context, phone, email string, since time.Time, excludeID int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE (customer_phone = ? OR customer_email = ?)
		  AND created_at >= ? AND status != 'cancelled' AND id != ?
		ORDER BY created_at DESC LIMIT 1`,
		phone, email, since, excludeID,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent booking: %w", err)
	}
	return b, nil
}

// CountActiveAt returns the number of non-cancelled bookings at the slot.
func (db *DB) CountActiveAt(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE date = ? AND time_min = ? AND status != 'cancelled'`,
		date.String(), int(tod),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return count, nil
}

// BarberBookedAt reports whether the barber already has an active booking
// at the slot.
func (db *DB) BarberBookedAt(ctx context.Context, barberID int64, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE barber_id = ? AND date = ? AND time_min = ? AND status != 'cancelled'`,
		barberID, date.String(), int(tod),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check barber slot: %w", err)
	}
	return count > 0, nil
}

// ListBookingsByDate returns all bookings on a date ordered by slot.
func (db *DB) ListBookingsByDate(ctx context.Context, date timeslot.Date) ([]models.Booking, error) {
	return db.listBookings(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE date = ? ORDER BY time_min",
		date.String(),
	)
}

// ListBookingsInRange returns bookings with dates in [from, to] ordered by
// date and slot. Used by the audit report.
func (db *DB) ListBookingsInRange(ctx context.Context, from, to timeslot.Date) ([]models.Booking, error) {
	return db.listBookings(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE date >= ? AND date <= ? ORDER BY date, time_min",
		from.String(), to.String(),
	)
}

func (db *DB) listBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// SweepPast archives pending and confirmed bookings dated strictly before
// the given date and returns how many were moved.
func (db *DB) SweepPast(ctx context.Context, before timeslot.Date) (int, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ?
		WHERE date < ? AND status IN (?, ?)`,
		models.StatusPast, time.Now(), before.String(),
		models.StatusPending, models.StatusConfirmed,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep past: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
