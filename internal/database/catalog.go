package database

import (
	"context"
	"database/sql"
	"fmt"

	"barberdesk/internal/models"
)

// CreateService adds a catalog entry.
func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO services (name, price_cents, duration_min, category, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.PriceCents, s.DurationMin, s.Category, s.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	s.ID, err = result.LastInsertId()
	return err
}

// GetService returns a catalog entry by id.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	var category sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, duration_min, category, is_active
		FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.PriceCents, &s.DurationMin, &category, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if category.Valid {
		s.Category = category.String
	}
	return &s, nil
}

// ListActiveServices returns the active catalog ordered by name.
func (db *DB) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, price_cents, duration_min, category, is_active
		FROM services WHERE is_active = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		var category sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents, &s.DurationMin, &category, &s.IsActive); err != nil {
			return nil, err
		}
		if category.Valid {
			s.Category = category.String
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// CreateBarber adds a barber.
func (db *DB) CreateBarber(ctx context.Context, b *models.Barber) error {
	result, err := db.ExecContext(ctx,
		"INSERT INTO barbers (name, is_available) VALUES (?, ?)",
		b.Name, b.Available,
	)
	if err != nil {
		return fmt.Errorf("insert barber: %w", err)
	}
	b.ID, err = result.LastInsertId()
	return err
}

// GetBarber returns a barber by id.
func (db *DB) GetBarber(ctx context.Context, id int64) (*models.Barber, error) {
	var b models.Barber
	err := db.QueryRowContext(ctx,
		"SELECT id, name, is_available FROM barbers WHERE id = ?", id,
	).Scan(&b.ID, &b.Name, &b.Available)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get barber: %w", err)
	}
	return &b, nil
}

// ListBarbers returns all barbers ordered by name.
func (db *DB) ListBarbers(ctx context.Context) ([]models.Barber, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, is_available FROM barbers ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	defer rows.Close()

	var barbers []models.Barber
	for rows.Next() {
		var b models.Barber
		if err := rows.Scan(&b.ID, &b.Name, &b.Available); err != nil {
			return nil, err
		}
		barbers = append(barbers, b)
	}
	return barbers, rows.Err()
}

// CountAvailableBarbers returns the number of barbers taking bookings.
func (db *DB) CountAvailableBarbers(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM barbers WHERE is_available = 1",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count barbers: %w", err)
	}
	return count, nil
}

// SetBarberAvailable toggles whether a barber takes bookings.
func (db *DB) SetBarberAvailable(ctx context.Context, id int64, available bool) error {
	result, err := db.ExecContext(ctx,
		"UPDATE barbers SET is_available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		available, id,
	)
	if err != nil {
		return fmt.Errorf("update barber: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
