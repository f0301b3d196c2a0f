package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barberdesk/internal/models"
	"barberdesk/internal/timeslot"
)

// CreateBlackout persists a blackout window. An identical date+start pair
// is rejected with ErrDuplicateWindow.
func (db *DB) CreateBlackout(ctx context.Context, w *models.BlackoutWindow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blackout_windows WHERE date = ? AND start_min = ?",
		w.Date.String(), int(w.Start),
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check existing window: %w", err)
	}
	if existing > 0 {
		return ErrDuplicateWindow
	}

	w.CreatedAt = time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO blackout_windows (date, start_min, duration_min, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.Date.String(), int(w.Start), w.DurationMin, w.Reason, w.CreatedBy, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w.ID = id
	return nil
}

// DeleteBlackout removes a window by id.
func (db *DB) DeleteBlackout(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		"DELETE FROM blackout_windows WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
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

// IsBlackedOut reports whether any window covers the slot marker.
func (db *DB) IsBlackedOut(ctx context.Context, date timeslot.Date, tod timeslot.TimeOfDay) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blackout_windows WHERE "+blackoutOverlapCond,
		date.String(), int(tod), int(tod),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check blackout: %w", err)
	}
	return count > 0, nil
}

// GetBlackout returns a window by id.
func (db *DB) GetBlackout(ctx context.Context, id int64) (*models.BlackoutWindow, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, date, start_min, duration_min, reason, created_by, created_at
		FROM blackout_windows WHERE id = ?`, id,
	)
	w, err := scanBlackout(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	return w, nil
}

// ListBlackoutsByDate returns all windows on a date ordered by start.
func (db *DB) ListBlackoutsByDate(ctx context.Context, date timeslot.Date) ([]models.BlackoutWindow, error) {
	return db.listBlackouts(ctx, `
		SELECT id, date, start_min, duration_min, reason, created_by, created_at
		FROM blackout_windows WHERE date = ? ORDER BY start_min`,
		date.String(),
	)
}

// ListBlackoutsInRange returns windows with dates in [from, to].
func (db *DB) ListBlackoutsInRange(ctx context.Context, from, to timeslot.Date) ([]models.BlackoutWindow, error) {
	return db.listBlackouts(ctx, `
		SELECT id, date, start_min, duration_min, reason, created_by, created_at
		FROM blackout_windows WHERE date >= ? AND date <= ? ORDER BY date, start_min`,
		from.String(), to.String(),
	)
}

func (db *DB) listBlackouts(ctx context.Context, query string, args ...any) ([]models.BlackoutWindow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []models.BlackoutWindow
	for rows.Next() {
		w, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, *w)
	}
	return windows, rows.Err()
}

func scanBlackout(row interface{ Scan(...any) error }) (*models.BlackoutWindow, error) {
	var w models.BlackoutWindow
	var dateStr string
	var startMin int
	var reason, createdBy sql.NullString

	err := row.Scan(&w.ID, &dateStr, &startMin, &w.DurationMin, &reason, &createdBy, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	date, err := timeslot.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("stored date: %w", err)
	}
	w.Date = date
	w.Start = timeslot.TimeOfDay(startMin)
	if reason.Valid {
		w.Reason = reason.String
	}
	if createdBy.Valid {
		w.CreatedBy = createdBy.String
	}
	return &w, nil
}
