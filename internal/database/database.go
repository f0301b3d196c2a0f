// Package database is the SQLite persistence store for bookings, the
// service catalog, barbers and blackout windows.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrSlotTaken              = errors.New("slot already booked")
	ErrSlotBlackedOut         = errors.New("slot is blacked out")
	ErrDuplicateWindow        = errors.New("blackout window already exists")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// DB wraps sql.DB for the scheduling store.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations. Transactions take
// the write lock immediately so the availability re-check inside
// CreateBooking serializes against concurrent writers, and the busy
// timeout makes writers queue on the lock instead of failing.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS barbers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			price_cents INTEGER NOT NULL,
			duration_min INTEGER NOT NULL DEFAULT 30,
			category TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// date is YYYY-MM-DD, time_min is minutes since midnight on the
		// 30-minute slot grid.
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT UNIQUE NOT NULL,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			barber_id INTEGER,
			date TEXT NOT NULL,
			time_min INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			subtotal_cents INTEGER NOT NULL DEFAULT 0,
			tip_cents INTEGER NOT NULL DEFAULT 0,
			total_cents INTEGER NOT NULL DEFAULT 0,
			payment_method TEXT,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (barber_id) REFERENCES barbers(id)
		)`,

		// Price captured at booking time; catalog changes never touch it.
		`CREATE TABLE IF NOT EXISTS booking_services (
			booking_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL,
			service_name TEXT NOT NULL,
			price_cents INTEGER NOT NULL,
			duration_min INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (booking_id, service_id),
			FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE,
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		`CREATE TABLE IF NOT EXISTS blackout_windows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			start_min INTEGER NOT NULL,
			duration_min INTEGER NOT NULL,
			reason TEXT,
			created_by TEXT,
			created_at DATETIME NOT NULL
		)`,

		// Backstop for the reserve-if-free transaction: one active booking
		// per (barber, date, slot). NULL barber_id rows are exempt, those
		// are guarded by the capacity count inside the transaction.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot
			ON bookings(barber_id, date, time_min)
			WHERE status != 'cancelled' AND barber_id IS NOT NULL`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_blackouts_date_start
			ON blackout_windows(date, start_min)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date, time_min)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_phone, customer_email)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_blackouts_date ON blackout_windows(date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
