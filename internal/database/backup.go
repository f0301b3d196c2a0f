package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupService snapshots the SQLite database on a fixed interval and
// prunes snapshots older than the retention period.
type BackupService struct {
	db          *DB
	storagePath string
	interval    time.Duration
	retention   time.Duration
	logger      *zerolog.Logger
}

// NewBackupService creates a backup service writing snapshots under
// storagePath.
func NewBackupService(db *DB, storagePath string, interval time.Duration, retentionDays int, logger *zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{
		db:          db,
		storagePath: storagePath,
		interval:    interval,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		logger:      logger,
	}
}

// Run takes an immediate snapshot and then one per interval until the
// context is cancelled.
func (s *BackupService) Run(ctx context.Context) {
	s.logger.Info().
		Str("path", s.storagePath).
		Dur("interval", s.interval).
		Msg("backup service started")

	if err := s.Backup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Backup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.pruneOld()
		}
	}
}

// Backup writes a consistent snapshot via VACUUM INTO, which is safe
// against concurrent writers.
func (s *BackupService) Backup(ctx context.Context) error {
	if err := os.MkdirAll(s.storagePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.storagePath, name)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("database backup written")
	return nil
}

func (s *BackupService) pruneOld() {
	if s.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(s.storagePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	cutoff := time.Now().Add(-s.retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("deleting expired backup")
			os.Remove(filepath.Join(s.storagePath, entry.Name()))
		}
	}
}
