// Package maintenance keeps the cache database file compact. Evictions and
// clears free pages that SQLite only returns to the filesystem on VACUUM.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sydlexius/creditgraph/internal/database"
)

// lastCompactKey records the last successful compaction in the meta table.
const lastCompactKey = "maintenance.last_compact_at"

// Status describes the on-disk state of the cache database.
type Status struct {
	DBFileSize    int64  `json:"dbFileSize"`
	WALFileSize   int64  `json:"walFileSize"`
	PageCount     int64  `json:"pageCount"`
	PageSize      int64  `json:"pageSize"`
	FreePages     int64  `json:"freePages"`
	SchemaVersion int64  `json:"schemaVersion"`
	LastCompactAt string `json:"lastCompactAt,omitempty"`
}

// Reclaimable returns the bytes a VACUUM would give back.
func (s Status) Reclaimable() int64 { return s.FreePages * s.PageSize }

// Service runs maintenance against one database.
type Service struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a maintenance service.
func NewService(db *sql.DB, dbPath string, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		logger: logger.With(slog.String("component", "maintenance")),
		now:    time.Now,
	}
}

// Status returns the current database file and page statistics.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	pragmas := []struct {
		name string
		dst  *int64
	}{
		{"page_count", &st.PageCount},
		{"page_size", &st.PageSize},
		{"freelist_count", &st.FreePages},
	}
	for _, p := range pragmas {
		if err := s.db.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(p.dst); err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.name, err)
		}
	}

	v, err := database.Version(s.db)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastCompactKey).Scan(&st.LastCompactAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("reading last compaction time", "error", err)
	}
	return st, nil
}

// Compact rebuilds the file with VACUUM, refreshes planner statistics and
// truncates the WAL.
func (s *Service) Compact(ctx context.Context) error {
	start := s.now()
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	stamp := s.now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastCompactKey, stamp, stamp)
	if err != nil {
		s.logger.Warn("recording compaction time", "error", err)
	}

	s.logger.Info("cache database compacted", slog.Duration("took", s.now().Sub(start)))
	return nil
}

// StartScheduler compacts on a fixed interval until ctx is canceled. Runs
// are skipped while less than minReclaim bytes are free.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration, minReclaim int64) {
	s.logger.Info("maintenance scheduler started", slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx, minReclaim)
		}
	}
}

func (s *Service) tick(ctx context.Context, minReclaim int64) {
	st, err := s.Status(ctx)
	if err != nil {
		s.logger.Error("scheduled status check failed", slog.Any("error", err))
		return
	}
	if st.Reclaimable() < minReclaim {
		s.logger.Debug("skipping compaction", slog.Int64("reclaimable", st.Reclaimable()))
		return
	}
	if err := s.Compact(ctx); err != nil {
		s.logger.Error("scheduled compaction failed", slog.Any("error", err))
	}
}
