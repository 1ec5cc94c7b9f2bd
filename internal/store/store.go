package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/sys/unix"

	"fieldkit/internal/config"
	"fieldkit/internal/services"
)

// Store manages durable persistence backed by SQLite.
type Store struct {
	db           *sql.DB
	path         string
	dataDir      string
	minFreeBytes int64
}

// Open initializes or connects to the fieldkit database and ensures the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "ensure directories", "", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "fieldkit.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "open sqlite db", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorage, "store", "apply pragma", pragma, execErr)
		}
	}

	store := &Store{
		db:           db,
		path:         dbPath,
		dataDir:      cfg.Paths.DataDir,
		minFreeBytes: cfg.Compression.MinFreeSpaceBytes,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStorage, "store", "init schema", "", err)
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Preflight verifies the store can accept new durable work. It fails with a
// storage error when the backing filesystem is out of space, since queuing
// work that cannot be persisted would risk silent data loss.
func (s *Store) Preflight(ctx context.Context) error {
	if s == nil || s.db == nil {
		return services.Wrap(services.ErrStorage, "store", "preflight", "store unavailable", nil)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return services.Wrap(services.ErrStorage, "store", "preflight", "database unreachable", err)
	}

	free, err := s.freeSpace()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "preflight", "inspect free space", err)
	}
	if free < s.minFreeBytes {
		return services.Wrap(services.ErrStorage, "store", "preflight",
			fmt.Sprintf("only %d bytes free, need %d", free, s.minFreeBytes), nil)
	}
	return nil
}

func (s *Store) freeSpace() (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.dataDir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", s.dataDir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
