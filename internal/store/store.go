package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SolarBudget/internal/model"
)

// ErrNotFound is returned when a snapshot id does not exist.
var ErrNotFound = errors.New("store: snapshot not found")

// SnapshotStore persists immutable fetch results, newest first per series.
type SnapshotStore interface {
	// ReadLatest returns up to n valid snapshots for seriesID, newest first.
	ReadLatest(ctx context.Context, seriesID string, n int) ([]model.Snapshot, error)
	// Write appends a snapshot atomically and returns it.
	Write(ctx context.Context, seriesID string, payload []byte, fetchedAt time.Time) (model.Snapshot, error)
	// MarkInvalid hides a snapshot from subsequent reads.
	MarkInvalid(ctx context.Context, id string) error
	// Check runs the startup checklist.
	Check(ctx context.Context) (*CheckReport, error)
	Close() error
}

// Open selects a backend from the DSN:
//
//	postgres://... or postgresql://...   PostgreSQL via pgx
//	sqlite://path or a bare file path    SQLite
//	memory or empty                      in-process, non-durable
func Open(dsn string) (SnapshotStore, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewSQLStore(DialectPostgres, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLStore(DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported database url %q", dsn)
	default:
		return NewSQLStore(DialectSQLite, dsn)
	}
}
