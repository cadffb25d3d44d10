package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SolarBudget/internal/logger"
	"SolarBudget/internal/model"
)

// Dialect captures the differences between supported SQL backends.
type Dialect struct {
	Name       string
	Driver     string
	Migrations []string
	TableQuery string
	Numbered   bool
}

var DialectSQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			series_id  TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			payload    TEXT NOT NULL,
			invalid    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_series_ts ON snapshots(series_id, fetched_at)`,
	},
	TableQuery: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'snapshots'`,
}

var DialectPostgres = Dialect{
	Name:   "postgres",
	Driver: "pgx",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq        BIGSERIAL PRIMARY KEY,
			id         TEXT NOT NULL UNIQUE,
			series_id  TEXT NOT NULL,
			fetched_at BIGINT NOT NULL,
			payload    TEXT NOT NULL,
			invalid    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_series_ts ON snapshots(series_id, fetched_at)`,
	},
	TableQuery: `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'snapshots'`,
	Numbered:   true,
}

// rebind rewrites ? placeholders as $1, $2, ... for numbered dialects.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps snapshots in a single SQL table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	source  string
	mu      sync.Mutex
	log     *logrus.Entry
}

// NewSQLStore opens (or creates) the database and runs migrations.
func NewSQLStore(d Dialect, source string) (*SQLStore, error) {
	if d.Name == DialectSQLite.Name && source != ":memory:" {
		if dir := filepath.Dir(source); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, err := sql.Open(d.Driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}

	if d.Name == DialectSQLite.Name {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	s := &SQLStore{
		db:      db,
		dialect: d,
		source:  source,
		log:     logger.Component("store").WithField("backend", d.Name),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info("snapshot store opened")
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, stmt := range s.dialect.Migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLStore) ReadLatest(ctx context.Context, seriesID string, n int) ([]model.Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT id, series_id, fetched_at, payload
		FROM snapshots
		WHERE series_id = ? AND invalid = 0
		ORDER BY fetched_at DESC, seq DESC
		LIMIT ?`), seriesID, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var (
			snap    model.Snapshot
			fetched int64
			payload string
		)
		if err := rows.Scan(&snap.ID, &snap.SeriesID, &fetched, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.FetchedAt = time.UnixMilli(fetched)
		snap.Payload = []byte(payload)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLStore) Write(ctx context.Context, seriesID string, payload []byte, fetchedAt time.Time) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.Snapshot{
		ID:        uuid.NewString(),
		SeriesID:  seriesID,
		FetchedAt: time.UnixMilli(fetchedAt.UnixMilli()),
		Payload:   append([]byte(nil), payload...),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO snapshots
		(id, series_id, fetched_at, payload)
		VALUES (?,?,?,?)`),
		snap.ID, snap.SeriesID, snap.FetchedAt.UnixMilli(), string(snap.Payload),
	); err != nil {
		return model.Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return snap, nil
}

func (s *SQLStore) MarkInvalid(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`UPDATE snapshots SET invalid = 1 WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("mark invalid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Close() error {
	s.log.Info("closing snapshot store")
	return s.db.Close()
}
