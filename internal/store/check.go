package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"SolarBudget/internal/model"
)

// CheckItem is one line of the startup checklist.
type CheckItem struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// CheckReport is the outcome of Check.
type CheckReport struct {
	Items []CheckItem
}

func (r *CheckReport) add(name string, ok bool, format string, args ...any) {
	r.Items = append(r.Items, CheckItem{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
}

// OK reports whether every item passed.
func (r *CheckReport) OK() bool {
	for _, it := range r.Items {
		if !it.OK {
			return false
		}
	}
	return true
}

func (r *CheckReport) String() string {
	var b strings.Builder
	for _, it := range r.Items {
		mark := "✅"
		if !it.OK {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, it.Name, it.Detail)
	}
	return b.String()
}

var checkedSeries = []string{model.SeriesForecast, model.SeriesPrices}

type seriesStats struct {
	total   int
	invalid int
	newest  *model.Snapshot
}

// An empty series is not a failure; a fresh install has none.
func (r *CheckReport) addSeries(series string, st seriesStats) {
	r.add(series+" snapshots", true, "%d stored, %d invalid", st.total, st.invalid)
	if st.newest == nil {
		return
	}
	if json.Valid(st.newest.Payload) {
		r.add(series+" latest payload", true, "valid JSON, fetched %s", st.newest.FetchedAt.Format(time.RFC3339))
	} else {
		r.add(series+" latest payload", false, "snapshot %s is not valid JSON", st.newest.ID)
	}
}

func (s *SQLStore) Check(ctx context.Context) (*CheckReport, error) {
	rep := &CheckReport{}

	if s.dialect.Name == DialectSQLite.Name && s.source != ":memory:" {
		if _, err := os.Stat(s.source); err != nil {
			rep.add("database file", false, "%v", err)
		} else {
			rep.add("database file", true, "%s", s.source)
		}
	}

	if err := s.db.PingContext(ctx); err != nil {
		rep.add("database reachable", false, "%v", err)
		return rep, nil
	}
	rep.add("database reachable", true, "%s", s.dialect.Name)

	var tables int
	if err := s.db.QueryRowContext(ctx, s.dialect.TableQuery).Scan(&tables); err != nil {
		return rep, fmt.Errorf("query tables: %w", err)
	}
	if tables == 0 {
		rep.add("snapshots table", false, "missing")
		return rep, nil
	}
	rep.add("snapshots table", true, "present")

	for _, series := range checkedSeries {
		var st seriesStats
		if err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*), COALESCE(SUM(invalid), 0)
			FROM snapshots WHERE series_id = ?`), series).Scan(&st.total, &st.invalid); err != nil {
			return rep, fmt.Errorf("count %s: %w", series, err)
		}
		latest, err := s.ReadLatest(ctx, series, 1)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return rep, err
		}
		if len(latest) > 0 {
			st.newest = &latest[0]
		}
		rep.addSeries(series, st)
	}
	return rep, nil
}

func (m *MemoryStore) Check(_ context.Context) (*CheckReport, error) {
	rep := &CheckReport{}
	rep.add("database reachable", true, "memory")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, series := range checkedSeries {
		var st seriesStats
		for i := range m.records {
			r := m.records[i]
			if r.snap.SeriesID != series {
				continue
			}
			st.total++
			if r.invalid {
				st.invalid++
				continue
			}
			if st.newest == nil || !r.snap.FetchedAt.Before(st.newest.FetchedAt) {
				snap := cloneSnapshot(r.snap)
				st.newest = &snap
			}
		}
		rep.addSeries(series, st)
	}
	return rep, nil
}
