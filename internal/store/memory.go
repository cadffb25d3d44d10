package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"SolarBudget/internal/model"
)

type memoryRecord struct {
	snap    model.Snapshot
	seq     int
	invalid bool
}

// MemoryStore is an in-process SnapshotStore used when no database is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int
	records []memoryRecord
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func cloneSnapshot(s model.Snapshot) model.Snapshot {
	s.Payload = append([]byte(nil), s.Payload...)
	return s
}

func (m *MemoryStore) ReadLatest(ctx context.Context, seriesID string, n int) ([]model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var matched []memoryRecord
	for _, r := range m.records {
		if r.snap.SeriesID == seriesID && !r.invalid {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.snap.FetchedAt.Equal(b.snap.FetchedAt) {
			return a.snap.FetchedAt.After(b.snap.FetchedAt)
		}
		return a.seq > b.seq
	})
	if len(matched) > n {
		matched = matched[:n]
	}
	out := make([]model.Snapshot, 0, len(matched))
	for _, r := range matched {
		out = append(out, cloneSnapshot(r.snap))
	}
	return out, nil
}

func (m *MemoryStore) Write(ctx context.Context, seriesID string, payload []byte, fetchedAt time.Time) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	snap := model.Snapshot{
		ID:        uuid.NewString(),
		SeriesID:  seriesID,
		FetchedAt: fetchedAt,
		Payload:   append([]byte(nil), payload...),
	}
	m.mu.Lock()
	m.seq++
	m.records = append(m.records, memoryRecord{snap: snap, seq: m.seq})
	m.mu.Unlock()
	return cloneSnapshot(snap), nil
}

func (m *MemoryStore) MarkInvalid(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].snap.ID == id {
			m.records[i].invalid = true
			return nil
		}
	}
	return ErrNotFound
}

// Len returns the number of stored snapshots for seriesID, including invalid ones.
func (m *MemoryStore) Len(seriesID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		if r.snap.SeriesID == seriesID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Close() error { return nil }
