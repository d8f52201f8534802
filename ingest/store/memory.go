// Package store provides in-process ingest.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records []roster.Record
	uploads []ingest.Upload // append order
}

var _ ingest.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

// InsertRecords appends all records. The batch is applied atomically.
func (m *Memory) InsertRecords(_ context.Context, records []roster.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, records...)
	return len(records), nil
}

func (m *Memory) QueryRecords(_ context.Context, filter ingest.RecordFilter) ([]roster.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []roster.Record
	for _, rec := range m.records {
		if filter.Match(rec) {
			result = append(result, rec)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if c := comparePtr(a.RosterDate, b.RosterDate); c != 0 {
			return c < 0
		}
		if c := comparePtr(a.Division, b.Division); c != 0 {
			return c < 0
		}
		return comparePtr(a.Name, b.Name) < 0
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *Memory) HasSucceeded(_ context.Context, filename string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.uploads {
		if u.Filename == filename && u.Status == ingest.StatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RecordOutcome(_ context.Context, upload ingest.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads = append(m.uploads, upload)
	return nil
}

// RecentUploads returns the newest entries first. Entries with equal
// timestamps keep reverse insertion order.
func (m *Memory) RecentUploads(_ context.Context, limit int) ([]ingest.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ingest.Upload, 0, len(m.uploads))
	for i := len(m.uploads) - 1; i >= 0; i-- {
		result = append(result, m.uploads[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].IngestedAt.After(result[j].IngestedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// comparePtr orders nil before any value, like NULLs in an ascending
// SQLite ORDER BY.
func comparePtr(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
