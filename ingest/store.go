/*
store.go - Persistence contracts for roster ingestion

PURPOSE:
  The normalization core knows nothing about storage. Ingestion needs three
  capabilities from a store, expressed as interfaces here:

    UploadLog:    "has this filename already succeeded?" and an outcome log
    RecordStore:  bulk insert of normalized records, filtered reads
    Store:        both

IDEMPOTENCY:
  Uploads are tracked loosely by filename. A filename with a logged
  "success" outcome is skipped unless the caller forces reprocessing.
  The store does not deduplicate records itself.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - ingest/store/memory.go: In-memory for testing

SEE ALSO:
  - ingester.go: Uses Store per uploaded file
  - summary.go: Dashboard aggregation over QueryRecords results
*/
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// UPLOAD LOG
// =============================================================================

type UploadStatus string

const (
	StatusSuccess UploadStatus = "success"
	StatusError   UploadStatus = "error"
	StatusSkipped UploadStatus = "skipped"
)

// Upload is one entry of the processed-uploads log.
type Upload struct {
	ID           string
	Filename     string
	RowCount     *int // nil when the file failed
	Status       UploadStatus
	ErrorMessage string
	IngestedAt   time.Time
}

// UploadLog tracks per-file outcomes.
type UploadLog interface {
	// HasSucceeded reports whether filename has a logged success.
	HasSucceeded(ctx context.Context, filename string) (bool, error)

	// RecordOutcome appends an entry to the log.
	RecordOutcome(ctx context.Context, upload Upload) error

	// RecentUploads returns the newest entries first.
	RecentUploads(ctx context.Context, limit int) ([]Upload, error)
}

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore persists normalized roster records.
type RecordStore interface {
	// InsertRecords writes records atomically and returns how many were
	// inserted.
	InsertRecords(ctx context.Context, records []roster.Record) (int, error)

	// QueryRecords returns records matching filter, ordered by roster date,
	// division and name.
	QueryRecords(ctx context.Context, filter RecordFilter) ([]roster.Record, error)
}

// Store is everything ingestion and the dashboard need.
type Store interface {
	UploadLog
	RecordStore
}

// =============================================================================
// FILTERS
// =============================================================================

// RecordFilter narrows dashboard queries. Zero fields do not filter.
type RecordFilter struct {
	From      *roster.Date // inclusive, on roster_date
	To        *roster.Date // inclusive, on roster_date
	Name      string       // case-insensitive substring of name
	Codes     []string     // shift codes, exact
	Divisions []string     // divisions, exact
	Limit     int          // 0 = no limit
}

// Match reports whether rec passes the filter. Records without a roster
// date never match a date range.
func (f RecordFilter) Match(rec roster.Record) bool {
	if f.From != nil || f.To != nil {
		if rec.RosterDate == nil {
			return false
		}
		d, err := roster.ParseDate(*rec.RosterDate)
		if err != nil {
			return false
		}
		if f.From != nil && d.Before(*f.From) {
			return false
		}
		if f.To != nil && d.After(*f.To) {
			return false
		}
	}
	if f.Name != "" {
		if rec.Name == nil || !strings.Contains(strings.ToLower(*rec.Name), strings.ToLower(f.Name)) {
			return false
		}
	}
	if len(f.Codes) > 0 && !containsPtr(f.Codes, rec.Code) {
		return false
	}
	if len(f.Divisions) > 0 && !containsPtr(f.Divisions, rec.Division) {
		return false
	}
	return true
}

func containsPtr(values []string, s *string) bool {
	if s == nil {
		return false
	}
	for _, v := range values {
		if v == *s {
			return true
		}
	}
	return false
}
