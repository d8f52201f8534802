/*
Package sqlite provides a SQLite-backed implementation of ingest.Store.

PURPOSE:
  Persists normalized roster records and the processed-uploads log. The
  same schema ports to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  ingest.UploadLog:   Outcome log and skip-if-succeeded check
  ingest.RecordStore: Batch insert and filtered reads

KEY TABLES:
  roster_data:        One row per member per roster day
  processed_uploads:  One row per ingestion attempt (success, error, skipped)

COLUMN ENCODING:
  hours         TEXT decimal string (shopspring NullDecimal), NULL when absent
  roster_date   TEXT YYYY-MM-DD, NULL when the filename carried no date
  start/through TEXT HH:MM:SS
  ingested_at   TEXT RFC3339 with milliseconds, in the configured zone

INDEXES:
  - idx_roster_data_date: Dashboard range scans and ordering
  - idx_processed_uploads_filename: Skip-if-succeeded lookup

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ingest/store.go: Interface definitions
  - ingest/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/roster"
)

// timestampLayout keeps milliseconds and the zone offset; SQLite's date
// functions understand it.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Store implements ingest.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ingest.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS roster_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		division TEXT,
		rank TEXT,
		member_id TEXT NOT NULL,
		name TEXT,
		code TEXT,
		start TEXT,
		through TEXT,
		hours TEXT,
		roster_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_roster_data_date
		ON roster_data(roster_date, division, name);
	CREATE INDEX IF NOT EXISTS idx_roster_data_member
		ON roster_data(member_id);

	CREATE TABLE IF NOT EXISTS processed_uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		ingested_at TEXT NOT NULL,
		row_count INTEGER,
		status TEXT NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_processed_uploads_filename
		ON processed_uploads(filename, status);
	CREATE INDEX IF NOT EXISTS idx_processed_uploads_ingested_at
		ON processed_uploads(ingested_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE (ingest.RecordStore interface)
// =============================================================================

// InsertRecords adds all records in one transaction.
func (s *Store) InsertRecords(ctx context.Context, records []roster.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO roster_data
		(division, rank, member_id, name, code, start, through, hours, roster_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			nullString(rec.Division),
			nullString(rec.Rank),
			rec.MemberID,
			nullString(rec.Name),
			nullString(rec.Code),
			nullString(rec.Start),
			nullString(rec.Through),
			rec.Hours,
			nullString(rec.RosterDate),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", rec.MemberID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit records: %w", err)
	}
	return len(records), nil
}

// QueryRecords returns records matching filter ordered by roster date,
// division and name. NULLs sort first.
func (s *Store) QueryRecords(ctx context.Context, filter ingest.RecordFilter) ([]roster.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := buildRecordQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []roster.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func buildRecordQuery(f ingest.RecordFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if f.From != nil {
		where = append(where, "roster_date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "roster_date <= ?")
		args = append(args, f.To.String())
	}
	if f.Name != "" {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Name))+"%")
	}
	if len(f.Codes) > 0 {
		where = append(where, "code IN ("+placeholders(len(f.Codes))+")")
		for _, c := range f.Codes {
			args = append(args, c)
		}
	}
	if len(f.Divisions) > 0 {
		where = append(where, "division IN ("+placeholders(len(f.Divisions))+")")
		for _, d := range f.Divisions {
			args = append(args, d)
		}
	}

	var b strings.Builder
	b.WriteString(`
		SELECT division, rank, member_id, name, code, start, through, hours, roster_date
		FROM roster_data`)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\t\tORDER BY roster_date ASC, division ASC, name ASC, id ASC")
	if f.Limit > 0 {
		b.WriteString("\n\t\tLIMIT ?")
		args = append(args, f.Limit)
	}

	return b.String(), args
}

func scanRecord(rows *sql.Rows) (roster.Record, error) {
	var (
		rec                                              roster.Record
		division, rank, name, code, start, through, date sql.NullString
	)

	err := rows.Scan(
		&division, &rank, &rec.MemberID, &name, &code,
		&start, &through, &rec.Hours, &date,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Division = stringPtr(division)
	rec.Rank = stringPtr(rank)
	rec.Name = stringPtr(name)
	rec.Code = stringPtr(code)
	rec.Start = stringPtr(start)
	rec.Through = stringPtr(through)
	rec.RosterDate = stringPtr(date)

	return rec, nil
}

// =============================================================================
// UPLOAD LOG (ingest.UploadLog interface)
// =============================================================================

// HasSucceeded checks for a logged success under filename.
func (s *Store) HasSucceeded(ctx context.Context, filename string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_uploads WHERE filename = ? AND status = ?",
		filename, string(ingest.StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check upload %s: %w", filename, err)
	}

	return count > 0, nil
}

// RecordOutcome appends an entry to processed_uploads.
func (s *Store) RecordOutcome(ctx context.Context, u ingest.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rowCount sql.NullInt64
	if u.RowCount != nil {
		rowCount = sql.NullInt64{Int64: int64(*u.RowCount), Valid: true}
	}
	ingestedAt := u.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_uploads (id, filename, ingested_at, row_count, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Filename,
		ingestedAt.Format(timestampLayout),
		rowCount,
		string(u.Status),
		nullString(&u.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to record upload %s: %w", u.Filename, err)
	}

	return nil
}

// RecentUploads returns the newest entries first.
func (s *Store) RecentUploads(ctx context.Context, limit int) ([]ingest.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, ingested_at, row_count, status, error_message
		FROM processed_uploads
		ORDER BY julianday(ingested_at) DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []ingest.Upload
	for rows.Next() {
		var (
			u            ingest.Upload
			ingestedAt   string
			rowCount     sql.NullInt64
			status       string
			errorMessage sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Filename, &ingestedAt, &rowCount, &status, &errorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}

		at, err := time.Parse(timestampLayout, ingestedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ingested_at of upload %s: %w", u.ID, err)
		}
		u.IngestedAt = at
		if rowCount.Valid {
			n := int(rowCount.Int64)
			u.RowCount = &n
		}
		u.Status = ingest.UploadStatus(status)
		u.ErrorMessage = errorMessage.String
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"roster_data", "processed_uploads"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
