/*
ingester.go - Per-file ingestion with outcome logging

PURPOSE:
  Turns uploaded workbook bytes into persisted roster records. Each file is
  handled in isolation: a failure is logged against that file and the batch
  moves on.

FLOW (per file):
  1. Reduce the filename to its base name
  2. Unless forced, skip files whose name already has a logged success
  3. Decode the workbook into a raw grid
  4. Normalize the grid
  5. Insert all records in one batch
  6. Log the outcome (success with row count, error with message)

OUTCOMES:
  success  rows inserted, RowCount = inserted count
  skipped  already succeeded, logged with RowCount 0
  error    unreadable, structural, or persistence failure; RowCount nil

SEE ALSO:
  - store.go: Store contract
  - inbox.go: Drop-folder scheduler that feeds Ingest
  - api/handlers.go: Upload endpoint
*/
package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/warp/roster-engine/roster"
)

// SheetReader decodes workbook bytes into a raw grid.
type SheetReader interface {
	ReadGrid(filename string, data []byte) (roster.RawGrid, error)
}

// File is one uploaded workbook.
type File struct {
	Name string
	Data []byte
}

// Outcome reports what happened to one file.
type Outcome struct {
	Filename string
	Status   UploadStatus
	RowCount int
	Err      error
}

// Ingester normalizes and persists roster workbooks.
type Ingester struct {
	Store      Store
	Reader     SheetReader
	Normalizer *roster.Normalizer
	Logger     *log.Logger
	Metrics    *Metrics       // optional
	Location   *time.Location // zone of IngestedAt; UTC when nil
	Now        func() time.Time

	locksMu sync.Mutex
	locks   map[string]*fileLock
}

// fileLock serializes ingests of one filename. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type fileLock struct {
	mu   sync.Mutex
	refs int
}

// NewIngester creates an Ingester with the default normalizer.
func NewIngester(store Store, reader SheetReader, logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingester{
		Store:      store,
		Reader:     reader,
		Normalizer: roster.NewNormalizer(),
		Logger:     logger.With("component", "ingest"),
		Now:        time.Now,
	}
}

// IngestBatch ingests files sequentially, in order. Cancelling ctx stops the
// batch between files; the outcomes gathered so far are returned.
func (in *Ingester) IngestBatch(ctx context.Context, files []File, force bool) []Outcome {
	outcomes := make([]Outcome, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			in.logger().Warn("batch cancelled", "remaining", len(files)-len(outcomes))
			break
		}
		outcomes = append(outcomes, in.Ingest(ctx, f, force))
	}
	return outcomes
}

// Ingest processes a single file. It never panics on bad input and always
// attempts to log the outcome. Concurrent calls for the same filename run
// one at a time, so a second unforced call sees the first one's success.
func (in *Ingester) Ingest(ctx context.Context, f File, force bool) Outcome {
	name := BaseName(f.Name)
	logger := in.logger().With("filename", name)

	unlock := in.lockFile(name)
	defer unlock()

	if !force {
		done, err := in.Store.HasSucceeded(ctx, name)
		switch {
		case err != nil:
			logger.Warn("succeeded check failed, processing anyway", "err", err)
		case done:
			out := Outcome{Filename: name, Status: StatusSkipped}
			in.finish(ctx, logger, out)
			return out
		}
	}

	count, err := in.process(ctx, name, f.Data)
	out := Outcome{Filename: name, Status: StatusSuccess, RowCount: count}
	if err != nil {
		out = Outcome{Filename: name, Status: StatusError, Err: err}
	}
	in.finish(ctx, logger, out)
	return out
}

func (in *Ingester) lockFile(name string) func() {
	in.locksMu.Lock()
	if in.locks == nil {
		in.locks = make(map[string]*fileLock)
	}
	l, ok := in.locks[name]
	if !ok {
		l = &fileLock{}
		in.locks[name] = l
	}
	l.refs++
	in.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		in.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(in.locks, name)
		}
		in.locksMu.Unlock()
	}
}

func (in *Ingester) process(ctx context.Context, name string, data []byte) (int, error) {
	grid, err := in.Reader.ReadGrid(name, data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	start := time.Now()
	records, err := in.normalizer().Normalize(grid, name)
	in.Metrics.observeNormalize(time.Since(start))
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	n, err := in.Store.InsertRecords(ctx, records)
	if err != nil {
		return 0, &PersistenceError{Filename: name, Err: err}
	}
	return n, nil
}

func (in *Ingester) finish(ctx context.Context, logger *log.Logger, out Outcome) {
	upload := Upload{
		ID:         uuid.NewString(),
		Filename:   out.Filename,
		Status:     out.Status,
		IngestedAt: in.now(),
	}
	if out.Err != nil {
		upload.ErrorMessage = out.Err.Error()
	} else {
		rows := out.RowCount
		upload.RowCount = &rows
	}

	if err := in.Store.RecordOutcome(ctx, upload); err != nil {
		logger.Warn("failed to log upload outcome", "status", out.Status, "err", err)
	}
	in.Metrics.countOutcome(out)

	switch out.Status {
	case StatusError:
		logger.Error("ingest failed", "err", out.Err)
	case StatusSkipped:
		logger.Info("already processed, skipped")
	default:
		logger.Info("ingested", "rows", out.RowCount)
	}
}

func (in *Ingester) now() time.Time {
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

func (in *Ingester) logger() *log.Logger {
	if in.Logger == nil {
		return log.Default()
	}
	return in.Logger
}

func (in *Ingester) normalizer() *roster.Normalizer {
	if in.Normalizer == nil {
		return roster.NewNormalizer()
	}
	return in.Normalizer
}

// BaseName strips any directory part from an uploaded filename, accepting
// both slash styles.
func BaseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
