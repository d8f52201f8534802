/*
inbox.go - Drop-folder ingestion scheduler

PURPOSE:
  Periodically scans a folder for roster workbooks and ingests those that
  are new or were modified since the previous scan.

DESIGN:
  - Runs a background goroutine with a configurable scan interval
  - Scans once immediately on Start
  - Files seen for the first time go through normal skip-if-succeeded
    handling; files whose modification time changed are forced
  - Unsupported extensions and subdirectories are ignored

USAGE:
  inbox := NewInboxScheduler(dir, ingester)
  inbox.Start()
  // ... later
  inbox.Stop()

SEE ALSO:
  - ingester.go: Ingest
  - cmd/roster/main.go: Enabled by ROSTER_INBOX
*/
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/warp/roster-engine/sheet"
)

// InboxScheduler ingests workbooks dropped into a folder.
type InboxScheduler struct {
	Dir          string
	Ingester     *Ingester
	ScanInterval time.Duration

	seen   map[string]time.Time // filename -> modtime at last ingest
	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // guards lifecycle
	scanMu sync.Mutex // serializes scans
}

const defaultScanInterval = time.Minute

// NewInboxScheduler creates a scheduler scanning dir once a minute.
func NewInboxScheduler(dir string, ingester *Ingester) *InboxScheduler {
	return &InboxScheduler{
		Dir:          dir,
		Ingester:     ingester,
		ScanInterval: defaultScanInterval,
		seen:         make(map[string]time.Time),
	}
}

// Start begins scanning in the background.
func (s *InboxScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stop = make(chan struct{})
	if s.ScanInterval <= 0 {
		s.ScanInterval = defaultScanInterval
	}
	s.ticker = time.NewTicker(s.ScanInterval)
	s.wg.Add(1)

	go s.run(ctx)

	s.Ingester.logger().Info("inbox started", "dir", s.Dir, "interval", s.ScanInterval)
}

// Stop halts scanning and waits for an in-flight scan to finish its
// current file.
func (s *InboxScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Ingester.logger().Info("inbox stopped", "dir", s.Dir)
}

func (s *InboxScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.Scan(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.Scan(ctx)
		case <-s.stop:
			return
		}
	}
}

// Scan ingests new or modified workbooks once and returns their outcomes.
func (s *InboxScheduler) Scan(ctx context.Context) []Outcome {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.seen == nil {
		s.seen = make(map[string]time.Time)
	}
	logger := s.Ingester.logger().With("dir", s.Dir)

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		logger.Error("inbox scan failed", "err", err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var outcomes []Outcome
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() || !sheet.Supported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("stat failed", "filename", entry.Name(), "err", err)
			continue
		}

		modTime := info.ModTime()
		last, known := s.seen[entry.Name()]
		if known && last.Equal(modTime) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			logger.Warn("read failed", "filename", entry.Name(), "err", err)
			continue
		}

		// A file changed since we last ingested it is reprocessed even
		// though its name already succeeded.
		out := s.Ingester.Ingest(ctx, File{Name: entry.Name(), Data: data}, known)
		s.seen[entry.Name()] = modTime
		outcomes = append(outcomes, out)
	}

	if len(outcomes) > 0 {
		logger.Info("inbox scan complete", "files", len(outcomes))
	}
	return outcomes
}
