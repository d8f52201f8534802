package ingest_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/ingest/store"
	"github.com/warp/roster-engine/sheet"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func newInbox(t *testing.T, dir string) (*ingest.InboxScheduler, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	in := ingest.NewIngester(s, sheet.NewReader(), log.New(io.Discard))
	return ingest.NewInboxScheduler(dir, in), s
}

func TestInbox_ScanIngestsWorkbooks(t *testing.T) {
	// GIVEN: a drop folder with one roster and one unrelated file
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "Roster Report.6.10.2025.xlsx"), [][]any{
		{"x", "Engine 5"},
		{"x", "Capt", "1234", "Smith", nil, "24", "08:00", "17:00", "9"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	inbox, s := newInbox(t, dir)
	ctx := context.Background()

	// WHEN: scanning twice
	first := inbox.Scan(ctx)
	second := inbox.Scan(ctx)

	// THEN: the workbook is ingested once, the text file ignored
	require.Len(t, first, 1)
	assert.Equal(t, ingest.StatusSuccess, first[0].Status)
	assert.Equal(t, 1, first[0].RowCount)
	assert.Empty(t, second)

	records, err := s.QueryRecords(ctx, ingest.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestInbox_ModifiedFileIsReprocessed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Roster Report.6.10.2025.xlsx")
	writeWorkbook(t, path, [][]any{
		{"x", "Engine 5"},
		{"x", "Capt", "1234", "Smith", nil, "24", "08:00", "17:00", "9"},
	})

	inbox, _ := newInbox(t, dir)
	ctx := context.Background()
	require.Len(t, inbox.Scan(ctx), 1)

	// WHEN: the file is rewritten with a new modification time
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	// THEN: it is forced through despite the earlier success
	outcomes := inbox.Scan(ctx)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ingest.StatusSuccess, outcomes[0].Status)
}

func TestInbox_PreviouslySucceededFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), [][]any{{"x", "Engine 5"}})

	inbox, s := newInbox(t, dir)
	ctx := context.Background()
	require.NoError(t, s.RecordOutcome(ctx, ingest.Upload{Filename: "a.xlsx", Status: ingest.StatusSuccess}))

	outcomes := inbox.Scan(ctx)

	require.Len(t, outcomes, 1)
	assert.Equal(t, ingest.StatusSkipped, outcomes[0].Status)
}

func TestInbox_MissingDirectory(t *testing.T) {
	inbox, _ := newInbox(t, filepath.Join(t.TempDir(), "missing"))

	assert.Empty(t, inbox.Scan(context.Background()))
}

func TestInbox_StartStop(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), [][]any{{"x", "Engine 5"}})

	inbox, s := newInbox(t, dir)
	inbox.ScanInterval = time.Hour

	inbox.Start()
	assert.Eventually(t, func() bool {
		uploads, _ := s.RecentUploads(context.Background(), 10)
		return len(uploads) == 1
	}, 2*time.Second, 10*time.Millisecond)
	inbox.Stop()
	inbox.Stop()
}

func TestInbox_ZeroValueScheduler(t *testing.T) {
	// GIVEN: a scheduler built as a literal, with no interval
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), [][]any{{"x", "Engine 5"}})

	s := store.NewMemory()
	inbox := &ingest.InboxScheduler{
		Dir:      dir,
		Ingester: ingest.NewIngester(s, sheet.NewReader(), log.New(io.Discard)),
	}

	// WHEN: scanning directly and then starting it
	require.NotPanics(t, func() { inbox.Scan(context.Background()) })
	require.NotPanics(t, inbox.Start)
	inbox.Stop()

	// THEN: the interval falls back to the default
	assert.Equal(t, time.Minute, inbox.ScanInterval)
	uploads, err := s.RecentUploads(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, uploads)
}
