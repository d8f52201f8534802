/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Upload, skip-if-succeeded and force
- Preview and JSON normalization (nothing persisted)
- Record filters and summary
- Password gate, metrics endpoint, error responses
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/api"
	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/ingest/store"
	"github.com/warp/roster-engine/sheet"
	"github.com/xuri/excelize/v2"
)

const rosterFile = "Roster Report.6.10.2025.xlsx"

type testServer struct {
	router http.Handler
	store  *store.Memory
}

func newServer(t *testing.T, opts api.RouterOptions) *testServer {
	t.Helper()
	s := store.NewMemory()
	in := ingest.NewIngester(s, sheet.NewReader(), log.New(io.Discard))
	h := api.NewHandler(in)
	return &testServer{router: api.NewRouter(h, opts), store: s}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func workbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"x", "Engine 5"},
		{"x", "RANK", "ID", "NAME"},
		{"x", "Capt", "1234", "Smith", nil, "24", "08:00", "17:00", "9"},
		{"x", "FF", "5678", "Jones", nil, "OT", "08:00", "20:00", "12.5"},
		{"x", "Truck 2"},
		{"x", "Lt", "9012", "Brown", nil, "24", "07:00", "19:00", "12"},
	}
	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path string, parts []part, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUpload_IngestsAndSkipsRepeats(t *testing.T) {
	// GIVEN: a server with an empty store
	ts := newServer(t, api.RouterOptions{})
	data := workbook(t)

	// WHEN: uploading the same roster twice
	first := ts.do(t, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, data}}, nil))
	second := ts.do(t, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, data}}, nil))

	// THEN: the first is processed, the second skipped
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	resp := decode[api.UploadResponse](t, first)
	assert.Equal(t, 1, resp.Processed)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, 3, resp.Files[0].RowCount)

	resp = decode[api.UploadResponse](t, second)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, "skipped", resp.Files[0].Status)
}

func TestUpload_ForceAndMixedBatch(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})
	data := workbook(t)
	ts.do(t, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, data}}, nil))

	rec := ts.do(t, multipartRequest(t, "/api/uploads", []part{
		{"files", rosterFile, data},
		{"files", "broken.xlsx", []byte("not a workbook")},
	}, map[string]string{"force": "true"}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.UploadResponse](t, rec)
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "error", resp.Files[1].Status)
	assert.NotEmpty(t, resp.Files[1].Error)
}

func TestUpload_NoFiles(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})

	rec := ts.do(t, multipartRequest(t, "/api/uploads", nil, map[string]string{"force": "true"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no files uploaded", decode[api.ErrorResponse](t, rec).Error)
}

func TestListUploads(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})
	ts.do(t, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, workbook(t)}}, nil))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	uploads := decode[[]api.UploadDTO](t, rec)
	require.Len(t, uploads, 1)
	assert.Equal(t, rosterFile, uploads[0].Filename)
	assert.Equal(t, "success", uploads[0].Status)
	require.NotNil(t, uploads[0].RowCount)
	assert.Equal(t, 3, *uploads[0].RowCount)

	bad := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestPreview_DoesNotPersist(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})

	rec := ts.do(t, multipartRequest(t, "/api/preview", []part{{"file", rosterFile, workbook(t)}}, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.RecordsResponse](t, rec)
	require.Equal(t, 3, resp.Count)

	first := resp.Records[0]
	assert.Equal(t, "1234", first.MemberID)
	assert.Equal(t, "Engine 5", *first.Division)
	assert.Equal(t, "08:00:00", *first.Start)
	require.NotNil(t, first.Hours)
	assert.Equal(t, 9.0, *first.Hours)
	assert.Equal(t, "2025-06-10", *first.RosterDate)
	assert.Equal(t, "Truck 2", *resp.Records[2].Division)

	uploads, _ := ts.store.RecentUploads(t.Context(), 10)
	assert.Empty(t, uploads)
}

func TestPreview_Unreadable(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})

	rec := ts.do(t, multipartRequest(t, "/api/preview", []part{{"file", "r.csv", []byte("a,b")}}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalize_JSONGrid(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})
	body := `{
		"filename": "Roster 2025-06-10.xlsx",
		"grid": [
			["x", "Engine 5"],
			["x", "Capt", 1234, "Smith", null, "24", "08:00", "bad", 7.5]
		]
	}`

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.RecordsResponse](t, rec)
	require.Len(t, resp.Records, 1)
	r := resp.Records[0]
	assert.Equal(t, "1234", r.MemberID)
	assert.Nil(t, r.Through, "malformed time becomes null")
	assert.Equal(t, 7.5, *r.Hours)
	assert.Equal(t, "2025-06-10", *r.RosterDate)
}

func TestNormalize_Errors(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})

	bad := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	narrow := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/normalize",
		strings.NewReader(`{"filename":"r.xlsx","grid":[["x"],["x"]]}`)))
	assert.Equal(t, http.StatusBadRequest, narrow.Code)
	assert.Equal(t, "invalid roster layout", decode[api.ErrorResponse](t, narrow).Error)
}

func TestRecordsAndSummary(t *testing.T) {
	// GIVEN: one ingested roster
	ts := newServer(t, api.RouterOptions{})
	ts.do(t, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, workbook(t)}}, nil))

	// WHEN: filtering by division and code
	rec := ts.do(t, httptest.NewRequest(http.MethodGet,
		"/api/records?from=2025-06-10&to=2025-06-10&division=Engine+5&code=24&code=OT", nil))

	// THEN: only Engine 5 members come back
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[api.RecordsResponse](t, rec)
	assert.Equal(t, 2, records.Count)

	byName := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/records?name=brown", nil))
	assert.Equal(t, 1, decode[api.RecordsResponse](t, byName).Count)

	sum := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, sum.Code)
	summary := decode[api.SummaryDTO](t, sum)
	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, 3, summary.DistinctMembers)
	assert.Equal(t, 33.5, summary.TotalHours)
	require.Len(t, summary.Divisions, 2)
	assert.Equal(t, "Engine 5", summary.Divisions[0].Division)
	assert.Equal(t, 21.5, summary.Divisions[0].Hours)
}

func TestRecords_InvalidFilter(t *testing.T) {
	ts := newServer(t, api.RouterOptions{})

	for _, q := range []string{"from=06/10/2025", "from=2025-06-11&to=2025-06-10", "limit=abc"} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/records?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPasswordGate(t *testing.T) {
	ts := newServer(t, api.RouterOptions{Password: "s3cret"})

	denied := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	assert.Equal(t, http.StatusUnauthorized, denied.Code)

	wrong := httptest.NewRequest(http.MethodGet, "/api/uploads", nil)
	wrong.Header.Set(api.PasswordHeader, "nope")
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, wrong).Code)

	ok := httptest.NewRequest(http.MethodGet, "/api/uploads", nil)
	ok.Header.Set(api.PasswordHeader, "s3cret")
	assert.Equal(t, http.StatusOK, ts.do(t, ok).Code)

	health := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, health.Code, "health is not gated")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := store.NewMemory()
	in := ingest.NewIngester(s, sheet.NewReader(), log.New(io.Discard))
	in.Metrics = ingest.NewMetrics(reg)
	router := api.NewRouter(api.NewHandler(in), api.RouterOptions{Gatherer: reg})

	up := httptest.NewRecorder()
	router.ServeHTTP(up, multipartRequest(t, "/api/uploads", []part{{"files", rosterFile, workbook(t)}}, nil))
	require.Equal(t, http.StatusOK, up.Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `roster_files_total{status="success"} 1`)
	assert.Contains(t, rec.Body.String(), "roster_records_inserted_total 3")
}

func TestUpload_TooLarge(t *testing.T) {
	s := store.NewMemory()
	in := ingest.NewIngester(s, sheet.NewReader(), log.New(io.Discard))
	h := api.NewHandler(in)
	h.MaxUploadBytes = 1024
	router := api.NewRouter(h, api.RouterOptions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/api/uploads",
		[]part{{"files", rosterFile, bytes.Repeat([]byte("x"), 4096)}}, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
