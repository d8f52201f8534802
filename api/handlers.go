/*
handlers.go - HTTP API handlers for roster ingestion

PURPOSE:
  Exposes roster ingestion and the dashboard via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the ingest and
  roster packages.

ENDPOINTS:
  Ingestion:
    POST   /api/uploads     Upload one or more workbooks (multipart "files")
    GET    /api/uploads     Recent processed-uploads log
    POST   /api/preview     Normalize a workbook without persisting
    POST   /api/normalize   Normalize a JSON grid without persisting

  Dashboard:
    GET    /api/records     Filtered records
    GET    /api/summary     Hours per division over filtered records

  Ops:
    GET    /api/health      Liveness and store reachability

FILTER PARAMETERS (records, summary):
  from, to   YYYY-MM-DD, inclusive, on roster_date
  name       case-insensitive substring
  code       repeatable
  division   repeatable
  limit      maximum rows

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, unreadable or structurally invalid workbook
  - 401: Missing or wrong app password
  - 413: Upload too large
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/roster"
)

const (
	defaultUploadLimit = 20
	defaultRecordLimit = 5000
	defaultMaxUpload   = 32 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          ingest.Store
	Ingester       *ingest.Ingester
	MaxUploadBytes int64
	Logger         *log.Logger
}

// NewHandler creates a handler around an ingester and its store.
func NewHandler(ingester *ingest.Ingester) *Handler {
	logger := ingester.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		Store:          ingester.Store,
		Ingester:       ingester,
		MaxUploadBytes: defaultMaxUpload,
		Logger:         logger.With("component", "api"),
	}
}

// =============================================================================
// INGESTION HANDLERS
// =============================================================================

// Upload ingests every file in the multipart "files" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded", nil)
		return
	}

	force := false
	if v := r.FormValue("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid force flag", err)
			return
		}
		force = parsed
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload "+fh.Filename, err)
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Data: data})
	}

	outcomes := h.Ingester.IngestBatch(r.Context(), files, force)
	writeJSON(w, http.StatusOK, toUploadResponse(outcomes))
}

// ListUploads returns the most recent processed-uploads entries.
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultUploadLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", err)
		return
	}

	uploads, err := h.Store.RecentUploads(r.Context(), limit)
	if err != nil {
		h.internalError(w, "failed to list uploads", err)
		return
	}

	dtos := make([]UploadDTO, 0, len(uploads))
	for _, u := range uploads {
		dtos = append(dtos, toUploadDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Preview normalizes the multipart "file" field and returns the records
// without persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file expected", nil)
		return
	}

	data, err := readPart(headers[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	name := ingest.BaseName(headers[0].Filename)
	grid, err := h.Ingester.Reader.ReadGrid(name, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable spreadsheet", err)
		return
	}

	h.writeNormalized(w, grid, name)
}

// Normalize runs the pipeline over a grid sent as JSON.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.writeNormalized(w, gridFromJSON(req.Grid), req.Filename)
}

func (h *Handler) writeNormalized(w http.ResponseWriter, grid roster.RawGrid, filename string) {
	records, err := h.normalizer().Normalize(grid, filename)
	if err != nil {
		if roster.IsStructural(err) {
			writeError(w, http.StatusBadRequest, "invalid roster layout", err)
			return
		}
		h.internalError(w, "failed to normalize", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordsResponse(records))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// ListRecords returns stored records matching the query filters.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, defaultRecordLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err)
		return
	}

	records, err := h.Store.QueryRecords(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to query records", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordsResponse(records))
}

// GetSummary aggregates hours per division over the filtered records.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err)
		return
	}

	records, err := h.Store.QueryRecords(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to query records", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(ingest.Summarize(records)))
}

// =============================================================================
// OPS HANDLERS
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.Logger.Error(message, "err", err)
	writeError(w, http.StatusInternalServerError, message, err)
}

// parseMultipart bounds the body and parses the form. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) ||
			strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", err)
		return false
	}
	return true
}

func (h *Handler) normalizer() *roster.Normalizer {
	if h.Ingester.Normalizer != nil {
		return h.Ingester.Normalizer
	}
	return roster.NewNormalizer()
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("limit must not be negative: %d", n)
	}
	return n, nil
}

func parseFilter(r *http.Request, defaultLimit int) (ingest.RecordFilter, error) {
	q := r.URL.Query()
	filter := ingest.RecordFilter{
		Name:      q.Get("name"),
		Codes:     q["code"],
		Divisions: q["division"],
	}

	for _, p := range []struct {
		key  string
		dest **roster.Date
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		d, err := roster.ParseDate(v)
		if err != nil {
			return filter, fmt.Errorf("%s: %w", p.key, err)
		}
		*p.dest = &d
	}

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("to %s is before from %s", filter.To, filter.From)
	}

	limit, err := parseLimit(r, defaultLimit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	return filter, nil
}
