/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ingestion model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

NUMBERS:
  Hours are decimals internally and JSON numbers on the wire. Absent values
  are null.

SEE ALSO:
  - handlers.go: Uses these types
  - roster/types.go: Record
*/
package api

import (
	"time"

	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO is one normalized roster row.
type RecordDTO struct {
	Division   *string  `json:"division"`
	Rank       *string  `json:"rank"`
	MemberID   string   `json:"member_id"`
	Name       *string  `json:"name"`
	Code       *string  `json:"code"`
	Start      *string  `json:"start"`
	Through    *string  `json:"through"`
	Hours      *float64 `json:"hours"`
	RosterDate *string  `json:"roster_date"`
}

// RecordsResponse wraps a record listing.
type RecordsResponse struct {
	Count   int         `json:"count"`
	Records []RecordDTO `json:"records"`
}

// NormalizeRequest carries a raw grid as JSON, one array per row.
// Cells may be strings, numbers or null.
type NormalizeRequest struct {
	Filename string  `json:"filename"`
	Grid     [][]any `json:"grid"`
}

// =============================================================================
// UPLOADS
// =============================================================================

// OutcomeDTO reports the result of one uploaded file.
type OutcomeDTO struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	RowCount int    `json:"row_count"`
	Error    string `json:"error,omitempty"`
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Files     []OutcomeDTO `json:"files"`
}

// UploadDTO is one processed-uploads log entry.
type UploadDTO struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	IngestedAt   string `json:"ingested_at"`
	RowCount     *int   `json:"row_count"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DivisionHoursDTO is one division's slice of the summary.
type DivisionHoursDTO struct {
	Division string  `json:"division"`
	Entries  int     `json:"entries"`
	Hours    float64 `json:"hours"`
}

// SummaryDTO aggregates the filtered records.
type SummaryDTO struct {
	Entries         int                `json:"entries"`
	DistinctMembers int                `json:"distinct_members"`
	TotalHours      float64            `json:"total_hours"`
	Divisions       []DivisionHoursDTO `json:"divisions"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRecordDTO(rec roster.Record) RecordDTO {
	dto := RecordDTO{
		Division:   rec.Division,
		Rank:       rec.Rank,
		MemberID:   rec.MemberID,
		Name:       rec.Name,
		Code:       rec.Code,
		Start:      rec.Start,
		Through:    rec.Through,
		RosterDate: rec.RosterDate,
	}
	if rec.Hours.Valid {
		h := rec.Hours.Decimal.InexactFloat64()
		dto.Hours = &h
	}
	return dto
}

func toRecordsResponse(records []roster.Record) RecordsResponse {
	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toRecordDTO(rec))
	}
	return RecordsResponse{Count: len(dtos), Records: dtos}
}

func toUploadResponse(outcomes []ingest.Outcome) UploadResponse {
	resp := UploadResponse{Files: make([]OutcomeDTO, 0, len(outcomes))}
	for _, out := range outcomes {
		dto := OutcomeDTO{
			Filename: out.Filename,
			Status:   string(out.Status),
			RowCount: out.RowCount,
		}
		if out.Err != nil {
			dto.Error = out.Err.Error()
		}
		switch out.Status {
		case ingest.StatusSuccess:
			resp.Processed++
		case ingest.StatusSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
		resp.Files = append(resp.Files, dto)
	}
	return resp
}

func toUploadDTO(u ingest.Upload) UploadDTO {
	return UploadDTO{
		ID:           u.ID,
		Filename:     u.Filename,
		IngestedAt:   u.IngestedAt.Format(time.RFC3339),
		RowCount:     u.RowCount,
		Status:       string(u.Status),
		ErrorMessage: u.ErrorMessage,
	}
}

func toSummaryDTO(s ingest.Summary) SummaryDTO {
	dto := SummaryDTO{
		Entries:         s.Entries,
		DistinctMembers: s.DistinctMembers,
		TotalHours:      s.TotalHours.InexactFloat64(),
		Divisions:       make([]DivisionHoursDTO, 0, len(s.Divisions)),
	}
	for _, d := range s.Divisions {
		dto.Divisions = append(dto.Divisions, DivisionHoursDTO{
			Division: d.Division,
			Entries:  d.Entries,
			Hours:    d.Hours.InexactFloat64(),
		})
	}
	return dto
}

// gridFromJSON converts decoded JSON rows into a raw grid. Numbers must be
// decoded as json.Number so their text survives.
func gridFromJSON(rows [][]any) roster.RawGrid {
	grid := make(roster.RawGrid, len(rows))
	for i, row := range rows {
		cells := make([]roster.Cell, len(row))
		for j, v := range row {
			cells[j] = roster.CellFromValue(v)
		}
		grid[i] = cells
	}
	return grid
}
