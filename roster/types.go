/*
Package roster normalizes daily staffing roster spreadsheets into typed records.

PURPOSE:
  Roster reports arrive as header-less spreadsheets with merged unit rows,
  repeated header rows and blank separators. This package turns the raw cell
  grid into a flat list of Records ready to be persisted. It performs no I/O.

PIPELINE:
  RawGrid + filename
    -> Reshape      (drop marker column, forward-fill Unit, strip headers,
                     project positional columns, attach report date)
    -> TypeFields   (rename positions to fields, coerce types, require member id)
    -> []Record

KEY CONCEPTS IN THIS FILE (types.go):
  - Cell: a tagged spreadsheet value (empty, text, number, clock, date)
  - RawGrid: rows x positional columns, no header row
  - ReshapedRow: positional output of Reshape
  - Record: the persisted shape

CONCURRENCY:
  All functions are pure. Independent files may be normalized concurrently.

SEE ALSO:
  - dates.go: Report date extraction from filenames
  - reshape.go: Sheet reshaping
  - fields.go: Field typing
  - normalize.go: Entry point
*/
package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CELL - A single spreadsheet value
// =============================================================================

type CellKind int

const (
	KindEmpty CellKind = iota
	KindText
	KindNumber
	KindClock
	KindDate
)

func (k CellKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindClock:
		return "clock"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a tagged spreadsheet value. The zero Cell is empty, which is
// distinct from a zero number or an empty-looking text.
type Cell struct {
	Kind   CellKind
	Text   string          // Text value, or the raw text a Number was parsed from
	Number decimal.Decimal // Valid when Kind == KindNumber
	Clock  Clock           // Valid when Kind == KindClock
	Date   Date            // Valid when Kind == KindDate
}

// Constructors
func EmptyCell() Cell            { return Cell{} }
func TextCell(s string) Cell     { return Cell{Kind: KindText, Text: s} }
func ClockCell(c Clock) Cell     { return Cell{Kind: KindClock, Clock: c} }
func DateCell(d Date) Cell       { return Cell{Kind: KindDate, Date: d} }
func NumberCell(d decimal.Decimal) Cell {
	return Cell{Kind: KindNumber, Number: d}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }

// IsBlank reports whether the cell is empty or a whitespace-only text.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell's text form.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		if c.Text != "" {
			return c.Text
		}
		return c.Number.String()
	case KindClock:
		return c.Clock.String()
	case KindDate:
		return c.Date.String()
	default:
		return ""
	}
}

// Decimal returns the cell as a number. Text cells are parsed; other kinds
// are not numeric.
func (c Cell) Decimal() (decimal.Decimal, bool) {
	switch c.Kind {
	case KindNumber:
		return c.Number, true
	case KindText:
		d, err := decimal.NewFromString(strings.TrimSpace(c.Text))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// CellFromValue converts a decoded JSON value into a Cell.
func CellFromValue(v any) Cell {
	switch x := v.(type) {
	case nil:
		return EmptyCell()
	case Cell:
		return x
	case string:
		return TextCell(x)
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return Cell{Kind: KindNumber, Number: d, Text: x.String()}
		}
		return TextCell(x.String())
	case float64:
		return NumberCell(decimal.NewFromFloat(x))
	case float32:
		return NumberCell(decimal.NewFromFloat32(x))
	case int:
		return NumberCell(decimal.NewFromInt(int64(x)))
	case int64:
		return NumberCell(decimal.NewFromInt(x))
	case bool:
		return TextCell(strconv.FormatBool(x))
	case decimal.Decimal:
		return NumberCell(x)
	default:
		return TextCell(fmt.Sprint(x))
	}
}

// =============================================================================
// GRID - Raw, header-less cell matrix
// =============================================================================

// RawGrid is rows x positional columns. Rows may be ragged; missing trailing
// cells read as empty.
type RawGrid [][]Cell

// GridFromStrings builds a RawGrid of text cells.
func GridFromStrings(rows [][]string) RawGrid {
	grid := make(RawGrid, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, s := range row {
			cells[j] = TextCell(s)
		}
		grid[i] = cells
	}
	return grid
}

// Width returns the length of the longest row.
func (g RawGrid) Width() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// ReshapedRow is a positional row produced by Reshape: index 0 is column_1.
type ReshapedRow []Cell

// Column returns the cell at 1-based position pos, or an empty cell when the
// row is shorter.
func (r ReshapedRow) Column(pos int) Cell {
	if pos < 1 || pos > len(r) {
		return EmptyCell()
	}
	return r[pos-1]
}

// =============================================================================
// RECORD - The persisted shape
// =============================================================================

// Record is one normalized roster row. Every field except MemberID is
// optional; nil and invalid values serialize as JSON null.
type Record struct {
	Division   *string             `json:"division"`
	Rank       *string             `json:"rank"`
	MemberID   string              `json:"member_id"`
	Name       *string             `json:"name"`
	Code       *string             `json:"code"`
	Start      *string             `json:"start"`
	Through    *string             `json:"through"`
	Hours      decimal.NullDecimal `json:"hours"`
	RosterDate *string             `json:"roster_date"`
}

// MarshalJSON writes hours as a bare JSON number, or null when absent.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	hours := json.RawMessage("null")
	if r.Hours.Valid {
		hours = json.RawMessage(r.Hours.Decimal.String())
	}
	return json.Marshal(struct {
		plain
		Hours json.RawMessage `json:"hours"`
	}{plain(r), hours})
}
