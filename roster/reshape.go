/*
reshape.go - Header-less roster grid to positional rows

PURPOSE:
  A roster sheet looks like this (first column is a marker, no header row):

    | x | Engine 5 |      |       |     |     |       |       |   |
    | x | RANK     | ID   | NAME  | ... |     |       |       |   |
    | x | Capt     | 1234 | Smith |     | 24  | 08:00 | 17:00 | 9 |
    | x |          |      |       |     |     |       |       |   |
    | x | Truck 2  |      |       |     |     |       |       |   |
    | x | ..FF     | 5678 | Jones |     | SL  | 07:00 | 19:00 | 12|

  Reshape turns it into rows of Unit, the kept positional columns and the
  report date:

    | Engine 5 | Capt | 1234 | Smith | 24 | 08:00:00 | 17:00:00 | 9  | 2025-06-10 |
    | Truck 2  | FF   | 5678 | Jones | SL | 07:00:00 | 19:00:00 | 12 | 2025-06-10 |

STEPS (order matters):
  1. Drop the marker column; the rest become column_1..column_N.
  2. Blank and whitespace-only cells become empty.
  3. Unit: rows with column_2 and column_3 empty are unit headers; their
     column_1 is carried down onto following rows.
  4. Drop repeated "RANK"/"ID" header rows and separator rows.
  5. Forward-fill column_1; drop rows still lacking it.
  6. Keep Unit plus KeepPositions (positions beyond the grid are skipped).
  7. Type positions: 1 strips leading dots, 2 is text, 6 and 7 are HH:MM
     clocks, 8 is a number. Unparseable values become empty.
  8. Resolve the report date from the filename.
  9. Emit Unit, kept columns in KeepPositions order, Date.

FAILURES:
  Bad cells degrade to empty and bad rows are dropped. Only a grid with no
  data columns is an error (StructuralError).
*/
package roster

import (
	"regexp"
	"strings"
)

// DefaultKeepPositions skips position 4. The reason is not documented in the
// source rosters; keep it configurable.
var DefaultKeepPositions = []int{1, 2, 3, 5, 6, 7, 8}

// Positions given special typing in step 7.
const (
	posRank        = 1
	posMemberID    = 2
	posStartTime   = 6
	posEndTime     = 7
	posHoursWorked = 8
)

// ReshapeOptions tunes Reshape. The zero value uses the defaults.
type ReshapeOptions struct {
	// KeepPositions lists positional columns (1-based, after dropping the
	// marker column) to keep, in output order. Nil means DefaultKeepPositions.
	KeepPositions []int

	// DateRegex, when set and matching the filename, supplies the report date
	// from its first capture group, parsed permissively.
	DateRegex *regexp.Regexp

	// DatePatterns replaces the default filename rules when non-nil.
	DatePatterns []DatePattern

	// AllowFuzzyDate enables the month-name fallback.
	AllowFuzzyDate bool
}

func (o ReshapeOptions) keepPositions() []int {
	if o.KeepPositions == nil {
		return DefaultKeepPositions
	}
	return o.KeepPositions
}

// Reshape converts a raw grid into positional rows of
// Unit, the kept columns and Date.
func Reshape(grid RawGrid, filename string, opts ReshapeOptions) ([]ReshapedRow, error) {
	width := grid.Width()
	if width < 2 {
		return nil, &StructuralError{Filename: filename, Reason: ErrNoColumns}
	}
	ncols := width - 1

	// Steps 1-2: drop the marker column and normalize blanks.
	rows := make([][]Cell, len(grid))
	for i, raw := range grid {
		row := make([]Cell, ncols)
		for j := range row {
			if j+1 < len(raw) && !raw[j+1].IsBlank() {
				row[j] = raw[j+1]
			}
		}
		rows[i] = row
	}

	// Step 3: carry unit headers down.
	units := make([]Cell, len(rows))
	if ncols >= 3 {
		var current Cell
		for i, row := range rows {
			if isSeparator(row) && !row[0].IsEmpty() {
				current = row[0]
			}
			units[i] = current
		}
	}

	// Step 4: drop repeated headers and separators.
	type unitRow struct {
		unit  Cell
		cells []Cell
	}
	kept := make([]unitRow, 0, len(rows))
	for i, row := range rows {
		if isHeaderRow(row) || (ncols >= 3 && isSeparator(row)) {
			continue
		}
		kept = append(kept, unitRow{unit: units[i], cells: row})
	}

	// Step 5: forward-fill column_1, drop rows still lacking it.
	filled := kept[:0]
	var last Cell
	for _, r := range kept {
		if r.cells[0].IsEmpty() {
			r.cells[0] = last
		} else {
			last = r.cells[0]
		}
		if r.cells[0].IsEmpty() {
			continue
		}
		filled = append(filled, r)
	}

	// Step 6: positions present in the grid.
	var positions []int
	for _, pos := range opts.keepPositions() {
		if pos >= 1 && pos <= ncols {
			positions = append(positions, pos)
		}
	}

	// Step 8: one date for the whole file.
	dateCell := EmptyCell()
	if d, ok := ResolveReportDate(filename, opts); ok {
		dateCell = DateCell(d)
	}

	// Steps 7 and 9.
	out := make([]ReshapedRow, 0, len(filled))
	for _, r := range filled {
		row := make(ReshapedRow, 0, len(positions)+2)
		row = append(row, r.unit)
		for _, pos := range positions {
			row = append(row, typePosition(pos, r.cells[pos-1]))
		}
		row = append(row, dateCell)
		out = append(out, row)
	}
	return out, nil
}

// ResolveReportDate applies the explicit DateRegex first, then the
// DateExtractor rules.
func ResolveReportDate(filename string, opts ReshapeOptions) (Date, bool) {
	if opts.DateRegex != nil {
		if m := opts.DateRegex.FindStringSubmatch(filename); len(m) >= 2 {
			if d, ok := parseLoose(m[1]); ok {
				return d, true
			}
		}
	}
	return DateExtractor{Patterns: opts.DatePatterns, AllowFuzzy: opts.AllowFuzzyDate}.Extract(filename)
}

// isSeparator reports a row whose column_2 and column_3 are both empty.
// Before filtering these rows double as unit headers.
func isSeparator(row []Cell) bool {
	return len(row) >= 3 && row[1].IsEmpty() && row[2].IsEmpty()
}

func isHeaderRow(row []Cell) bool {
	if len(row) < 2 {
		return false
	}
	return upperTrim(row[0]) == "RANK" && upperTrim(row[1]) == "ID"
}

func upperTrim(c Cell) string { return strings.ToUpper(strings.TrimSpace(c.String())) }

// typePosition applies step 7 to the cell taken from position pos.
func typePosition(pos int, c Cell) Cell {
	switch pos {
	case posRank:
		s := strings.TrimSpace(strings.TrimLeft(c.String(), "."))
		if s == "" {
			return EmptyCell()
		}
		return TextCell(s)
	case posMemberID:
		if c.IsEmpty() {
			return c
		}
		return TextCell(c.String())
	case posStartTime, posEndTime:
		if c.Kind == KindClock {
			return c
		}
		if clock, ok := ParseClock(c.String()); ok {
			return ClockCell(clock)
		}
		return EmptyCell()
	case posHoursWorked:
		if d, ok := c.Decimal(); ok {
			return NumberCell(d)
		}
		return EmptyCell()
	default:
		return c
	}
}
