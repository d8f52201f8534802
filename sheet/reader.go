/*
Package sheet decodes uploaded roster workbooks into raw cell grids.

PURPOSE:
  Rosters are exported as .xlsx (current) or .xls (legacy) workbooks with a
  single relevant sheet and no header row. The reader returns the first
  sheet as a roster.RawGrid of text cells, exactly as displayed.

FORMATS:
  .xlsx, .xlsm   excelize
  .xls           extrame/xls

SEE ALSO:
  - roster/types.go: RawGrid
  - ingest/ingester.go: Uses Reader per uploaded file
*/
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/warp/roster-engine/roster"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoWorksheet       = errors.New("no worksheet found")
)

// maxXLSRows bounds legacy workbook reads.
const maxXLSRows = 100000

// Reader decodes workbook bytes. The zero value reads the first sheet.
type Reader struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string
}

// NewReader returns a Reader for the first sheet.
func NewReader() *Reader {
	return &Reader{}
}

// Supported reports whether filename has a readable extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	default:
		return false
	}
}

// ReadGrid decodes data according to the extension of filename.
func (r *Reader) ReadGrid(filename string, data []byte) (roster.RawGrid, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = r.readXLSX(data)
	case ".xls":
		rows, err = r.readXLS(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return roster.GridFromStrings(rows), nil
}

func (r *Reader) readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	name := r.Sheet
	if name == "" {
		name = file.GetSheetName(0)
	}
	if name == "" {
		return nil, ErrNoWorksheet
	}
	return file.GetRows(name)
}

func (r *Reader) readXLS(data []byte) (rows [][]string, err error) {
	// extrame/xls panics on some malformed BIFF records.
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("malformed xls workbook: %v", p)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}

	index := 0
	if r.Sheet != "" {
		index = -1
		for i := 0; i < workbook.NumSheets(); i++ {
			if ws := workbook.GetSheet(i); ws != nil && ws.Name == r.Sheet {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoWorksheet, r.Sheet)
		}
	}

	ws := workbook.GetSheet(index)
	if ws == nil {
		return nil, ErrNoWorksheet
	}
	rows = make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow) && i < maxXLSRows; i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
