package roster

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Field names of a Record, by reshaped position (column_1 first).
var FieldNames = []string{
	"division",
	"rank",
	"member_id",
	"name",
	"code",
	"start",
	"through",
	"hours",
	"roster_date",
}

// TypeFields maps reshaped positions onto Record fields and coerces their
// types. Rows without a non-blank member id are dropped. Positions missing
// from a row leave the field absent.
func TypeFields(rows []ReshapedRow) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, ok := typeRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func typeRow(row ReshapedRow) (Record, bool) {
	memberID := strings.TrimSpace(row.Column(3).String())
	if memberID == "" {
		return Record{}, false
	}

	return Record{
		Division:   textField(row.Column(1)),
		Rank:       textField(row.Column(2)),
		MemberID:   row.Column(3).String(),
		Name:       textField(row.Column(4)),
		Code:       textField(row.Column(5)),
		Start:      textField(row.Column(6)),
		Through:    textField(row.Column(7)),
		Hours:      hoursField(row.Column(8)),
		RosterDate: dateField(row.Column(9)),
	}, true
}

// textField renders any present value as text; clocks come out as HH:MM:SS.
func textField(c Cell) *string {
	if c.IsEmpty() {
		return nil
	}
	s := c.String()
	return &s
}

func hoursField(c Cell) decimal.NullDecimal {
	if d, ok := c.Decimal(); ok {
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

func dateField(c Cell) *string {
	if c.Kind != KindDate {
		return nil
	}
	s := c.Date.String()
	return &s
}
