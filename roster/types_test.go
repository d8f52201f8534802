package roster_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/roster"
)

func TestCellFromValue(t *testing.T) {
	assert.True(t, roster.CellFromValue(nil).IsEmpty())
	assert.Equal(t, roster.KindText, roster.CellFromValue("Capt").Kind)
	assert.Equal(t, "true", roster.CellFromValue(true).String())

	n := roster.CellFromValue(json.Number("0123"))
	assert.Equal(t, roster.KindNumber, n.Kind)
	assert.Equal(t, "0123", n.String(), "raw text is preserved")

	f := roster.CellFromValue(12.0)
	assert.Equal(t, roster.KindNumber, f.Kind)
	assert.Equal(t, "12", f.String())
}

func TestCell_IsBlank(t *testing.T) {
	assert.True(t, roster.EmptyCell().IsBlank())
	assert.True(t, roster.TextCell(" \t ").IsBlank())
	assert.False(t, roster.TextCell("0").IsBlank())
	assert.False(t, roster.CellFromValue(0).IsBlank(), "zero is a value")
	assert.False(t, roster.TextCell(" \t ").IsEmpty(), "blank text is not yet empty")
}

func TestCell_Decimal(t *testing.T) {
	d, ok := roster.TextCell(" 7.5 ").Decimal()
	require.True(t, ok)
	assert.Equal(t, "7.5", d.String())

	_, ok = roster.TextCell("seven").Decimal()
	assert.False(t, ok)

	_, ok = roster.DateCell(roster.NewDate(2025, time.June, 10)).Decimal()
	assert.False(t, ok)
}

func TestGrid_Width(t *testing.T) {
	grid := roster.GridFromStrings([][]string{{"a"}, {"a", "b", "c"}, {}})
	assert.Equal(t, 3, grid.Width())
	assert.Equal(t, 0, roster.RawGrid(nil).Width())
}

func TestClockAndDate(t *testing.T) {
	c, ok := roster.ParseClock("8:05")
	require.True(t, ok)
	assert.Equal(t, "08:05:00", c.String())

	_, ok = roster.ParseClock("25:00")
	assert.False(t, ok)
	_, ok = roster.ParseClock("08:00:00")
	assert.False(t, ok, "only HH:MM is accepted")

	d, err := roster.ParseDate("2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, roster.NewDate(2025, time.June, 10), d)
	assert.True(t, d.Before(roster.NewDate(2025, time.June, 11)))

	_, err = roster.ParseDate("06/10/2025")
	assert.Error(t, err)
}
