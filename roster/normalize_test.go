package roster_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/roster"
)

func TestNormalize_EndToEnd(t *testing.T) {
	// GIVEN: a unit header followed by one member row
	grid := roster.GridFromStrings([][]string{
		{"x", "Engine 5", "", "", "", "", "", "", ""},
		{"x", "Capt", "1234", "Smith", "", "24", "08:00", "17:00", "9"},
	})

	// WHEN: normalizing a file named with the documented convention
	records, err := roster.Normalize(grid, "Roster Report.6.10.2025.xlsx")

	// THEN: one typed record carries the unit, fields and report date
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, strp("Engine 5"), rec.Division)
	assert.Equal(t, strp("Capt"), rec.Rank)
	assert.Equal(t, "1234", rec.MemberID)
	assert.Equal(t, strp("Smith"), rec.Name)
	assert.Equal(t, strp("24"), rec.Code)
	assert.Equal(t, strp("08:00:00"), rec.Start)
	assert.Equal(t, strp("17:00:00"), rec.Through)
	require.True(t, rec.Hours.Valid)
	assert.Equal(t, "9", rec.Hours.Decimal.String())
	assert.Equal(t, strp("2025-06-10"), rec.RosterDate)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hours":9`)
}

func TestNormalize_MalformedTimeKeepsRow(t *testing.T) {
	grid := roster.GridFromStrings([][]string{
		{"x", "Capt", "1234", "Smith", "", "24", "N/A", "17:00", "nine"},
	})

	records, err := roster.Normalize(grid, "Roster Report.6.10.2025.xlsx")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Start)
	assert.Equal(t, strp("17:00:00"), records[0].Through)
	assert.False(t, records[0].Hours.Valid)
}

func TestNormalize_Idempotent(t *testing.T) {
	grid := sampleGrid()
	n := roster.NewNormalizer()

	first, err := n.Normalize(grid, rosterFile)
	require.NoError(t, err)
	second, err := n.Normalize(grid, rosterFile)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].MemberID, second[i].MemberID)
		assert.Equal(t, first[i].Division, second[i].Division)
		assert.Equal(t, first[i].Start, second[i].Start)
		assert.Equal(t, first[i].RosterDate, second[i].RosterDate)
		assert.True(t, first[i].Hours.Decimal.Equal(second[i].Hours.Decimal))
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	grid := roster.GridFromStrings([][]string{
		{"x", "Engine 5", "", ""},
		{"x", "..Capt", "1", "A"},
		{"x", "", "2", "B"},
	})

	_, err := roster.Normalize(grid, rosterFile)
	require.NoError(t, err)

	assert.Equal(t, "..Capt", grid[1][1].String())
	assert.Equal(t, "", grid[2][1].String())
}

func TestNormalize_StructuralError(t *testing.T) {
	_, err := roster.Normalize(roster.GridFromStrings([][]string{{"only"}}), rosterFile)

	require.Error(t, err)
	assert.True(t, roster.IsStructural(err))
}

func TestNormalizer_Options(t *testing.T) {
	n := &roster.Normalizer{Options: roster.ReshapeOptions{AllowFuzzyDate: true}}
	grid := roster.GridFromStrings([][]string{
		{"x", "Capt", "1234", "Smith", "", "24", "08:00", "17:00", "9"},
	})

	records, err := n.Normalize(grid, "Roster June 10 2025.xlsx")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, strp("2025-06-10"), records[0].RosterDate)
}
