package ingest

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/roster-engine/roster"
)

// DivisionHours is the per-division slice of a Summary.
type DivisionHours struct {
	Division string
	Entries  int
	Hours    decimal.Decimal
}

// Summary aggregates a set of records for the dashboard.
type Summary struct {
	Entries         int
	DistinctMembers int
	TotalHours      decimal.Decimal
	Divisions       []DivisionHours // sorted by division name
}

// Summarize totals hours per division. Absent hours count as zero and
// records without a division are grouped under "".
func Summarize(records []roster.Record) Summary {
	members := make(map[string]struct{})
	byDivision := make(map[string]*DivisionHours)
	total := decimal.Zero

	for _, rec := range records {
		members[rec.MemberID] = struct{}{}

		division := ""
		if rec.Division != nil {
			division = *rec.Division
		}
		dh, ok := byDivision[division]
		if !ok {
			dh = &DivisionHours{Division: division, Hours: decimal.Zero}
			byDivision[division] = dh
		}
		dh.Entries++
		if rec.Hours.Valid {
			dh.Hours = dh.Hours.Add(rec.Hours.Decimal)
			total = total.Add(rec.Hours.Decimal)
		}
	}

	divisions := make([]DivisionHours, 0, len(byDivision))
	for _, dh := range byDivision {
		divisions = append(divisions, *dh)
	}
	sort.Slice(divisions, func(i, j int) bool {
		return divisions[i].Division < divisions[j].Division
	})

	return Summary{
		Entries:         len(records),
		DistinctMembers: len(members),
		TotalHours:      total,
		Divisions:       divisions,
	}
}
