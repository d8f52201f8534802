/*
dates.go - Report date extraction from roster filenames

PURPOSE:
  Roster files carry their report date only in the filename, in whatever
  form the person exporting the file typed it:

    Roster Report.6.10.2025.xlsx
    roster 2025-06-10.xlsx
    Roster June 10 2025.xls

  DateExtractor walks an ordered table of (regex, layouts) rules. The first
  rule whose regex matches AND whose capture parses with one of its layouts
  wins. Rule order decides precedence, not position in the filename.

FUZZY FALLBACK:
  When no rule parses and AllowFuzzy is set, a filename containing a month
  name is searched for a month-name date phrase which is parsed month-first.

ABSENCE:
  "No date" is an expected outcome, reported with ok == false. Extraction
  never fails with an error.
*/
package roster

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DatePattern is one extraction rule. Layouts are Go reference layouts tried
// in order against the first capture group of Regex.
type DatePattern struct {
	Regex   *regexp.Regexp
	Layouts []string
}

// DefaultDatePatterns returns the built-in rules: YYYY-M-D, M.D.YYYY or
// M-D-YYYY, M/D/YYYY, then YYYY.M.D.
func DefaultDatePatterns() []DatePattern {
	return []DatePattern{
		{Regex: regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2})`), Layouts: []string{"2006-1-2"}},
		{Regex: regexp.MustCompile(`(\d{1,2}[.-]\d{1,2}[.-]\d{4})`), Layouts: []string{"1.2.2006", "1-2-2006"}},
		{Regex: regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`), Layouts: []string{"1/2/2006"}},
		{Regex: regexp.MustCompile(`(\d{4}[.-]\d{1,2}[.-]\d{1,2})`), Layouts: []string{"2006.1.2", "2006-1-2"}},
	}
}

var (
	monthToken = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)

	// Month-name phrases: month-first, day-first, then year-first.
	fuzzyPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?[\s_.-]+\d{1,2}(?:st|nd|rd|th)?,?[\s_.-]+\d{4}`),
		regexp.MustCompile(`(?i)\d{1,2}(?:st|nd|rd|th)?[\s_.-]+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?[\s_.-]+\d{4}`),
		regexp.MustCompile(`(?i)\d{4}[\s_.,-]+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?[\s_.-]+\d{1,2}(?:st|nd|rd|th)?\b`),
	}
	ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)`)
	phraseSeps    = regexp.MustCompile(`[\s_.,-]+`)
)

// DateExtractor derives a calendar date from a filename.
type DateExtractor struct {
	// Patterns replaces the defaults when non-nil. An empty, non-nil slice
	// disables pattern matching entirely.
	Patterns   []DatePattern
	AllowFuzzy bool
}

// ExtractDate runs the default rules without the fuzzy fallback.
func ExtractDate(filename string) (Date, bool) {
	return DateExtractor{}.Extract(filename)
}

// Extract returns the report date embedded in filename.
func (e DateExtractor) Extract(filename string) (Date, bool) {
	patterns := e.Patterns
	if patterns == nil {
		patterns = DefaultDatePatterns()
	}

	for _, p := range patterns {
		if p.Regex == nil {
			continue
		}
		m := p.Regex.FindStringSubmatch(filename)
		if len(m) < 2 {
			continue
		}
		for _, layout := range p.Layouts {
			if t, err := time.Parse(layout, m[1]); err == nil {
				return DateOf(t), true
			}
		}
	}

	if e.AllowFuzzy && monthToken.MatchString(filename) {
		return fuzzyDate(filename)
	}
	return Date{}, false
}

// fuzzyLayouts are tried on a month-name phrase once separators are reduced
// to single spaces.
var fuzzyLayouts = []string{
	"January 2 2006", "Jan 2 2006",
	"2 January 2006", "2 Jan 2006",
	"2006 January 2", "2006 Jan 2",
}

// fuzzyDate finds a month-name date phrase in s and parses it.
func fuzzyDate(s string) (Date, bool) {
	for _, re := range fuzzyPhrases {
		phrase := re.FindString(s)
		if phrase == "" {
			continue
		}
		if d, ok := parseLoose(ordinalSuffix.ReplaceAllString(phrase, "$1")); ok {
			return d, true
		}
	}
	return Date{}, false
}

// parseLoose parses a free-form date string. Month-name phrases are tried
// against fixed layouts first; anything else goes to dateparse, which reads
// ambiguous numeric dates month-first.
func parseLoose(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	spaced := strings.TrimSpace(phraseSeps.ReplaceAllString(s, " "))
	for _, layout := range fuzzyLayouts {
		if t, err := time.Parse(layout, spaced); err == nil {
			return DateOf(t), true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}
