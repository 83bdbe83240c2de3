// Package temporal resolves natural-language time phrases inside a search
// query into an inclusive publication-date range.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

// DefaultWindowDays is the lookback window used when no phrase matches.
const DefaultWindowDays = 30

// RuleDefault tags a range produced by the fallback window rather than a
// recognized phrase.
const RuleDefault = "default"

// matcher is one recognized phrase pattern. Matchers run in a fixed order
// and the first match wins, regardless of where its phrase sits in the
// query text.
type matcher struct {
	rule  string
	match func(query string, now time.Time) (domain.DateRange, bool)
}

// Parser turns query text plus an explicit reference date into a DateRange.
// Parse is a pure function of its two inputs: the reference date is always
// injected, never read from the wall clock, so results are reproducible.
type Parser struct {
	windowDays int
	matchers   []matcher
}

// New creates a parser. windowDays sets the fallback window for queries
// with no recognized time phrase; values below 1 use DefaultWindowDays.
func New(windowDays int) *Parser {
	if windowDays < 1 {
		windowDays = DefaultWindowDays
	}
	p := &Parser{windowDays: windowDays}
	p.matchers = []matcher{
		{rule: "explicit_year", match: matchExplicitYear},
		{rule: "month_year", match: matchMonthYear},
		{rule: "last_week", match: matchLastWeek},
		{rule: "yesterday", match: matchYesterday},
		{rule: "this_month", match: matchThisMonth},
		{rule: "last_month", match: matchLastMonth},
	}
	return p
}

// Parse resolves text into a date range relative to now. It never fails:
// unrecognized input gets the default lookback window.
func (p *Parser) Parse(text string, now time.Time) domain.DateRange {
	r, _ := p.Resolve(text, now)
	return r
}

// Resolve is Parse plus the name of the rule that produced the range,
// for logging and for exercising the precedence contract in isolation.
func (p *Parser) Resolve(text string, now time.Time) (domain.DateRange, string) {
	query := strings.ToLower(text)
	for _, m := range p.matchers {
		if r, ok := m.match(query, now); ok {
			return r, m.rule
		}
	}
	return domain.NewDateRange(now.AddDate(0, 0, -p.windowDays), now), RuleDefault
}

var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bin (\d{4})\b`),
	regexp.MustCompile(`\byear (\d{4})\b`),
	regexp.MustCompile(`\b(\d{4}) year\b`),
}

var monthYearPattern = regexp.MustCompile(`\b([a-z]+) (\d{4})\b`)

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// matchExplicitYear handles "in 2023", "year 2023" and "2023 year",
// producing the full calendar year.
func matchExplicitYear(query string, _ time.Time) (domain.DateRange, bool) {
	for _, pat := range yearPatterns {
		m := pat.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		year, ok := parseYear(m[1])
		if !ok {
			continue
		}
		return yearRange(year), true
	}
	return domain.DateRange{}, false
}

// matchMonthYear handles "march 2022" style phrases, producing that
// calendar month. A word that is not a month name degrades to the full
// captured year, mirroring the explicit-year rule.
func matchMonthYear(query string, _ time.Time) (domain.DateRange, bool) {
	m := monthYearPattern.FindStringSubmatch(query)
	if m == nil {
		return domain.DateRange{}, false
	}
	year, ok := parseYear(m[2])
	if !ok {
		return domain.DateRange{}, false
	}
	month, ok := monthsByName[m[1]]
	if !ok {
		return yearRange(year), true
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return domain.NewDateRange(start, end), true
}

func matchLastWeek(query string, now time.Time) (domain.DateRange, bool) {
	if !strings.Contains(query, "last week") {
		return domain.DateRange{}, false
	}
	return domain.NewDateRange(now.AddDate(0, 0, -7), now), true
}

func matchYesterday(query string, now time.Time) (domain.DateRange, bool) {
	if !strings.Contains(query, "yesterday") {
		return domain.DateRange{}, false
	}
	d := now.AddDate(0, 0, -1)
	return domain.NewDateRange(d, d), true
}

func matchThisMonth(query string, now time.Time) (domain.DateRange, bool) {
	if !strings.Contains(query, "this month") {
		return domain.DateRange{}, false
	}
	y, m, _ := now.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return domain.NewDateRange(start, now), true
}

func matchLastMonth(query string, now time.Time) (domain.DateRange, bool) {
	if !strings.Contains(query, "last month") {
		return domain.DateRange{}, false
	}
	y, m, _ := now.UTC().Date()
	firstOfThis := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end := firstOfThis.AddDate(0, 0, -1)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	return domain.NewDateRange(start, end), true
}

// parseYear validates a captured 4-digit year. Non-positive years reject
// so the matcher falls through instead of producing a bogus range.
func parseYear(s string) (int, bool) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 {
		return 0, false
	}
	return year, true
}

func yearRange(year int) domain.DateRange {
	return domain.NewDateRange(
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	)
}
