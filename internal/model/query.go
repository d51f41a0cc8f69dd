package model

import (
	"time"
)

// RangeKind names a relative date range resolved at execution time.
type RangeKind string

const (
	RangeNone      RangeKind = ""
	RangeToday     RangeKind = "today"
	RangeYesterday RangeKind = "yesterday"
	RangeThisWeek  RangeKind = "this_week"
	RangeThisMonth RangeKind = "this_month"
	RangeLastMonth RangeKind = "last_month"
	RangeLastNDays RangeKind = "last_n_days"
)

// DateRange bounds a query by business date. Either a named relative range or
// explicit bounds; Resolve turns both into concrete half-open [From, To).
type DateRange struct {
	Kind RangeKind `json:"kind,omitempty"`
	Days int       `json:"days,omitempty"` // for RangeLastNDays
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// IsZero reports whether no date constraint was requested.
func (r DateRange) IsZero() bool {
	return r.Kind == RangeNone && r.From.IsZero() && r.To.IsZero()
}

// Resolve converts the range into concrete bounds relative to now.
func (r DateRange) Resolve(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch r.Kind {
	case RangeToday:
		return day, day.AddDate(0, 0, 1)
	case RangeYesterday:
		return day.AddDate(0, 0, -1), day
	case RangeThisWeek:
		// Week starts Monday.
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case RangeThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	case RangeLastMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0)
	case RangeLastNDays:
		days := r.Days
		if days <= 0 {
			days = 7
		}
		return day.AddDate(0, 0, -days), day.AddDate(0, 0, 1)
	}
	return r.From, r.To
}

// Filter carries the structured, parameterized constraints of a query.
// It never contains raw query-language text; the gateway maps it onto fixed
// parameterized statements.
type Filter struct {
	Range    DateRange `json:"range,omitempty"`
	Category string    `json:"category,omitempty"`
	LowStock bool      `json:"low_stock,omitempty"`
	TopN     int       `json:"top_n,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// QueryRequest is the validated representation of one data request. The Scope
// reference must equal the issuing session's scope; the gateway re-checks this
// at execution time so a forwarded or mutated request cannot widen access.
type QueryRequest struct {
	ID     string         `json:"id"`
	Domain Domain         `json:"domain"`
	Filter Filter         `json:"filter"`
	Scope  *BusinessScope `json:"scope"`
}

// QueryResult is a read-only snapshot of retrieved rows, tagged with the
// request that produced it. Rows beyond the configured cap are dropped and
// Truncated is set rather than silently discarding the fact.
type QueryResult struct {
	RequestID string           `json:"request_id"`
	Domain    Domain           `json:"domain"`
	Columns   []string         `json:"columns"`
	Rows      [][]any          `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	Summary   map[string]float64 `json:"summary,omitempty"`
}
