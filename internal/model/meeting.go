// Package model defines the core records passed between the portal scraper,
// the URL resolver, and the download orchestrator.
package model

import (
	"sort"
	"time"
)

// Meeting is one calendar entry exposed by the portal's event list.
// Meetings are immutable once enumerated.
type Meeting struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	URL   string    `json:"url"`
	Href  string    `json:"href"`
	Date  time.Time `json:"date"` // date precision, UTC; zero when unparseable
}

// HasDate reports whether the meeting's date could be parsed.
func (m Meeting) HasDate() bool { return !m.Date.IsZero() }

// FilterMeetings applies the optional date-range and most-recent-N filters.
// Bounds are inclusive; a zero time disables that bound. Meetings without a
// parsed date are dropped whenever a bound is set. The result is sorted by
// date descending (newest first) and, when maxCount > 0, truncated to at most
// maxCount entries. Both filters are independent and compose.
func FilterMeetings(ms []Meeting, start, end time.Time, maxCount int) []Meeting {
	out := make([]Meeting, 0, len(ms))
	for _, m := range ms {
		if !start.IsZero() || !end.IsZero() {
			if !m.HasDate() {
				continue
			}
			if !start.IsZero() && m.Date.Before(start) {
				continue
			}
			if !end.IsZero() && m.Date.After(end) {
				continue
			}
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})

	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}
