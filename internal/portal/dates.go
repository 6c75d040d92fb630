package portal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/civicgrab/civicgrab/internal/browser"
)

var (
	// "Board of Trustees event on Wednesday, Aug. 13, 2025 6:00 PM"
	ariaDateRe = regexp.MustCompile(`([A-Za-z]+),?\s+([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})`)
	// "Aug 13, 2025"
	headingDateRe = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{4})`)
)

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// eventDate recovers a meeting's date from the link element. The portal
// exposes it in three places of decreasing reliability: a data-date ISO
// timestamp, the aria-label text, and the date-details heading. Returns the
// zero time when none parse.
func (c *Client) eventDate(link browser.Element) time.Time {
	if raw, ok := link.Attribute("data-date"); ok && raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return dateOnly(ts)
		}
	}

	if label, ok := link.Attribute("aria-label"); ok {
		if m := ariaDateRe.FindStringSubmatch(label); m != nil {
			if d, ok := buildDate(m[2], m[3], m[4]); ok {
				return d
			}
		}
	}

	if h, ok := link.QueryOne(c.profile.Selectors.EventDateBlock); ok {
		if m := headingDateRe.FindStringSubmatch(h.Text()); m != nil {
			if d, ok := buildDate(m[1], m[2], m[3]); ok {
				return d
			}
		}
	}

	return time.Time{}
}

func buildDate(monthName, dayStr, yearStr string) (time.Time, bool) {
	key := strings.ToLower(monthName)
	if len(key) > 3 {
		key = key[:3]
	}
	month, ok := monthAbbrevs[key]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func dateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
