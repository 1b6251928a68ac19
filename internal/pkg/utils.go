package pkg

import (
	"fmt"
	"strings"
	"time"
)

var fallbackDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseCalendarDate accepts strict YYYY-MM-DD first, then a few free-form
// layouts. The result is anchored to loc and truncated to midnight.
func ParseCalendarDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return DayOf(t, loc), nil
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return DayOf(t, loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns b-a in whole calendar days. The calendar dates are
// re-anchored to UTC so DST transitions cannot skew the count.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
