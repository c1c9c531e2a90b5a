package progress

import (
	"errors"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

var ErrRangeOrder = errors.New("range end is before start")

// Range is an inclusive day range. Comparison happens in Start's location.
type Range struct {
	Start time.Time
	End   time.Time
}

func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r Range) Contains(t time.Time) bool {
	loc := r.Start.Location()
	day := Day(t.In(loc))
	return !day.Before(Day(r.Start)) && !day.After(Day(r.End.In(loc)))
}

// Today is the single-day range around now.
func Today(now time.Time) Range {
	return Range{Start: Day(now), End: Day(now)}
}

// ParseRange accepts YYYY-MM-DD or RFC 3339 bounds. Empty bounds default to today.
func ParseRange(start, end string, now time.Time) (Range, error) {
	r := Today(now)
	if start != "" {
		t, err := parseDay(start, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("invalid start: %w", err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := parseDay(end, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("invalid end: %w", err)
		}
		r.End = t
	}
	if Day(r.End.In(r.Start.Location())).Before(Day(r.Start)) {
		return Range{}, ErrRangeOrder
	}
	return r, nil
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
