package domain

import (
	"fmt"
	"time"
)

type SeriesStatus string

const (
	SeriesActive    SeriesStatus = "active"
	SeriesPaused    SeriesStatus = "paused"
	SeriesCancelled SeriesStatus = "cancelled"
)

func (s SeriesStatus) Valid() bool {
	switch s {
	case SeriesActive, SeriesPaused, SeriesCancelled:
		return true
	}
	return false
}

// Weekdays is a bitmask over time.Weekday (bit 0 = Sunday).
type Weekdays uint8

func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }
func (w Weekdays) Empty() bool             { return w&0x7f == 0 }

func WeekdaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

type RecurringSeries struct {
	ID              string
	OrgID           int64
	CustomerID      string
	WalkerID        string
	ServiceID       int64
	PetID           int64
	LocationID      int64
	Weekdays        Weekdays
	StartTime       string // "15:04", wall clock in Timezone
	Timezone        string // IANA name
	IntervalWeeks   int    // 1 = every week, 2 = every other week, ...
	StartsOn        time.Time
	EndsOn          *time.Time
	Occurrences     *int // total cap counted from StartsOn
	Status          SeriesStatus
	ExpandedThrough time.Time
	CreatedAt       time.Time
}

// OccurrenceTimes generates the series' occurrence start times with wall
// clock StartTime in the series timezone, from StartsOn through `through`
// inclusive. Occurrences strictly before `from` are counted against the
// Occurrences cap but not returned. max bounds the returned slice (0: no
// bound).
func (s RecurringSeries) OccurrenceTimes(from, through time.Time, max int) ([]time.Time, error) {
	if s.Weekdays.Empty() {
		return nil, fmt.Errorf("%w: series has no weekdays", ErrValidation)
	}
	interval := s.IntervalWeeks
	if interval < 1 {
		interval = 1
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timezone %q", ErrValidation, s.Timezone)
	}
	wall, err := time.ParseInLocation("15:04", s.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start time %q", ErrValidation, s.StartTime)
	}

	start := dateIn(s.StartsOn, loc)
	anchor := startOfWeek(start)
	var out []time.Time
	total := 0
	for d := start; !d.After(dateIn(through, loc)); d = d.AddDate(0, 0, 1) {
		if s.EndsOn != nil && d.After(dateIn(*s.EndsOn, loc)) {
			break
		}
		if !s.Weekdays.Has(d.Weekday()) {
			continue
		}
		if weeksBetween(anchor, d)%interval != 0 {
			continue
		}
		total++
		if s.Occurrences != nil && total > *s.Occurrences {
			break
		}
		at := time.Date(d.Year(), d.Month(), d.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
		if at.Before(from) {
			continue
		}
		out = append(out, at)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

// dateIn re-interprets t's calendar date as midnight in loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// startOfWeek truncates to the preceding Monday (weeks anchor on Monday so
// a Sat+Mon series with interval 2 keeps both days in the same week).
func startOfWeek(d time.Time) time.Time {
	delta := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -delta)
}

// weeksBetween counts calendar days in UTC so DST transitions inside the
// range cannot skew the week index.
func weeksBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours()/24) / 7
}
