package app

import (
	"context"
	"fmt"
	"time"

	"pawtrail/internal/domain"
)

const slotGridMin = 15

type AvailabilityService struct {
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
	cache    domain.Cache
}

func NewAvailabilityService(b domain.BookingRepository, c domain.CatalogRepository, cache domain.Cache) *AvailabilityService {
	return &AvailabilityService{bookings: b, catalog: c, cache: cache}
}

// Slots computes the walker's free windows on one date: weekly working hours
// minus existing bookings, sliced to the service duration on a 15-minute
// grid. Slots already in the past are dropped.
func (s *AvailabilityService) Slots(ctx context.Context, orgID int64, walkerID string, serviceID int64, date string) ([]domain.Slot, error) {
	key := fmt.Sprintf("slots:%d:%s:%d:%s", orgID, walkerID, serviceID, date)
	var cached []domain.Slot
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	svc, err := s.catalog.GetService(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}
	org, err := s.catalog.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}

	hours, err := s.catalog.ListWalkerHours(ctx, orgID, walkerID)
	if err != nil {
		return nil, err
	}
	var windows []minuteSpan
	for _, h := range hours {
		if h.Weekday == day.Weekday() {
			windows = append(windows, minuteSpan{h.StartMin, h.EndMin})
		}
	}
	if len(windows) == 0 {
		return []domain.Slot{}, nil
	}

	booked, err := s.bookings.ListWalkerBookingsBetween(ctx, orgID, walkerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	var busy []minuteSpan
	for _, b := range booked {
		busy = append(busy, minuteSpan{
			wallMinute(day, b.StartAt.In(loc)),
			wallMinute(day, b.EndAt.In(loc)),
		})
	}

	dur := svc.DurationMin
	now := time.Now().In(loc)
	slots := []domain.Slot{}
	for _, w := range windows {
		for _, free := range subtractSpans(w, busy) {
			for t := roundUp(free.start, slotGridMin); t+dur <= free.end; t += slotGridMin {
				// wall clock, not elapsed minutes: the two differ on
				// DST-change days and booking create checks wall clock
				startAt := time.Date(day.Year(), day.Month(), day.Day(), t/60, t%60, 0, 0, loc)
				if !startAt.After(now) {
					continue
				}
				slots = append(slots, domain.Slot{
					StartAt: startAt,
					EndAt:   startAt.Add(time.Duration(dur) * time.Minute),
				})
			}
		}
	}

	if s.cache != nil {
		// short TTL: bookings created elsewhere must surface quickly
		_ = s.cache.Set(ctx, key, slots, 60)
	}
	return slots, nil
}

// minuteSpan is [start, end) in wall-clock minutes within the day.
type minuteSpan struct{ start, end int }

// wallMinute clamps t into the day so overnight bookings subtract correctly.
// t must already be in the org's location.
func wallMinute(day, t time.Time) int {
	if t.Before(day) {
		return 0
	}
	if !t.Before(day.AddDate(0, 0, 1)) {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}

// subtractSpans removes the busy spans from w, returning the remaining free
// pieces in order.
func subtractSpans(w minuteSpan, busy []minuteSpan) []minuteSpan {
	free := []minuteSpan{w}
	for _, b := range busy {
		var next []minuteSpan
		for _, f := range free {
			if b.end <= f.start || f.end <= b.start {
				next = append(next, f)
				continue
			}
			if f.start < b.start {
				next = append(next, minuteSpan{f.start, b.start})
			}
			if b.end < f.end {
				next = append(next, minuteSpan{b.end, f.end})
			}
		}
		free = next
	}
	return free
}

func roundUp(v, grid int) int {
	if r := v % grid; r != 0 {
		return v + grid - r
	}
	return v
}
