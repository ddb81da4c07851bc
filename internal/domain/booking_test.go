package domain

import (
	"testing"
	"time"
)

func TestBookingOverlapsHalfOpen(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 9, 1, h, m, 0, 0, time.UTC)
	}
	b := Booking{StartAt: at(10, 0), EndAt: at(10, 30)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", at(10, 0), at(10, 30), true},
		{"inside", at(10, 10), at(10, 20), true},
		{"straddles start", at(9, 45), at(10, 15), true},
		{"straddles end", at(10, 15), at(10, 45), true},
		{"covers", at(9, 0), at(11, 0), true},
		{"back-to-back before", at(9, 30), at(10, 0), false},
		{"back-to-back after", at(10, 30), at(11, 0), false},
		{"earlier", at(8, 0), at(9, 0), false},
		{"later", at(11, 0), at(12, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Overlaps(tc.start, tc.end); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestBookingStatusTransitions(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusInProgress}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusInProgress, StatusCompleted}: true,
	}
	all := []BookingStatus{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]BookingStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
}
