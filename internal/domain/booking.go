package domain

import "time"

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// transitions is the full booking lifecycle; anything absent is a conflict.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID         string
	OrgID      int64
	ServiceID  int64
	CustomerID string
	WalkerID   string
	PetID      int64
	LocationID int64
	SeriesID   *string
	StartAt    time.Time
	EndAt      time.Time
	Status     BookingStatus
	PriceCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps uses half-open [StartAt, EndAt) semantics: back-to-back walks touch
// but do not conflict.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.EndAt)
}

type BookingsQuery struct {
	OrgID      int64
	CustomerID *string // nil: whole org (admin view)
	WalkerID   *string
	Status     *BookingStatus
	From, To   *time.Time
	Limit      int
	Cursor     *string // keyset: "<start_at unix>|<id>"
}

type BookingsPage struct {
	Items      []Booking
	NextCursor *string
}
