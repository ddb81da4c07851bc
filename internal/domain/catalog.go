package domain

import "time"

type Org struct {
	ID       int64
	Name     string
	Slug     string
	Timezone string // IANA name; wall-clock anchor for walker hours
}

type Branding struct {
	OrgID        int64
	DisplayName  string
	PrimaryColor string // "#rrggbb"
	AccentColor  string
	LogoURL      *string
}

type Service struct {
	ID          int64
	OrgID       int64
	Name        string
	Description *string
	DurationMin int
	PriceCents  int64
	Active      bool
}

type Location struct {
	ID      int64
	OrgID   int64
	Name    string
	Address *string
	Coords  Coords
}

type Coords struct{ Lat, Lon float64 }

type Pet struct {
	ID      int64
	OrgID   int64
	OwnerID string
	Name    string
	Breed   *string
	Size    *string // small|medium|large
	Notes   *string
}

// WalkerHours is one weekly working window, minutes from midnight local to
// the org. [StartMin, EndMin) half-open, matching booking overlap semantics.
type WalkerHours struct {
	WalkerID string
	OrgID    int64
	Weekday  time.Weekday
	StartMin int
	EndMin   int
}

// Slot is a free bookable window on a concrete date.
type Slot struct {
	StartAt time.Time
	EndAt   time.Time
}
