package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)

	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
	GetMembership(ctx context.Context, orgID int64, userID string) (Membership, error)
	EnsureMembership(ctx context.Context, m Membership) error

	ListIdentities(ctx context.Context, userID string) ([]Identity, error)
	GetIdentity(ctx context.Context, provider IdentityProvider, subject string) (Identity, error)
	LinkIdentity(ctx context.Context, i Identity) (Identity, error)
	UnlinkIdentity(ctx context.Context, userID string, identityID int64) error
}

type CatalogRepository interface {
	GetOrg(ctx context.Context, id int64) (Org, error)
	ListServices(ctx context.Context, orgID int64) ([]Service, error)
	GetService(ctx context.Context, orgID, id int64) (Service, error)
	ListLocations(ctx context.Context, orgID int64) ([]Location, error)
	GetLocation(ctx context.Context, orgID, id int64) (Location, error)
	GetPet(ctx context.Context, orgID, id int64) (Pet, error)
	GetBranding(ctx context.Context, orgID int64) (Branding, error)
	ListWalkerHours(ctx context.Context, orgID int64, walkerID string) ([]WalkerHours, error)
}

type BookingRepository interface {
	// CreateBooking runs the overlap check and insert in one transaction;
	// returns ErrConflict when the walker or pet is already booked.
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, orgID int64, id string) (Booking, error)
	ListBookings(ctx context.Context, q BookingsQuery) (BookingsPage, error)
	// ListWalkerBookingsBetween returns non-cancelled bookings touching
	// [from, to) for one walker.
	ListWalkerBookingsBetween(ctx context.Context, orgID int64, walkerID string, from, to time.Time) ([]Booking, error)
	// UpdateBookingStatus is conditional on the current status; returns
	// ErrConflict when the row moved underneath the caller.
	UpdateBookingStatus(ctx context.Context, orgID int64, id string, from, to BookingStatus) error
	CancelSeriesFrom(ctx context.Context, seriesID string, from time.Time) (int64, error)
}

type SeriesRepository interface {
	CreateSeries(ctx context.Context, s RecurringSeries) error
	GetSeries(ctx context.Context, orgID int64, id string) (RecurringSeries, error)
	ListSeries(ctx context.Context, orgID int64, customerID *string) ([]RecurringSeries, error)
	UpdateSeriesStatus(ctx context.Context, orgID int64, id string, status SeriesStatus) error
	// ListExpandable returns active series whose expanded_through lags the
	// horizon.
	ListExpandable(ctx context.Context, through time.Time) ([]RecurringSeries, error)
	SetExpandedThrough(ctx context.Context, id string, through time.Time) error
}

type PaymentRepository interface {
	GetPaymentConfig(ctx context.Context, orgID int64) (PaymentConfig, error)
	PutPaymentConfig(ctx context.Context, c PaymentConfig) error
	ListPaymentProviders(ctx context.Context, orgID int64) ([]PaymentProvider, error)
	CreatePaymentProvider(ctx context.Context, p PaymentProvider) (int64, error)
	DeletePaymentProvider(ctx context.Context, orgID, id int64) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	// SetNX stores v only when key is absent; reports whether it won.
	SetNX(ctx context.Context, key string, v any, ttlSec int) (bool, error)
	Del(ctx context.Context, key string) error
	// Incr bumps a counter, attaching ttl on first increment.
	Incr(ctx context.Context, key string, ttlSec int) (int64, error)
}

// Leg is one hop of a walker's day as estimated by the directions provider.
type Leg struct {
	Meters  int64
	Seconds int
}

type DirectionsClient interface {
	Leg(ctx context.Context, from, to Coords) (Leg, error)
}

type TokenIssuer interface {
	Issue(u User, ms []Membership) (token string, expiresAt time.Time, err error)
}
