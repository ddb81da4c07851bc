package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pawtrail/internal/adapters/observability"
	"pawtrail/internal/domain"
)

// Actor is the authenticated caller resolved by the HTTP layer: user plus
// the org the request is scoped to and the caller's role there.
type Actor struct {
	UserID string
	OrgID  int64
	Role   domain.Role
}

type BookingService struct {
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
	users    domain.UserRepository
}

func NewBookingService(b domain.BookingRepository, c domain.CatalogRepository, u domain.UserRepository) *BookingService {
	return &BookingService{bookings: b, catalog: c, users: u}
}

type CreateBookingInput struct {
	ServiceID  int64
	WalkerID   string
	PetID      int64
	LocationID int64
	StartAt    time.Time
}

// Create validates and books one walk for the acting customer. Admins may
// book on behalf of a customer via CreateFor.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (domain.Booking, error) {
	return s.create(ctx, actor, actor.UserID, in)
}

func (s *BookingService) CreateFor(ctx context.Context, actor Actor, customerID string, in CreateBookingInput) (domain.Booking, error) {
	if customerID != actor.UserID && !actor.Role.CanManageOrg() {
		return domain.Booking{}, domain.ErrForbidden
	}
	return s.create(ctx, actor, customerID, in)
}

func (s *BookingService) create(ctx context.Context, actor Actor, customerID string, in CreateBookingInput) (domain.Booking, error) {
	if !in.StartAt.After(time.Now()) {
		return domain.Booking{}, fmt.Errorf("%w: start must be in the future", domain.ErrValidation)
	}
	svc, err := s.catalog.GetService(ctx, actor.OrgID, in.ServiceID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !svc.Active {
		return domain.Booking{}, fmt.Errorf("%w: service is not bookable", domain.ErrValidation)
	}
	if _, err := s.catalog.GetLocation(ctx, actor.OrgID, in.LocationID); err != nil {
		return domain.Booking{}, err
	}
	pet, err := s.catalog.GetPet(ctx, actor.OrgID, in.PetID)
	if err != nil {
		return domain.Booking{}, err
	}
	if pet.OwnerID != customerID {
		// foreign pet looks like a missing one to avoid existence leaks
		return domain.Booking{}, domain.ErrNotFound
	}
	wm, err := s.users.GetMembership(ctx, actor.OrgID, in.WalkerID)
	if err != nil || wm.Role != domain.RoleWalker {
		return domain.Booking{}, fmt.Errorf("%w: walker not available in this org", domain.ErrValidation)
	}

	end := in.StartAt.Add(time.Duration(svc.DurationMin) * time.Minute)
	if err := s.checkWorkingHours(ctx, actor.OrgID, in.WalkerID, in.StartAt, end); err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		ID:         uuid.NewString(),
		OrgID:      actor.OrgID,
		ServiceID:  svc.ID,
		CustomerID: customerID,
		WalkerID:   in.WalkerID,
		PetID:      in.PetID,
		LocationID: in.LocationID,
		StartAt:    in.StartAt.UTC(),
		EndAt:      end.UTC(),
		Status:     domain.StatusPending,
		PriceCents: svc.PriceCents,
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.BookingConflicts.WithLabelValues("direct").Inc()
		}
		return domain.Booking{}, err
	}
	observability.BookingsCreated.WithLabelValues("direct").Inc()
	return b, nil
}

// checkWorkingHours requires one weekly window to cover [start, end) in the
// walker's org. A walker with no configured hours accepts any time.
func (s *BookingService) checkWorkingHours(ctx context.Context, orgID int64, walkerID string, start, end time.Time) error {
	hours, err := s.catalog.ListWalkerHours(ctx, orgID, walkerID)
	if err != nil {
		return err
	}
	if len(hours) == 0 {
		return nil
	}
	org, err := s.catalog.GetOrg(ctx, orgID)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		loc = time.UTC
	}
	ls, le := start.In(loc), end.In(loc)
	startMin := ls.Hour()*60 + ls.Minute()
	endMin := startMin + int(le.Sub(ls).Minutes())
	for _, h := range hours {
		if h.Weekday == ls.Weekday() && h.StartMin <= startMin && endMin <= h.EndMin {
			return nil
		}
	}
	return fmt.Errorf("%w: outside walker working hours", domain.ErrValidation)
}

func (s *BookingService) Get(ctx context.Context, actor Actor, id string) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, actor.OrgID, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !s.canSee(actor, b) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *BookingService) canSee(actor Actor, b domain.Booking) bool {
	return actor.Role.CanManageOrg() || b.CustomerID == actor.UserID || b.WalkerID == actor.UserID
}

// List returns the caller's bookings; admins and owners see the whole org.
func (s *BookingService) List(ctx context.Context, actor Actor, q domain.BookingsQuery) (domain.BookingsPage, error) {
	q.OrgID = actor.OrgID
	if !actor.Role.CanManageOrg() {
		uid := actor.UserID
		q.CustomerID = &uid
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	return s.bookings.ListBookings(ctx, q)
}

// ListForWalker returns the acting walker's upcoming assignments.
func (s *BookingService) ListForWalker(ctx context.Context, actor Actor, q domain.BookingsQuery) (domain.BookingsPage, error) {
	q.OrgID = actor.OrgID
	q.CustomerID = nil
	uid := actor.UserID
	q.WalkerID = &uid
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	return s.bookings.ListBookings(ctx, q)
}

// UpdateStatus drives the booking state machine. Walkers move their own
// walks forward, customers cancel their own, admins do anything legal.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, id string, next domain.BookingStatus) (domain.Booking, error) {
	if !next.Valid() {
		return domain.Booking{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, next)
	}
	b, err := s.bookings.GetBooking(ctx, actor.OrgID, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !s.canSee(actor, b) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if !b.Status.CanTransitionTo(next) {
		return domain.Booking{}, fmt.Errorf("%w: cannot move %s booking to %s", domain.ErrConflict, b.Status, next)
	}
	if !s.mayTransition(actor, b, next) {
		return domain.Booking{}, domain.ErrForbidden
	}
	if err := s.bookings.UpdateBookingStatus(ctx, actor.OrgID, id, b.Status, next); err != nil {
		return domain.Booking{}, err
	}
	b.Status = next
	return b, nil
}

func (s *BookingService) mayTransition(actor Actor, b domain.Booking, next domain.BookingStatus) bool {
	if actor.Role.CanManageOrg() {
		return true
	}
	switch next {
	case domain.StatusCancelled:
		return b.CustomerID == actor.UserID || b.WalkerID == actor.UserID
	case domain.StatusConfirmed, domain.StatusInProgress, domain.StatusCompleted:
		return b.WalkerID == actor.UserID
	}
	return false
}
