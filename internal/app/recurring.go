package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pawtrail/internal/adapters/observability"
	"pawtrail/internal/domain"
)

const (
	previewMaxDates = 30
	previewHorizon  = 183 * 24 * time.Hour // six months
	idemKeyTTLSec   = 86400
)

type RecurringService struct {
	series   domain.SeriesRepository
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
	users    domain.UserRepository
	cache    domain.Cache
	horizon  time.Duration
}

func NewRecurringService(
	series domain.SeriesRepository,
	bookings domain.BookingRepository,
	catalog domain.CatalogRepository,
	users domain.UserRepository,
	cache domain.Cache,
	horizonDays int,
) *RecurringService {
	if horizonDays <= 0 {
		horizonDays = 28
	}
	return &RecurringService{
		series:   series,
		bookings: bookings,
		catalog:  catalog,
		users:    users,
		cache:    cache,
		horizon:  time.Duration(horizonDays) * 24 * time.Hour,
	}
}

type SeriesInput struct {
	WalkerID      string
	ServiceID     int64
	PetID         int64
	LocationID    int64
	Weekdays      domain.Weekdays
	StartTime     string // "15:04"
	Timezone      string
	IntervalWeeks int
	StartsOn      time.Time
	EndsOn        *time.Time
	Occurrences   *int
}

type PreviewDate struct {
	StartAt  time.Time
	EndAt    time.Time
	Conflict bool
}

// Preview generates the upcoming occurrence dates for a prospective series
// and flags the ones that would collide with the walker's existing bookings.
// Pure read: nothing is persisted.
func (s *RecurringService) Preview(ctx context.Context, actor Actor, in SeriesInput) ([]PreviewDate, error) {
	svc, err := s.catalog.GetService(ctx, actor.OrgID, in.ServiceID)
	if err != nil {
		return nil, err
	}
	candidate := s.seriesFromInput(actor, in)
	now := time.Now()
	times, err := candidate.OccurrenceTimes(now, now.Add(previewHorizon), previewMaxDates)
	if err != nil {
		return nil, err
	}
	out := make([]PreviewDate, 0, len(times))
	if len(times) == 0 {
		return out, nil
	}

	dur := time.Duration(svc.DurationMin) * time.Minute
	existing, err := s.bookings.ListWalkerBookingsBetween(ctx, actor.OrgID, in.WalkerID, times[0], times[len(times)-1].Add(dur))
	if err != nil {
		return nil, err
	}
	for _, at := range times {
		end := at.Add(dur)
		pd := PreviewDate{StartAt: at, EndAt: end}
		for _, b := range existing {
			if b.Overlaps(at, end) {
				pd.Conflict = true
				break
			}
		}
		out = append(out, pd)
	}
	return out, nil
}

type SeriesCreateResult struct {
	Series   domain.RecurringSeries
	Created  []domain.Booking
	Skipped  []time.Time
	Replayed bool
}

// Create persists a series and materializes the initial horizon. An
// idempotency key makes retries return the original series instead of
// double-booking.
func (s *RecurringService) Create(ctx context.Context, actor Actor, in SeriesInput, idemKey string) (SeriesCreateResult, error) {
	if err := s.validate(ctx, actor, in); err != nil {
		return SeriesCreateResult{}, err
	}

	ser := s.seriesFromInput(actor, in)
	ser.ID = uuid.NewString()

	var wonKey string
	if idemKey != "" {
		key := fmt.Sprintf("idem:series:%d:%s:%s", actor.OrgID, actor.UserID, idemKey)
		won, err := s.cache.SetNX(ctx, key, ser.ID, idemKeyTTLSec)
		if err != nil {
			return SeriesCreateResult{}, err
		}
		if !won {
			var storedID string
			if ok, _ := s.cache.Get(ctx, key, &storedID); ok {
				prev, err := s.series.GetSeries(ctx, actor.OrgID, storedID)
				if err != nil {
					return SeriesCreateResult{}, err
				}
				return SeriesCreateResult{Series: prev, Replayed: true}, nil
			}
		}
		if won {
			wonKey = key
		}
	}

	if err := s.series.CreateSeries(ctx, ser); err != nil {
		// the key must not outlive a failed create: a retry with the same
		// idempotency key gets a fresh attempt, not a dangling series ID
		if wonKey != "" {
			_ = s.cache.Del(ctx, wonKey)
		}
		return SeriesCreateResult{}, err
	}
	created, skipped, err := s.expand(ctx, ser, time.Now().Add(s.horizon))
	if err != nil {
		// series exists; expansion is retried by the background expander
		log.Warn().Err(err).Str("series", ser.ID).Msg("initial expansion incomplete")
	}
	return SeriesCreateResult{Series: ser, Created: created, Skipped: skipped}, nil
}

func (s *RecurringService) List(ctx context.Context, actor Actor) ([]domain.RecurringSeries, error) {
	if actor.Role.CanManageOrg() {
		return s.series.ListSeries(ctx, actor.OrgID, nil)
	}
	uid := actor.UserID
	return s.series.ListSeries(ctx, actor.OrgID, &uid)
}

func (s *RecurringService) Get(ctx context.Context, actor Actor, id string) (domain.RecurringSeries, error) {
	ser, err := s.series.GetSeries(ctx, actor.OrgID, id)
	if err != nil {
		return domain.RecurringSeries{}, err
	}
	if !actor.Role.CanManageOrg() && ser.CustomerID != actor.UserID {
		return domain.RecurringSeries{}, domain.ErrNotFound
	}
	return ser, nil
}

// UpdateStatus pauses, resumes or cancels a series. Cancelling also cancels
// the already-materialized future bookings.
func (s *RecurringService) UpdateStatus(ctx context.Context, actor Actor, id string, next domain.SeriesStatus) (domain.RecurringSeries, error) {
	if !next.Valid() {
		return domain.RecurringSeries{}, fmt.Errorf("%w: unknown series status %q", domain.ErrValidation, next)
	}
	ser, err := s.Get(ctx, actor, id)
	if err != nil {
		return domain.RecurringSeries{}, err
	}
	if ser.Status == domain.SeriesCancelled {
		return domain.RecurringSeries{}, fmt.Errorf("%w: series is cancelled", domain.ErrConflict)
	}
	if err := s.series.UpdateSeriesStatus(ctx, actor.OrgID, id, next); err != nil {
		return domain.RecurringSeries{}, err
	}
	ser.Status = next
	if next == domain.SeriesCancelled {
		n, err := s.bookings.CancelSeriesFrom(ctx, id, time.Now())
		if err != nil {
			return domain.RecurringSeries{}, err
		}
		log.Info().Str("series", id).Int64("cancelled", n).Msg("series cancelled")
	}
	return ser, nil
}

// ExpandSeries is the per-series entry point for the worker pool. Safe to
// run concurrently with API traffic because booking inserts carry the
// overlap guard.
func (s *RecurringService) ExpandSeries(ctx context.Context, ser domain.RecurringSeries, now time.Time) (created, skipped int, err error) {
	c, sk, err := s.expand(ctx, ser, now.Add(s.horizon))
	return len(c), len(sk), err
}

func (s *RecurringService) ListExpandable(ctx context.Context, now time.Time) ([]domain.RecurringSeries, error) {
	return s.series.ListExpandable(ctx, now.Add(s.horizon))
}

// expand inserts bookings for occurrences in (expandedThrough, through].
// A conflicting occurrence is skipped, not fatal: the customer keeps the
// rest of the series and the gap shows up in their bookings list.
func (s *RecurringService) expand(ctx context.Context, ser domain.RecurringSeries, through time.Time) (created []domain.Booking, skipped []time.Time, err error) {
	svc, err := s.catalog.GetService(ctx, ser.OrgID, ser.ServiceID)
	if err != nil {
		return nil, nil, err
	}
	from := time.Now()
	if ser.ExpandedThrough.After(from) {
		from = ser.ExpandedThrough
	}
	times, err := ser.OccurrenceTimes(from, through, 0)
	if err != nil {
		return nil, nil, err
	}
	dur := time.Duration(svc.DurationMin) * time.Minute
	for _, at := range times {
		b := domain.Booking{
			ID:         uuid.NewString(),
			OrgID:      ser.OrgID,
			ServiceID:  ser.ServiceID,
			CustomerID: ser.CustomerID,
			WalkerID:   ser.WalkerID,
			PetID:      ser.PetID,
			LocationID: ser.LocationID,
			SeriesID:   &ser.ID,
			StartAt:    at.UTC(),
			EndAt:      at.Add(dur).UTC(),
			Status:     domain.StatusConfirmed,
			PriceCents: svc.PriceCents,
		}
		if cerr := s.bookings.CreateBooking(ctx, b); cerr != nil {
			if errors.Is(cerr, domain.ErrConflict) {
				observability.BookingConflicts.WithLabelValues("series").Inc()
				skipped = append(skipped, at)
				continue
			}
			return created, skipped, cerr
		}
		observability.BookingsCreated.WithLabelValues("series").Inc()
		created = append(created, b)
	}
	if err := s.series.SetExpandedThrough(ctx, ser.ID, through); err != nil {
		return created, skipped, err
	}
	return created, skipped, nil
}

func (s *RecurringService) seriesFromInput(actor Actor, in SeriesInput) domain.RecurringSeries {
	return domain.RecurringSeries{
		OrgID:         actor.OrgID,
		CustomerID:    actor.UserID,
		WalkerID:      in.WalkerID,
		ServiceID:     in.ServiceID,
		PetID:         in.PetID,
		LocationID:    in.LocationID,
		Weekdays:      in.Weekdays,
		StartTime:     in.StartTime,
		Timezone:      in.Timezone,
		IntervalWeeks: in.IntervalWeeks,
		StartsOn:      in.StartsOn,
		EndsOn:        in.EndsOn,
		Occurrences:   in.Occurrences,
		Status:        domain.SeriesActive,
	}
}

func (s *RecurringService) validate(ctx context.Context, actor Actor, in SeriesInput) error {
	if in.Weekdays.Empty() {
		return fmt.Errorf("%w: at least one weekday is required", domain.ErrValidation)
	}
	if in.IntervalWeeks < 1 || in.IntervalWeeks > 8 {
		return fmt.Errorf("%w: interval_weeks must be 1..8", domain.ErrValidation)
	}
	if in.EndsOn != nil && in.EndsOn.Before(in.StartsOn) {
		return fmt.Errorf("%w: ends_on precedes starts_on", domain.ErrValidation)
	}
	if in.Occurrences != nil && *in.Occurrences < 1 {
		return fmt.Errorf("%w: occurrences must be positive", domain.ErrValidation)
	}
	svc, err := s.catalog.GetService(ctx, actor.OrgID, in.ServiceID)
	if err != nil {
		return err
	}
	if !svc.Active {
		return fmt.Errorf("%w: service is not bookable", domain.ErrValidation)
	}
	if _, err := s.catalog.GetLocation(ctx, actor.OrgID, in.LocationID); err != nil {
		return err
	}
	pet, err := s.catalog.GetPet(ctx, actor.OrgID, in.PetID)
	if err != nil {
		return err
	}
	if pet.OwnerID != actor.UserID {
		return domain.ErrNotFound
	}
	wm, err := s.users.GetMembership(ctx, actor.OrgID, in.WalkerID)
	if err != nil || wm.Role != domain.RoleWalker {
		return fmt.Errorf("%w: walker not available in this org", domain.ErrValidation)
	}
	return nil
}
