package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"pawtrail/internal/domain"
)

type RouteService struct {
	bookings   domain.BookingRepository
	catalog    domain.CatalogRepository
	directions domain.DirectionsClient // nil: straight-line estimates only
	cache      domain.Cache
}

func NewRouteService(b domain.BookingRepository, c domain.CatalogRepository, d domain.DirectionsClient, cache domain.Cache) *RouteService {
	return &RouteService{bookings: b, catalog: c, directions: d, cache: cache}
}

type RouteStop struct {
	Booking domain.Booking
	Coords  domain.Coords
	// Leg from the previous stop (depot for the first stop).
	LegMeters  int64
	LegSeconds int
}

type RoutePlan struct {
	WalkerID    string
	Date        string
	Depot       domain.Coords
	Stops       []RouteStop
	TotalMeters int64
}

// DayRoute orders the walker's bookings for one date by greedy
// nearest-neighbor from the org's first location. Leg durations come from
// the directions provider when configured, falling back to a walking-pace
// estimate over the straight-line distance.
func (s *RouteService) DayRoute(ctx context.Context, orgID int64, walkerID, date string) (RoutePlan, error) {
	org, err := s.catalog.GetOrg(ctx, orgID)
	if err != nil {
		return RoutePlan{}, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return RoutePlan{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}

	locations, err := s.catalog.ListLocations(ctx, orgID)
	if err != nil {
		return RoutePlan{}, err
	}
	if len(locations) == 0 {
		return RoutePlan{}, fmt.Errorf("%w: org has no locations", domain.ErrValidation)
	}
	coordsByID := make(map[int64]domain.Coords, len(locations))
	for _, l := range locations {
		coordsByID[l.ID] = l.Coords
	}
	depot := locations[0].Coords

	bookings, err := s.bookings.ListWalkerBookingsBetween(ctx, orgID, walkerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return RoutePlan{}, err
	}

	plan := RoutePlan{WalkerID: walkerID, Date: date, Depot: depot}
	remaining := append([]domain.Booking(nil), bookings...)
	cur := depot
	for len(remaining) > 0 {
		best, bestDist := 0, math.MaxFloat64
		for i, b := range remaining {
			if d := haversineMeters(cur, coordsByID[b.LocationID]); d < bestDist {
				best, bestDist = i, d
			}
		}
		b := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		to := coordsByID[b.LocationID]
		leg := s.leg(ctx, cur, to)
		plan.Stops = append(plan.Stops, RouteStop{
			Booking:    b,
			Coords:     to,
			LegMeters:  leg.Meters,
			LegSeconds: leg.Seconds,
		})
		plan.TotalMeters += leg.Meters
		cur = to
	}
	return plan, nil
}

// leg resolves one hop, preferring the provider's walking estimate (cached)
// and falling back to haversine at 1.2 m/s.
func (s *RouteService) leg(ctx context.Context, from, to domain.Coords) domain.Leg {
	straight := int64(haversineMeters(from, to))
	fallback := domain.Leg{Meters: straight, Seconds: int(float64(straight) / 1.2)}
	if s.directions == nil {
		return fallback
	}
	key := fmt.Sprintf("leg:%.5f,%.5f:%.5f,%.5f", from.Lat, from.Lon, to.Lat, to.Lon)
	var cached domain.Leg
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached
		}
	}
	leg, err := s.directions.Leg(ctx, from, to)
	if err != nil {
		return fallback
	}
	if s.cache != nil {
		// road geometry is stable; cache for a day
		_ = s.cache.Set(ctx, key, leg, 86400)
	}
	return leg
}

const earthRadiusM = 6371000.0

func haversineMeters(a, b domain.Coords) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
