package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pawtrail/internal/domain"
)

// fakeStore is an in-memory stand-in for every repository port, close enough
// to the MySQL semantics (uniqueness, overlap locking, keyset paging) for
// service-level tests.
type fakeStore struct {
	mu sync.Mutex

	users       map[string]domain.User
	memberships map[string][]domain.Membership
	identities  []domain.Identity
	nextIdentID int64

	orgs      map[int64]domain.Org
	services  map[int64]domain.Service
	locations map[int64]domain.Location
	pets      map[int64]domain.Pet
	hours     []domain.WalkerHours
	branding  map[int64]domain.Branding

	bookings map[string]domain.Booking
	series   map[string]domain.RecurringSeries

	createSeriesErr error // next CreateSeries fails with this

	paymentCfg map[int64]domain.PaymentConfig
	providers  map[int64]domain.PaymentProvider
	nextProvID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]domain.User{},
		memberships: map[string][]domain.Membership{},
		orgs:        map[int64]domain.Org{},
		services:    map[int64]domain.Service{},
		locations:   map[int64]domain.Location{},
		pets:        map[int64]domain.Pet{},
		branding:    map[int64]domain.Branding{},
		bookings:    map[string]domain.Booking{},
		series:      map[string]domain.RecurringSeries{},
		paymentCfg:  map[int64]domain.PaymentConfig{},
		providers:   map[int64]domain.PaymentProvider{},
	}
}

// ---- UserRepository ----

func (f *fakeStore) CreateUser(_ context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.users {
		if u.Email != nil && other.Email != nil && *u.Email == *other.Email {
			return domain.ErrConflict
		}
		if u.Phone != nil && other.Phone != nil && *u.Phone == *other.Phone {
			return domain.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeStore) GetUserByPhone(_ context.Context, phone string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone != nil && *u.Phone == phone {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeStore) ListMemberships(_ context.Context, userID string) ([]domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Membership(nil), f.memberships[userID]...), nil
}

func (f *fakeStore) GetMembership(_ context.Context, orgID int64, userID string) (domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memberships[userID] {
		if m.OrgID == orgID {
			return m, nil
		}
	}
	return domain.Membership{}, domain.ErrNotFound
}

func (f *fakeStore) EnsureMembership(_ context.Context, m domain.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.memberships[m.UserID] {
		if have.OrgID == m.OrgID {
			return nil
		}
	}
	f.memberships[m.UserID] = append(f.memberships[m.UserID], m)
	return nil
}

func (f *fakeStore) ListIdentities(_ context.Context, userID string) ([]domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Identity
	for _, i := range f.identities {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) GetIdentity(_ context.Context, provider domain.IdentityProvider, subject string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range f.identities {
		if i.Provider == provider && i.Subject == subject {
			return i, nil
		}
	}
	return domain.Identity{}, domain.ErrNotFound
}

func (f *fakeStore) LinkIdentity(_ context.Context, i domain.Identity) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.identities {
		if have.Provider == i.Provider && have.Subject == i.Subject {
			return domain.Identity{}, domain.ErrConflict
		}
	}
	f.nextIdentID++
	i.ID = f.nextIdentID
	i.CreatedAt = time.Now()
	f.identities = append(f.identities, i)
	return i, nil
}

func (f *fakeStore) UnlinkIdentity(_ context.Context, userID string, identityID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, i := range f.identities {
		if i.ID == identityID && i.UserID == userID {
			f.identities = append(f.identities[:n], f.identities[n+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- CatalogRepository ----

func (f *fakeStore) GetOrg(_ context.Context, id int64) (domain.Org, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[id]
	if !ok {
		return domain.Org{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) ListServices(_ context.Context, orgID int64) ([]domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Service
	for _, s := range f.services {
		if s.OrgID == orgID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetService(_ context.Context, orgID, id int64) (domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok || s.OrgID != orgID {
		return domain.Service{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListLocations(_ context.Context, orgID int64) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Location
	for _, l := range f.locations {
		if l.OrgID == orgID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetLocation(_ context.Context, orgID, id int64) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok || l.OrgID != orgID {
		return domain.Location{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) GetPet(_ context.Context, orgID, id int64) (domain.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pets[id]
	if !ok || p.OrgID != orgID {
		return domain.Pet{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetBranding(_ context.Context, orgID int64) (domain.Branding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.branding[orgID]
	if !ok {
		return domain.Branding{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ListWalkerHours(_ context.Context, orgID int64, walkerID string) ([]domain.WalkerHours, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WalkerHours
	for _, h := range f.hours {
		if h.OrgID == orgID && h.WalkerID == walkerID {
			out = append(out, h)
		}
	}
	return out, nil
}

// ---- BookingRepository ----

func (f *fakeStore) CreateBooking(_ context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.bookings {
		if have.OrgID != b.OrgID || have.Status == domain.StatusCancelled {
			continue
		}
		if have.WalkerID != b.WalkerID && have.PetID != b.PetID {
			continue
		}
		if have.Overlaps(b.StartAt, b.EndAt) {
			return domain.ErrConflict
		}
	}
	b.CreatedAt = time.Now()
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) GetBooking(_ context.Context, orgID int64, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.OrgID != orgID {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ListBookings(_ context.Context, q domain.BookingsQuery) (domain.BookingsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.Booking
	for _, b := range f.bookings {
		if b.OrgID != q.OrgID {
			continue
		}
		if q.CustomerID != nil && b.CustomerID != *q.CustomerID {
			continue
		}
		if q.WalkerID != nil && b.WalkerID != *q.WalkerID {
			continue
		}
		if q.Status != nil && b.Status != *q.Status {
			continue
		}
		if q.From != nil && b.StartAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !b.StartAt.Before(*q.To) {
			continue
		}
		items = append(items, b)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartAt.Equal(items[j].StartAt) {
			return items[i].StartAt.Before(items[j].StartAt)
		}
		return items[i].ID < items[j].ID
	})
	if q.Cursor != nil {
		parts := strings.SplitN(*q.Cursor, "|", 2)
		sec, _ := strconv.ParseInt(parts[0], 10, 64)
		after := time.Unix(sec, 0)
		var rest []domain.Booking
		for _, b := range items {
			if b.StartAt.After(after) || (b.StartAt.Unix() == sec && b.ID > parts[1]) {
				rest = append(rest, b)
			}
		}
		items = rest
	}
	page := domain.BookingsPage{Items: items}
	if q.Limit > 0 && len(items) > q.Limit {
		page.Items = items[:q.Limit]
		last := page.Items[q.Limit-1]
		c := fmt.Sprintf("%d|%s", last.StartAt.Unix(), last.ID)
		page.NextCursor = &c
	}
	return page, nil
}

func (f *fakeStore) ListWalkerBookingsBetween(_ context.Context, orgID int64, walkerID string, from, to time.Time) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.OrgID != orgID || b.WalkerID != walkerID || b.Status == domain.StatusCancelled {
			continue
		}
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (f *fakeStore) UpdateBookingStatus(_ context.Context, orgID int64, id string, from, to domain.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.OrgID != orgID {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.ErrConflict
	}
	b.Status = to
	f.bookings[id] = b
	return nil
}

func (f *fakeStore) CancelSeriesFrom(_ context.Context, seriesID string, from time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, b := range f.bookings {
		if b.SeriesID == nil || *b.SeriesID != seriesID || b.StartAt.Before(from) {
			continue
		}
		if b.Status == domain.StatusPending || b.Status == domain.StatusConfirmed {
			b.Status = domain.StatusCancelled
			f.bookings[id] = b
			n++
		}
	}
	return n, nil
}

// ---- SeriesRepository ----

func (f *fakeStore) CreateSeries(_ context.Context, s domain.RecurringSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createSeriesErr; err != nil {
		f.createSeriesErr = nil
		return err
	}
	s.CreatedAt = time.Now()
	f.series[s.ID] = s
	return nil
}

func (f *fakeStore) GetSeries(_ context.Context, orgID int64, id string) (domain.RecurringSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok || s.OrgID != orgID {
		return domain.RecurringSeries{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSeries(_ context.Context, orgID int64, customerID *string) ([]domain.RecurringSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RecurringSeries
	for _, s := range f.series {
		if s.OrgID != orgID {
			continue
		}
		if customerID != nil && s.CustomerID != *customerID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateSeriesStatus(_ context.Context, orgID int64, id string, status domain.SeriesStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok || s.OrgID != orgID {
		return domain.ErrNotFound
	}
	s.Status = status
	f.series[id] = s
	return nil
}

func (f *fakeStore) ListExpandable(_ context.Context, through time.Time) ([]domain.RecurringSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RecurringSeries
	for _, s := range f.series {
		if s.Status == domain.SeriesActive && s.ExpandedThrough.Before(through) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) SetExpandedThrough(_ context.Context, id string, through time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.ExpandedThrough = through
	f.series[id] = s
	return nil
}

// ---- PaymentRepository ----

func (f *fakeStore) GetPaymentConfig(_ context.Context, orgID int64) (domain.PaymentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.paymentCfg[orgID]
	if !ok {
		return domain.PaymentConfig{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) PutPaymentConfig(_ context.Context, c domain.PaymentConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.UpdatedAt = time.Now()
	f.paymentCfg[c.OrgID] = c
	return nil
}

func (f *fakeStore) ListPaymentProviders(_ context.Context, orgID int64) ([]domain.PaymentProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PaymentProvider
	for _, p := range f.providers {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreatePaymentProvider(_ context.Context, p domain.PaymentProvider) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextProvID++
	p.ID = f.nextProvID
	p.CreatedAt = time.Now()
	f.providers[p.ID] = p
	return p.ID, nil
}

func (f *fakeStore) DeletePaymentProvider(_ context.Context, orgID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok || p.OrgID != orgID {
		return domain.ErrNotFound
	}
	delete(f.providers, id)
	return nil
}

// ---- Cache ----

type memEntry struct {
	val []byte
	exp time.Time
}

// memCache mimics the Redis adapter's JSON round trip, TTLs included.
type memCache struct {
	mu sync.Mutex
	m  map[string]memEntry
}

func newMemCache() *memCache { return &memCache{m: map[string]memEntry{}} }

func (c *memCache) get(key string) ([]byte, bool) {
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.val, true
}

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.get(key)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var exp time.Time
	if ttlSec > 0 {
		exp = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	c.m[key] = memEntry{val: b, exp: exp}
	return nil
}

func (c *memCache) SetNX(_ context.Context, key string, v any, ttlSec int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.get(key); ok {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	var exp time.Time
	if ttlSec > 0 {
		exp = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	c.m[key] = memEntry{val: b, exp: exp}
	return true, nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *memCache) Incr(_ context.Context, key string, ttlSec int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if v, ok := c.get(key); ok {
		_ = json.Unmarshal(v, &n)
	}
	n++
	b, _ := json.Marshal(n)
	e := memEntry{val: b}
	if prev, ok := c.m[key]; ok && !prev.exp.IsZero() {
		e.exp = prev.exp
	} else if ttlSec > 0 {
		e.exp = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	c.m[key] = e
	return n, nil
}

// ---- fixture ----

// fixture seeds one org with a service, location, pet, customer and walker.
type fixture struct {
	store *fakeStore
	cache *memCache

	orgID      int64
	serviceID  int64
	locationID int64
	petID      int64
	customer   Actor
	walker     Actor
	admin      Actor
}

func strp(s string) *string { return &s }

func newFixture() *fixture {
	f := &fixture{store: newFakeStore(), cache: newMemCache()}
	ctx := context.Background()

	f.orgID = 1
	f.store.orgs[1] = domain.Org{ID: 1, Name: "Happy Paws", Slug: "happy-paws", Timezone: "America/New_York"}
	f.serviceID = 10
	f.store.services[10] = domain.Service{ID: 10, OrgID: 1, Name: "30 min walk", DurationMin: 30, PriceCents: 2500, Active: true}
	f.locationID = 20
	f.store.locations[20] = domain.Location{ID: 20, OrgID: 1, Name: "Downtown", Coords: domain.Coords{Lat: 40.71, Lon: -74.00}}

	mk := func(id, email string, role domain.Role) Actor {
		_ = f.store.CreateUser(ctx, domain.User{ID: id, Email: strp(email)})
		_ = f.store.EnsureMembership(ctx, domain.Membership{UserID: id, OrgID: 1, Role: role})
		return Actor{UserID: id, OrgID: 1, Role: role}
	}
	f.customer = mk("cust-1", "cust@example.com", domain.RoleCustomer)
	f.walker = mk("walk-1", "walk@example.com", domain.RoleWalker)
	f.admin = mk("admin-1", "admin@example.com", domain.RoleAdmin)

	f.petID = 30
	f.store.pets[30] = domain.Pet{ID: 30, OrgID: 1, OwnerID: "cust-1", Name: "Rex"}
	return f
}

func (f *fixture) bookingInput(start time.Time) CreateBookingInput {
	return CreateBookingInput{
		ServiceID:  f.serviceID,
		WalkerID:   f.walker.UserID,
		PetID:      f.petID,
		LocationID: f.locationID,
		StartAt:    start,
	}
}
