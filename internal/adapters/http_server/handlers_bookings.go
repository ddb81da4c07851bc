package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pawtrail/internal/app"
	"pawtrail/internal/domain"
)

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req struct {
		ServiceID  int64  `json:"service_id"`
		WalkerID   string `json:"walker_id"`
		PetID      int64  `json:"pet_id"`
		LocationID int64  `json:"location_id"`
		StartAt    string `json:"start_at"`
		CustomerID string `json:"customer_id,omitempty"` // managers booking on behalf
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		writeError(w, fmt.Errorf("%w: start_at must be RFC 3339", domain.ErrValidation))
		return
	}
	in := app.CreateBookingInput{
		ServiceID:  req.ServiceID,
		WalkerID:   req.WalkerID,
		PetID:      req.PetID,
		LocationID: req.LocationID,
		StartAt:    start,
	}
	var b domain.Booking
	if req.CustomerID != "" {
		b, err = h.Bookings.CreateFor(r.Context(), actor, req.CustomerID, in)
	} else {
		b, err = h.Bookings.Create(r.Context(), actor, in)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingJSON(b))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	b, err := h.Bookings.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingJSON(b))
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	q, err := bookingsQueryFrom(r, actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.Bookings.List(r.Context(), actor, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":    toBookingsJSON(page.Items),
		"next_cursor": page.NextCursor,
	})
}

func (h *Handlers) walkerBookings(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	q, err := bookingsQueryFrom(r, actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.Bookings.ListForWalker(r.Context(), actor, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":    toBookingsJSON(page.Items),
		"next_cursor": page.NextCursor,
	})
}

func bookingsQueryFrom(r *http.Request, orgID int64) (domain.BookingsQuery, error) {
	q := domain.BookingsQuery{OrgID: orgID}
	vals := r.URL.Query()
	if s := vals.Get("status"); s != "" {
		st := domain.BookingStatus(s)
		if !st.Valid() {
			return q, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, s)
		}
		q.Status = &st
	}
	for name, dst := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		if s := vals.Get(name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, fmt.Errorf("%w: %s must be RFC 3339", domain.ErrValidation, name)
			}
			*dst = &t
		}
	}
	if s := vals.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: limit must be a positive integer", domain.ErrValidation)
		}
		q.Limit = n
	}
	if s := vals.Get("cursor"); s != "" {
		q.Cursor = &s
	}
	return q, nil
}

func (h *Handlers) updateBookingStatus(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	next := domain.BookingStatus(req.Status)
	if !next.Valid() {
		writeError(w, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, req.Status))
		return
	}
	b, err := h.Bookings.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), next)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingJSON(b))
}

// ---- recurring series ----

type seriesRequest struct {
	WalkerID      string   `json:"walker_id"`
	ServiceID     int64    `json:"service_id"`
	PetID         int64    `json:"pet_id"`
	LocationID    int64    `json:"location_id"`
	Weekdays      []string `json:"weekdays"`
	StartTime     string   `json:"start_time"`
	Timezone      string   `json:"timezone"`
	IntervalWeeks int      `json:"interval_weeks"`
	StartsOn      string   `json:"starts_on"`
	EndsOn        *string  `json:"ends_on"`
	Occurrences   *int     `json:"occurrences"`
}

func (req seriesRequest) toInput() (app.SeriesInput, error) {
	in := app.SeriesInput{
		WalkerID:      req.WalkerID,
		ServiceID:     req.ServiceID,
		PetID:         req.PetID,
		LocationID:    req.LocationID,
		StartTime:     req.StartTime,
		Timezone:      req.Timezone,
		IntervalWeeks: req.IntervalWeeks,
		Occurrences:   req.Occurrences,
	}
	wd, ok := parseWeekdays(req.Weekdays)
	if !ok {
		return in, fmt.Errorf("%w: weekdays must be lowercase day names", domain.ErrValidation)
	}
	in.Weekdays = wd
	starts, err := time.Parse("2006-01-02", req.StartsOn)
	if err != nil {
		return in, fmt.Errorf("%w: starts_on must be YYYY-MM-DD", domain.ErrValidation)
	}
	in.StartsOn = starts
	if req.EndsOn != nil {
		ends, err := time.Parse("2006-01-02", *req.EndsOn)
		if err != nil {
			return in, fmt.Errorf("%w: ends_on must be YYYY-MM-DD", domain.ErrValidation)
		}
		in.EndsOn = &ends
	}
	return in, nil
}

func (h *Handlers) previewSeries(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req seriesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}
	dates, err := h.Recurring.Preview(r.Context(), actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	type previewJSON struct {
		StartAt  string `json:"start_at"`
		EndAt    string `json:"end_at"`
		Conflict bool   `json:"conflict"`
	}
	out := make([]previewJSON, 0, len(dates))
	for _, d := range dates {
		out = append(out, previewJSON{
			StartAt:  d.StartAt.UTC().Format(time.RFC3339),
			EndAt:    d.EndAt.UTC().Format(time.RFC3339),
			Conflict: d.Conflict,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

func (h *Handlers) createSeries(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req seriesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Recurring.Create(r.Context(), actor, in, r.Header.Get("X-Idempotency-Key"))
	if err != nil {
		writeError(w, err)
		return
	}
	skipped := make([]string, 0, len(res.Skipped))
	for _, t := range res.Skipped {
		skipped = append(skipped, t.UTC().Format(time.RFC3339))
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"series":   toSeriesJSON(res.Series),
		"bookings": toBookingsJSON(res.Created),
		"skipped":  skipped,
		"replayed": res.Replayed,
	})
}

func (h *Handlers) listSeries(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	list, err := h.Recurring.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]seriesJSON, 0, len(list))
	for _, s := range list {
		out = append(out, toSeriesJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": out})
}

func (h *Handlers) getSeries(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	s, err := h.Recurring.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesJSON(s))
}

func (h *Handlers) updateSeries(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	next := domain.SeriesStatus(req.Status)
	if !next.Valid() {
		writeError(w, fmt.Errorf("%w: unknown series status %q", domain.ErrValidation, req.Status))
		return
	}
	s, err := h.Recurring.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), next)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesJSON(s))
}

// ---- availability + routes ----

func (h *Handlers) availabilitySlots(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	vals := r.URL.Query()
	walkerID := vals.Get("walker_id")
	date := vals.Get("date")
	serviceID, err := strconv.ParseInt(vals.Get("service_id"), 10, 64)
	if walkerID == "" || date == "" || err != nil {
		writeError(w, fmt.Errorf("%w: walker_id, service_id and date are required", domain.ErrValidation))
		return
	}
	slots, err := h.Availability.Slots(r.Context(), actor.OrgID, walkerID, serviceID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	type slotJSON struct {
		StartAt string `json:"start_at"`
		EndAt   string `json:"end_at"`
	}
	out := make([]slotJSON, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotJSON{
			StartAt: s.StartAt.UTC().Format(time.RFC3339),
			EndAt:   s.EndAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

func (h *Handlers) walkerRoute(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	walkerID := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, fmt.Errorf("%w: date is required", domain.ErrValidation))
		return
	}
	if walkerID != actor.UserID && !actor.Role.CanManageOrg() {
		writeError(w, domain.ErrForbidden)
		return
	}
	plan, err := h.Routes.DayRoute(r.Context(), actor.OrgID, walkerID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	type stopJSON struct {
		Booking    bookingJSON `json:"booking"`
		Lat        float64     `json:"lat"`
		Lon        float64     `json:"lon"`
		LegMeters  int64       `json:"leg_meters"`
		LegSeconds int         `json:"leg_seconds"`
	}
	stops := make([]stopJSON, 0, len(plan.Stops))
	for _, s := range plan.Stops {
		stops = append(stops, stopJSON{
			Booking:    toBookingJSON(s.Booking),
			Lat:        s.Coords.Lat,
			Lon:        s.Coords.Lon,
			LegMeters:  s.LegMeters,
			LegSeconds: s.LegSeconds,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"walker_id":    plan.WalkerID,
		"date":         plan.Date,
		"depot":        map[string]float64{"lat": plan.Depot.Lat, "lon": plan.Depot.Lon},
		"stops":        stops,
		"total_meters": plan.TotalMeters,
	})
}
