package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pawtrail/internal/adapters/token"
	"pawtrail/internal/app"
	"pawtrail/internal/domain"
)

type Handlers struct {
	Auth         *app.AuthService
	Identities   *app.IdentityService
	Bookings     *app.BookingService
	Recurring    *app.RecurringService
	Availability *app.AvailabilityService
	Catalog      *app.CatalogService
	Routes       *app.RouteService
	Payments     *app.PaymentAdminService
	Tokens       *token.Issuer
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/auth", func(r chi.Router) {
		r.Post("/login/universal", h.loginUniversal)
		r.Post("/google", h.googleLogin)
		r.Post("/apple", h.appleLogin)
		r.Post("/phone/send-code", h.phoneSendCode)
		r.Post("/phone/verify", h.phoneVerify)
		r.Post("/wallet/challenge", h.walletChallenge)
		r.Post("/wallet/verify", h.walletVerify)
	})

	s.mux.Group(func(r chi.Router) {
		r.Use(Auth(h.Tokens))

		r.Route("/users/me/identities", func(r chi.Router) {
			r.Get("/", h.listIdentities)
			r.Post("/", h.linkIdentity)
			r.Delete("/{id}", h.unlinkIdentity)
		})

		r.Group(func(r chi.Router) {
			r.Use(OrgScope)

			r.Get("/services", h.listServices)
			r.Get("/locations", h.listLocations)
			r.Get("/branding", h.branding)

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", h.createBooking)
				r.Get("/", h.listBookings)
				r.Get("/walker", h.walkerBookings)
				r.Route("/recurring", func(r chi.Router) {
					r.Post("/", h.createSeries)
					r.Get("/", h.listSeries)
					r.Post("/preview", h.previewSeries)
					r.Get("/{id}", h.getSeries)
					r.Patch("/{id}", h.updateSeries)
				})
				r.Get("/{id}", h.getBooking)
				r.Patch("/{id}/status", h.updateBookingStatus)
			})

			r.Get("/availability/slots", h.availabilitySlots)
			r.Get("/walkers/{id}/route", h.walkerRoute)

			r.Group(func(r chi.Router) {
				r.Use(RequireManager)
				r.Get("/admin/payment-config", h.getPaymentConfig)
				r.Put("/admin/payment-config", h.putPaymentConfig)
				r.Get("/payment-providers", h.listPaymentProviders)
				r.Post("/payment-providers", h.addPaymentProvider)
				r.Delete("/payment-providers/{id}", h.deletePaymentProvider)
			})
		})
	})
}

// ---- wire DTOs (snake_case, mirroring what the web and iOS clients send) ----

type bookingJSON struct {
	ID         string  `json:"id"`
	ServiceID  int64   `json:"service_id"`
	CustomerID string  `json:"customer_id"`
	WalkerID   string  `json:"walker_id"`
	PetID      int64   `json:"pet_id"`
	LocationID int64   `json:"location_id"`
	SeriesID   *string `json:"series_id,omitempty"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Status     string  `json:"status"`
	PriceCents int64   `json:"price_cents"`
}

func toBookingJSON(b domain.Booking) bookingJSON {
	return bookingJSON{
		ID:         b.ID,
		ServiceID:  b.ServiceID,
		CustomerID: b.CustomerID,
		WalkerID:   b.WalkerID,
		PetID:      b.PetID,
		LocationID: b.LocationID,
		SeriesID:   b.SeriesID,
		StartAt:    b.StartAt.UTC().Format(time.RFC3339),
		EndAt:      b.EndAt.UTC().Format(time.RFC3339),
		Status:     string(b.Status),
		PriceCents: b.PriceCents,
	}
}

func toBookingsJSON(bs []domain.Booking) []bookingJSON {
	out := make([]bookingJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingJSON(b))
	}
	return out
}

type seriesJSON struct {
	ID            string   `json:"id"`
	CustomerID    string   `json:"customer_id"`
	WalkerID      string   `json:"walker_id"`
	ServiceID     int64    `json:"service_id"`
	PetID         int64    `json:"pet_id"`
	LocationID    int64    `json:"location_id"`
	Weekdays      []string `json:"weekdays"`
	StartTime     string   `json:"start_time"`
	Timezone      string   `json:"timezone"`
	IntervalWeeks int      `json:"interval_weeks"`
	StartsOn      string   `json:"starts_on"`
	EndsOn        *string  `json:"ends_on,omitempty"`
	Occurrences   *int     `json:"occurrences,omitempty"`
	Status        string   `json:"status"`
}

func toSeriesJSON(s domain.RecurringSeries) seriesJSON {
	out := seriesJSON{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		WalkerID:      s.WalkerID,
		ServiceID:     s.ServiceID,
		PetID:         s.PetID,
		LocationID:    s.LocationID,
		Weekdays:      weekdayNames(s.Weekdays),
		StartTime:     s.StartTime,
		Timezone:      s.Timezone,
		IntervalWeeks: s.IntervalWeeks,
		StartsOn:      s.StartsOn.Format("2006-01-02"),
		Occurrences:   s.Occurrences,
		Status:        string(s.Status),
	}
	if s.EndsOn != nil {
		d := s.EndsOn.Format("2006-01-02")
		out.EndsOn = &d
	}
	return out
}

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func parseWeekdays(names []string) (domain.Weekdays, bool) {
	var w domain.Weekdays
	for _, n := range names {
		d, ok := weekdayByName[strings.ToLower(n)]
		if !ok {
			return 0, false
		}
		w |= domain.WeekdaysOf(d)
	}
	return w, true
}

func weekdayNames(w domain.Weekdays) []string {
	out := []string{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, strings.ToLower(d.String()))
		}
	}
	return out
}
