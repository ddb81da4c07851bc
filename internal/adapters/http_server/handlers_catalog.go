package httpserver

import (
	"net/http"

	"pawtrail/internal/domain"
)

type serviceJSON struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	DurationMin int     `json:"duration_min"`
	PriceCents  int64   `json:"price_cents"`
	Active      bool    `json:"active"`
}

func (h *Handlers) listServices(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	services, err := h.Catalog.ListServices(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]serviceJSON, 0, len(services))
	for _, s := range services {
		out = append(out, serviceJSON{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			DurationMin: s.DurationMin,
			PriceCents:  s.PriceCents,
			Active:      s.Active,
		})
	}
	writeCacheable(w, r, map[string]any{"services": out})
}

type locationJSON struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	locations, err := h.Catalog.ListLocations(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]locationJSON, 0, len(locations))
	for _, l := range locations {
		out = append(out, locationJSON{
			ID:      l.ID,
			Name:    l.Name,
			Address: l.Address,
			Lat:     l.Coords.Lat,
			Lon:     l.Coords.Lon,
		})
	}
	writeCacheable(w, r, map[string]any{"locations": out})
}

func (h *Handlers) branding(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	b, err := h.Catalog.Branding(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, brandingJSONFrom(b))
}

type brandingJSON struct {
	DisplayName  string  `json:"display_name"`
	PrimaryColor string  `json:"primary_color"`
	AccentColor  string  `json:"accent_color"`
	LogoURL      *string `json:"logo_url,omitempty"`
}

func brandingJSONFrom(b domain.Branding) brandingJSON {
	return brandingJSON{
		DisplayName:  b.DisplayName,
		PrimaryColor: b.PrimaryColor,
		AccentColor:  b.AccentColor,
		LogoURL:      b.LogoURL,
	}
}
