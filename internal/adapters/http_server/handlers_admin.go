package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pawtrail/internal/domain"
)

type paymentConfigJSON struct {
	Currency            string  `json:"currency"`
	CaptureMode         string  `json:"capture_mode"`
	PlatformFeeBps      int     `json:"platform_fee_bps"`
	StatementDescriptor *string `json:"statement_descriptor,omitempty"`
	UpdatedAt           string  `json:"updated_at,omitempty"`
}

func toPaymentConfigJSON(c domain.PaymentConfig) paymentConfigJSON {
	out := paymentConfigJSON{
		Currency:            c.Currency,
		CaptureMode:         string(c.CaptureMode),
		PlatformFeeBps:      c.PlatformFeeBps,
		StatementDescriptor: c.StatementDescriptor,
	}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handlers) getPaymentConfig(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	c, err := h.Payments.GetConfig(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentConfigJSON(c))
}

func (h *Handlers) putPaymentConfig(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req struct {
		Currency            string  `json:"currency"`
		CaptureMode         string  `json:"capture_mode"`
		PlatformFeeBps      int     `json:"platform_fee_bps"`
		StatementDescriptor *string `json:"statement_descriptor"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.Payments.PutConfig(r.Context(), domain.PaymentConfig{
		OrgID:               actor.OrgID,
		Currency:            req.Currency,
		CaptureMode:         domain.CaptureMode(req.CaptureMode),
		PlatformFeeBps:      req.PlatformFeeBps,
		StatementDescriptor: req.StatementDescriptor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentConfigJSON(c))
}

type paymentProviderJSON struct {
	ID          int64           `json:"id"`
	Kind        string          `json:"kind"`
	DisplayName string          `json:"display_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

func toPaymentProviderJSON(p domain.PaymentProvider) paymentProviderJSON {
	out := paymentProviderJSON{
		ID:          p.ID,
		Kind:        string(p.Kind),
		DisplayName: p.DisplayName,
		Config:      json.RawMessage(p.ConfigJSON),
		Enabled:     p.Enabled,
	}
	if len(out.Config) == 0 {
		out.Config = json.RawMessage(`{}`)
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handlers) listPaymentProviders(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	providers, err := h.Payments.ListProviders(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]paymentProviderJSON, 0, len(providers))
	for _, p := range providers {
		out = append(out, toPaymentProviderJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (h *Handlers) addPaymentProvider(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	var req struct {
		Kind        string          `json:"kind"`
		DisplayName string          `json:"display_name"`
		Config      json.RawMessage `json:"config"`
		Enabled     bool            `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.Payments.AddProvider(r.Context(), domain.PaymentProvider{
		OrgID:       actor.OrgID,
		Kind:        domain.ProviderKind(req.Kind),
		DisplayName: req.DisplayName,
		ConfigJSON:  []byte(req.Config),
		Enabled:     req.Enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentProviderJSON(p))
}

func (h *Handlers) deletePaymentProvider(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid provider id", "provider id must be an integer")
		return
	}
	if err := h.Payments.DeleteProvider(r.Context(), actor.OrgID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
