package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"pawtrail/internal/domain"
)

func TestPaymentConfigDefaults(t *testing.T) {
	f := newFixture()
	svc := NewPaymentAdminService(f.store)

	c, err := svc.GetConfig(context.Background(), f.orgID)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if c.Currency != "USD" || c.CaptureMode != domain.CaptureAutomatic || c.PlatformFeeBps != 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestPaymentConfigPut(t *testing.T) {
	f := newFixture()
	svc := NewPaymentAdminService(f.store)
	ctx := context.Background()

	saved, err := svc.PutConfig(ctx, domain.PaymentConfig{
		OrgID:          f.orgID,
		Currency:       " eur ",
		CaptureMode:    domain.CaptureManual,
		PlatformFeeBps: 250,
	})
	if err != nil {
		t.Fatalf("PutConfig: %v", err)
	}
	if saved.Currency != "EUR" {
		t.Fatalf("currency %q, want normalized EUR", saved.Currency)
	}
	got, err := svc.GetConfig(ctx, f.orgID)
	if err != nil || got.Currency != "EUR" || got.CaptureMode != domain.CaptureManual || got.PlatformFeeBps != 250 {
		t.Fatalf("readback: err=%v %+v", err, got)
	}

	bad := []domain.PaymentConfig{
		{OrgID: f.orgID, Currency: "EURO", CaptureMode: domain.CaptureManual},
		{OrgID: f.orgID, Currency: "EUR", CaptureMode: "deferred"},
		{OrgID: f.orgID, Currency: "EUR", CaptureMode: domain.CaptureManual, PlatformFeeBps: 10001},
	}
	for _, c := range bad {
		if _, err := svc.PutConfig(ctx, c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("want ErrValidation for %+v, got %v", c, err)
		}
	}
}

func TestProviderListMasksCredentials(t *testing.T) {
	f := newFixture()
	svc := NewPaymentAdminService(f.store)
	ctx := context.Background()

	added, err := svc.AddProvider(ctx, domain.PaymentProvider{
		OrgID:       f.orgID,
		Kind:        domain.ProviderStripe,
		DisplayName: "Stripe live",
		ConfigJSON:  []byte(`{"secret_key":"sk_live_abcdef123456","mode":"live"}`),
		Enabled:     true,
	})
	if err != nil {
		t.Fatalf("AddProvider: %v", err)
	}
	if strings.Contains(string(added.ConfigJSON), "sk_live_abcdef123456") {
		t.Fatalf("create response leaks the secret: %s", added.ConfigJSON)
	}

	ps, err := svc.ListProviders(ctx, f.orgID)
	if err != nil || len(ps) != 1 {
		t.Fatalf("ListProviders: err=%v n=%d", err, len(ps))
	}
	cfg := string(ps[0].ConfigJSON)
	if strings.Contains(cfg, "sk_live_abcdef123456") {
		t.Fatalf("list leaks the secret: %s", cfg)
	}
	if !strings.Contains(cfg, "3456") {
		t.Fatalf("mask dropped the recognizable tail: %s", cfg)
	}
	// short values like "live" stay readable
	if !strings.Contains(cfg, `"live"`) {
		t.Fatalf("short value over-masked: %s", cfg)
	}

	// the stored row keeps the raw credentials for the charge path
	if raw := string(f.store.providers[added.ID].ConfigJSON); !strings.Contains(raw, "sk_live_abcdef123456") {
		t.Fatalf("raw config lost on write: %s", raw)
	}
}

func TestProviderMaskHandlesMultibyteValues(t *testing.T) {
	f := newFixture()
	svc := NewPaymentAdminService(f.store)
	ctx := context.Background()

	added, err := svc.AddProvider(ctx, domain.PaymentProvider{
		OrgID:       f.orgID,
		Kind:        domain.ProviderManual,
		DisplayName: "Cash drawer",
		ConfigJSON:  []byte(`{"note":"秘密のトークン"}`),
	})
	if err != nil {
		t.Fatalf("AddProvider: %v", err)
	}
	cfg := string(added.ConfigJSON)
	if !utf8.ValidString(cfg) {
		t.Fatalf("masked config is not valid UTF-8: %q", cfg)
	}
	if !strings.Contains(cfg, "••••トークン") {
		t.Fatalf("mask broke the rune tail: %s", cfg)
	}
}

func TestProviderValidationAndDelete(t *testing.T) {
	f := newFixture()
	svc := NewPaymentAdminService(f.store)
	ctx := context.Background()

	bad := []domain.PaymentProvider{
		{OrgID: f.orgID, Kind: "paypal", DisplayName: "x"},
		{OrgID: f.orgID, Kind: domain.ProviderStripe, DisplayName: "  "},
		{OrgID: f.orgID, Kind: domain.ProviderStripe, DisplayName: "x", ConfigJSON: []byte(`{not json`)},
	}
	for _, p := range bad {
		if _, err := svc.AddProvider(ctx, p); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("want ErrValidation for %+v, got %v", p, err)
		}
	}

	added, err := svc.AddProvider(ctx, domain.PaymentProvider{OrgID: f.orgID, Kind: domain.ProviderManual, DisplayName: "Cash"})
	if err != nil {
		t.Fatalf("AddProvider: %v", err)
	}
	// other orgs cannot delete it
	if err := svc.DeleteProvider(ctx, f.orgID+1, added.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-org delete: want ErrNotFound, got %v", err)
	}
	if err := svc.DeleteProvider(ctx, f.orgID, added.ID); err != nil {
		t.Fatalf("DeleteProvider: %v", err)
	}
	if ps, _ := svc.ListProviders(ctx, f.orgID); len(ps) != 0 {
		t.Fatalf("provider survived delete: %+v", ps)
	}
}
