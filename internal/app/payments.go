package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pawtrail/internal/domain"
)

// PaymentAdminService manages per-org payment configuration and provider
// credentials. Callers are pre-authorized (admin|owner) by the HTTP layer.
type PaymentAdminService struct {
	repo domain.PaymentRepository
}

func NewPaymentAdminService(r domain.PaymentRepository) *PaymentAdminService {
	return &PaymentAdminService{repo: r}
}

// GetConfig returns the org's payment config, falling back to defaults for
// orgs that never saved one.
func (s *PaymentAdminService) GetConfig(ctx context.Context, orgID int64) (domain.PaymentConfig, error) {
	c, err := s.repo.GetPaymentConfig(ctx, orgID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PaymentConfig{
			OrgID:          orgID,
			Currency:       "USD",
			CaptureMode:    domain.CaptureAutomatic,
			PlatformFeeBps: 0,
		}, nil
	}
	return c, err
}

func (s *PaymentAdminService) PutConfig(ctx context.Context, c domain.PaymentConfig) (domain.PaymentConfig, error) {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if len(c.Currency) != 3 {
		return domain.PaymentConfig{}, fmt.Errorf("%w: currency must be a 3-letter ISO code", domain.ErrValidation)
	}
	if c.CaptureMode != domain.CaptureAutomatic && c.CaptureMode != domain.CaptureManual {
		return domain.PaymentConfig{}, fmt.Errorf("%w: capture_mode must be automatic or manual", domain.ErrValidation)
	}
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		return domain.PaymentConfig{}, fmt.Errorf("%w: platform_fee_bps must be 0..10000", domain.ErrValidation)
	}
	if err := s.repo.PutPaymentConfig(ctx, c); err != nil {
		return domain.PaymentConfig{}, err
	}
	return c, nil
}

// ListProviders returns the org's providers with credential values masked;
// raw config never leaves the write path.
func (s *PaymentAdminService) ListProviders(ctx context.Context, orgID int64) ([]domain.PaymentProvider, error) {
	ps, err := s.repo.ListPaymentProviders(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range ps {
		ps[i].ConfigJSON = maskConfig(ps[i].ConfigJSON)
	}
	return ps, nil
}

func (s *PaymentAdminService) AddProvider(ctx context.Context, p domain.PaymentProvider) (domain.PaymentProvider, error) {
	if !p.Kind.Valid() {
		return domain.PaymentProvider{}, fmt.Errorf("%w: unknown provider kind %q", domain.ErrValidation, p.Kind)
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return domain.PaymentProvider{}, fmt.Errorf("%w: display_name is required", domain.ErrValidation)
	}
	if len(p.ConfigJSON) > 0 && !json.Valid(p.ConfigJSON) {
		return domain.PaymentProvider{}, fmt.Errorf("%w: config must be a JSON object", domain.ErrValidation)
	}
	id, err := s.repo.CreatePaymentProvider(ctx, p)
	if err != nil {
		return domain.PaymentProvider{}, err
	}
	p.ID = id
	p.ConfigJSON = maskConfig(p.ConfigJSON)
	return p, nil
}

func (s *PaymentAdminService) DeleteProvider(ctx context.Context, orgID, id int64) error {
	return s.repo.DeletePaymentProvider(ctx, orgID, id)
}

// maskConfig hides credential values, keeping the last four characters of
// strings so admins can still tell keys apart.
func maskConfig(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return []byte(`{}`)
	}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		// slice runes, not bytes: credentials are not guaranteed ASCII
		if r := []rune(s); len(r) > 4 {
			m[k] = "••••" + string(r[len(r)-4:])
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return []byte(`{}`)
	}
	return out
}
