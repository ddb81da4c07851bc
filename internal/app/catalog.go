package app

import (
	"context"
	"fmt"
	"time"

	"pawtrail/internal/domain"
)

// CatalogService serves the org-scoped read side (services, locations,
// branding) with cache-aside reads.
type CatalogService struct {
	repo     domain.CatalogRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalogService(r domain.CatalogRepository, c domain.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *CatalogService) ListServices(ctx context.Context, orgID int64) ([]domain.Service, error) {
	key := fmt.Sprintf("services:%d", orgID)
	var out []domain.Service
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListServices(ctx, orgID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *CatalogService) ListLocations(ctx context.Context, orgID int64) ([]domain.Location, error) {
	key := fmt.Sprintf("locations:%d", orgID)
	var out []domain.Location
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListLocations(ctx, orgID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *CatalogService) Branding(ctx context.Context, orgID int64) (domain.Branding, error) {
	key := fmt.Sprintf("branding:%d", orgID)
	var out domain.Branding
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.repo.GetBranding(ctx, orgID)
	if err != nil {
		return domain.Branding{}, err
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}
