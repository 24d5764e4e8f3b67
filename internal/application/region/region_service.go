package region

import (
	"context"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/domain/shared"
	"github.com/alpenform/storefront/internal/infrastructure/cache"
)

// RegionLister fetches the region list from the commerce backend
type RegionLister interface {
	ListRegions(ctx context.Context) ([]region.Region, error)
}

// Service resolves the active region for a session. The backend's region
// list is fetched once and cached; any failure to reach the backend
// silently degrades to the fallback region so the storefront keeps
// rendering with local prices.
type Service struct {
	commerce        RegionLister
	settings        cache.SettingsCache
	sessions        cart.SessionStateRepository
	primaryCurrency string
	logger          *zap.Logger
}

// NewService creates a new region service
func NewService(
	commerce RegionLister,
	settings cache.SettingsCache,
	sessions cart.SessionStateRepository,
	primaryCurrency string,
	logger *zap.Logger,
) *Service {
	return &Service{
		commerce:        commerce,
		settings:        settings,
		sessions:        sessions,
		primaryCurrency: primaryCurrency,
		logger:          logger,
	}
}

// Resolve returns the active region for the session: the persisted
// explicit choice when still valid, else the primary-currency match,
// else the first region. Backend failures yield the fallback region,
// never an error.
func (s *Service) Resolve(ctx context.Context, sessionID string) region.Region {
	regions, err := s.regions(ctx)
	if err != nil {
		s.logger.Warn("region list unavailable, using fallback region",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return region.Fallback(s.primaryCurrency)
	}

	persistedID, err := s.sessions.RegionID(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read persisted region choice",
			zap.String("session_id", sessionID),
			zap.Error(err))
		persistedID = ""
	}

	return region.Select(regions, persistedID, s.primaryCurrency)
}

// List returns all regions the backend serves
func (s *Service) List(ctx context.Context) ([]region.Region, error) {
	return s.regions(ctx)
}

// SetRegion persists an explicit region choice for the session. The ID
// must exist in the backend's region list.
func (s *Service) SetRegion(ctx context.Context, sessionID, regionID string) (region.Region, error) {
	regions, err := s.regions(ctx)
	if err != nil {
		return region.Region{}, shared.ErrCartUnavailable
	}

	for _, r := range regions {
		if r.ID == regionID {
			if err := s.sessions.SetRegionID(ctx, sessionID, regionID); err != nil {
				return region.Region{}, err
			}
			return r, nil
		}
	}
	return region.Region{}, shared.NewDomainError("REGION_NOT_FOUND", "unknown region: "+regionID)
}

// regions returns the cached region list, fetching it from the backend
// on first use
func (s *Service) regions(ctx context.Context) ([]region.Region, error) {
	cached, ok, err := s.settings.Regions(ctx)
	if err != nil {
		s.logger.Warn("settings cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	regions, err := s.commerce.ListRegions(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.settings.SetRegions(ctx, regions); err != nil {
		s.logger.Warn("settings cache write failed", zap.Error(err))
	}
	return regions, nil
}
