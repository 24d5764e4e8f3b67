package cache

import (
	"context"

	"github.com/alpenform/storefront/internal/domain/region"
)

// SettingsCache holds store-wide settings fetched from the commerce
// backend, currently the region list. Entries are populated on first
// successful fetch and kept for the process lifetime; Reset exists so
// tests can force a refetch.
type SettingsCache interface {
	// Regions returns the cached region list and whether it was populated
	Regions(ctx context.Context) ([]region.Region, bool, error)

	// SetRegions populates the region list
	SetRegions(ctx context.Context, regions []region.Region) error

	// Reset drops all cached settings
	Reset(ctx context.Context) error

	// Close releases any backing connections
	Close() error
}
