package cache

import (
	"context"
	"sync"

	"github.com/alpenform/storefront/internal/domain/region"
)

// InMemorySettingsCache implements SettingsCache with a process-local
// store. Suitable for single-instance deployments and testing; state is
// not shared across instances.
type InMemorySettingsCache struct {
	mu        sync.RWMutex
	regions   []region.Region
	populated bool
}

// NewInMemorySettingsCache creates a new in-memory settings cache
func NewInMemorySettingsCache() *InMemorySettingsCache {
	return &InMemorySettingsCache{}
}

// Regions returns the cached region list and whether it was populated
func (c *InMemorySettingsCache) Regions(_ context.Context) ([]region.Region, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.populated {
		return nil, false, nil
	}
	out := make([]region.Region, len(c.regions))
	copy(out, c.regions)
	return out, true, nil
}

// SetRegions populates the region list
func (c *InMemorySettingsCache) SetRegions(_ context.Context, regions []region.Region) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions = make([]region.Region, len(regions))
	copy(c.regions, regions)
	c.populated = true
	return nil
}

// Reset drops all cached settings
func (c *InMemorySettingsCache) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions = nil
	c.populated = false
	return nil
}

// Close is a no-op for the in-memory cache
func (c *InMemorySettingsCache) Close() error {
	return nil
}

var _ SettingsCache = (*InMemorySettingsCache)(nil)
