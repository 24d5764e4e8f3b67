package cart

import "context"

// SessionStateRepository persists the per-session cart state that the
// original storefront kept in browser storage: the active remote cart ID,
// the local cart mirror, and the explicitly chosen region.
//
// Implementations must treat absent or corrupt values as "not set" and
// never fail a read because of them. Writes are last-write-wins; there is
// no cross-session coordination.
type SessionStateRepository interface {
	// CartID returns the persisted remote cart ID, or "" when unset
	CartID(ctx context.Context, sessionID string) (string, error)
	SetCartID(ctx context.Context, sessionID, cartID string) error
	ClearCartID(ctx context.Context, sessionID string) error

	// LocalCart loads the persisted local cart mirror. Absent or corrupt
	// blobs yield an empty cart, never an error.
	LocalCart(ctx context.Context, sessionID, currencyCode string) (*Cart, error)
	SaveLocalCart(ctx context.Context, sessionID string, c *Cart) error
	ClearLocalCart(ctx context.Context, sessionID string) error

	// RegionID returns the persisted explicit region choice, or ""
	RegionID(ctx context.Context, sessionID string) (string, error)
	SetRegionID(ctx context.Context, sessionID, regionID string) error
}
