package cart

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/infrastructure/commerce"
)

// replayAdjustment describes how the item replay of a recovery differs
// from the old cart: one item replayed at a new quantity, or one item
// left out entirely.
type replayAdjustment struct {
	adjustItemID   string
	adjustQuantity int64
	skipItemID     string
}

// recoverLocked replaces a cart whose payment sessions have gone stale.
// The backend refuses every mutation on such a cart, so the only way
// forward is a fresh cart in the same region with the old cart's state
// replayed onto it: email, addresses, items (with the triggering
// mutation applied), then the shipping option.
//
// The caller holds the manager lock. The recovering flag makes
// concurrent mutations fail fast instead of piling onto a cart that is
// mid-replacement. Replay failures on email, addresses or items abort
// the recovery and surface to the caller; a shipping option that fails
// to re-attach is logged and dropped, the checkout re-selects it.
func (m *Manager) recoverLocked(ctx context.Context, adj replayAdjustment) error {
	m.recovering.Store(true)
	defer m.recovering.Store(false)

	old := m.current
	m.logger.Info("recovering cart with stale payment session",
		zap.String("old_cart_id", old.ID))

	fresh, err := m.commerce.CreateCart(ctx, old.RegionID)
	if err != nil {
		return fmt.Errorf("cart recovery: create replacement: %w", err)
	}

	if old.Email != "" {
		if _, err := m.commerce.UpdateCart(ctx, fresh.ID, commerce.CartUpdate{Email: &old.Email}); err != nil {
			return fmt.Errorf("cart recovery: replay email: %w", err)
		}
	}
	if old.ShippingAddress != nil || old.BillingAddress != nil {
		update := commerce.CartUpdate{
			ShippingAddress: old.ShippingAddress,
			BillingAddress:  old.BillingAddress,
		}
		if _, err := m.commerce.UpdateCart(ctx, fresh.ID, update); err != nil {
			return fmt.Errorf("cart recovery: replay addresses: %w", err)
		}
	}

	for idx := range old.Items {
		item := &old.Items[idx]
		if item.IsLocal() || item.ID == adj.skipItemID {
			continue
		}
		quantity := item.Quantity
		if item.ID == adj.adjustItemID {
			quantity = adj.adjustQuantity
		}
		if _, err := m.commerce.AddLineItem(ctx, fresh.ID, item.VariantID, quantity); err != nil {
			return fmt.Errorf("cart recovery: replay item %s: %w", item.VariantID, err)
		}
	}

	if old.ShippingMethod != nil && old.ShippingMethod.ShippingOptionID != "" {
		if _, err := m.commerce.AddShippingMethod(ctx, fresh.ID, old.ShippingMethod.ShippingOptionID); err != nil {
			m.logger.Warn("cart recovery: shipping option not re-attached",
				zap.String("option_id", old.ShippingMethod.ShippingOptionID),
				zap.Error(err))
		}
	}

	if err := m.state.SetCartID(ctx, m.sessionID, fresh.ID); err != nil {
		m.logger.Warn("cart recovery: failed to persist replacement cart ID", zap.Error(err))
	}

	replaced, err := m.commerce.RetrieveCart(ctx, fresh.ID)
	if err != nil {
		return fmt.Errorf("cart recovery: retrieve replacement: %w", err)
	}
	m.current = replaced

	m.logger.Info("cart recovered",
		zap.String("old_cart_id", old.ID),
		zap.String("new_cart_id", replaced.ID))
	return nil
}
