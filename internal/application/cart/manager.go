package cart

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/domain/shared"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
	"github.com/alpenform/storefront/internal/infrastructure/config"
)

// Mode is the cart session's lifecycle state
type Mode string

const (
	ModeUninitialized       Mode = "uninitialized"
	ModeLocal               Mode = "local"
	ModeRemoteGuest         Mode = "remote-guest"
	ModeRemoteAuthenticated Mode = "remote-authenticated"
)

// systemDefaultProvider is the payment provider used when neither the
// caller nor the configuration names one
const systemDefaultProvider = "pp_system_default"

// RegionResolver resolves the active region for a session
type RegionResolver interface {
	Resolve(ctx context.Context, sessionID string) region.Region
}

// Manager owns the single cart of one session. It decides whether each
// operation runs against the commerce backend or the local session
// store, keeps the persisted cart ID current, and runs the
// stale-payment-session recovery protocol.
//
// All operations are serialized per manager. While a recovery is in
// flight, concurrent mutations are rejected with ErrRecoveryInProgress
// instead of queueing behind a cart that is being replaced.
type Manager struct {
	sessionID string
	commerce  CommerceAPI
	state     cart.SessionStateRepository
	regions   RegionResolver
	notifier  Notifier
	store     config.StoreConfig
	logger    *zap.Logger

	mu         sync.Mutex
	recovering atomic.Bool
	mode       Mode
	current    *cart.Cart
	region     region.Region
}

// NewManager creates a manager for one cart session
func NewManager(
	sessionID string,
	commerceAPI CommerceAPI,
	state cart.SessionStateRepository,
	regions RegionResolver,
	notifier Notifier,
	store config.StoreConfig,
	logger *zap.Logger,
) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Manager{
		sessionID: sessionID,
		commerce:  commerceAPI,
		state:     state,
		regions:   regions,
		notifier:  notifier,
		store:     store,
		logger:    logger.With(zap.String("session_id", sessionID)),
		mode:      ModeUninitialized,
	}
}

// begin serializes an operation. Mutations arriving while a recovery is
// replacing the cart are rejected rather than queued.
func (m *Manager) begin() error {
	if m.recovering.Load() {
		return shared.ErrRecoveryInProgress
	}
	m.mu.Lock()
	return nil
}

func (m *Manager) end() {
	m.mu.Unlock()
}

// Mode returns the session's current lifecycle state
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Region returns the region the session is bound to
func (m *Manager) Region(ctx context.Context) (region.Region, error) {
	if err := m.begin(); err != nil {
		return region.Region{}, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return region.Region{}, err
	}
	return m.region, nil
}

// Cart returns the session's active cart, initializing the session on
// first use.
func (m *Manager) Cart(ctx context.Context) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return m.current, nil
}

// Reinitialize drops the in-memory state and runs the initialization
// protocol again. Called after the session's region changes.
func (m *Manager) Reinitialize(ctx context.Context) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	m.mode = ModeUninitialized
	m.current = nil
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return m.current, nil
}

func (m *Manager) ensureInitialized(ctx context.Context) error {
	if m.mode != ModeUninitialized {
		return nil
	}

	reg := m.regions.Resolve(ctx, m.sessionID)
	m.region = reg

	if reg.IsFallback() {
		return m.initLocal(ctx)
	}

	cartID, err := m.state.CartID(ctx, m.sessionID)
	if err != nil {
		m.logger.Warn("failed to read persisted cart ID", zap.Error(err))
		cartID = ""
	}

	if cartID != "" && cartID != cart.LocalCartID {
		c, err := m.commerce.RetrieveCart(ctx, cartID)
		switch {
		case err != nil:
			m.logger.Info("persisted cart not retrievable, starting fresh",
				zap.String("cart_id", cartID), zap.Error(err))
			m.clearPersistedCartID(ctx)
		case c.IsCompleted():
			m.clearPersistedCartID(ctx)
		default:
			if c.RegionID != reg.ID {
				if updated, uerr := m.commerce.UpdateCart(ctx, c.ID, commerce.CartUpdate{RegionID: &reg.ID}); uerr == nil {
					c = updated
				} else {
					m.logger.Warn("failed to move cart to active region", zap.Error(uerr))
				}
			}
			m.current = c
			m.mode = ModeRemoteGuest
			return nil
		}
	}

	c, err := m.commerce.CreateCart(ctx, reg.ID)
	if err != nil {
		m.logger.Warn("cart creation failed, degrading to local mode", zap.Error(err))
		return m.initLocal(ctx)
	}
	if err := m.state.SetCartID(ctx, m.sessionID, c.ID); err != nil {
		m.logger.Warn("failed to persist cart ID", zap.Error(err))
	}
	m.current = c
	m.mode = ModeRemoteGuest
	return nil
}

func (m *Manager) initLocal(ctx context.Context) error {
	local, err := m.state.LocalCart(ctx, m.sessionID, m.region.CurrencyCode)
	if err != nil {
		m.logger.Warn("failed to load local cart, starting empty", zap.Error(err))
		local = cart.NewLocalCart(m.region.CurrencyCode)
	}
	local.Recalculate(m.store.TaxRate)
	m.current = local
	m.mode = ModeLocal
	return nil
}

func (m *Manager) clearPersistedCartID(ctx context.Context) {
	if err := m.state.ClearCartID(ctx, m.sessionID); err != nil {
		m.logger.Warn("failed to clear persisted cart ID", zap.Error(err))
	}
}

func (m *Manager) isLocalMode() bool {
	return m.mode == ModeLocal || m.current == nil || m.current.IsLocal()
}

// ---------------------------------------------------------------------------
// Item Operations
// ---------------------------------------------------------------------------

// AddItem adds a commerce variant to the remote cart. On a stale payment
// session the cart is replaced and the add retried once.
func (m *Manager) AddItem(ctx context.Context, variantID string, quantity int64) (*cart.Cart, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if m.isLocalMode() {
		return nil, shared.ErrRemoteModeOnly
	}

	updated, err := m.commerce.AddLineItem(ctx, m.current.ID, variantID, quantity)
	if err != nil && commerce.IsStaleSessionError(err) {
		if rerr := m.recoverLocked(ctx, replayAdjustment{}); rerr != nil {
			return nil, rerr
		}
		updated, err = m.commerce.AddLineItem(ctx, m.current.ID, variantID, quantity)
	}
	if err != nil {
		return nil, err
	}
	m.current = updated

	for idx := range updated.Items {
		if updated.Items[idx].VariantID == variantID {
			m.notifier.ItemAdded(m.sessionID, updated.Items[idx])
			break
		}
	}
	m.notifier.OpenCart(m.sessionID)
	return m.current, nil
}

// AddLocalItem adds a product to the local cart while the backend is
// unreachable. The caller supplies the product data the backend would
// otherwise provide.
func (m *Manager) AddLocalItem(ctx context.Context, product cart.LocalProduct, quantity int64) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if !m.isLocalMode() {
		return nil, shared.ErrLocalModeOnly
	}

	item, err := m.current.AddLocalItem(product, quantity)
	if err != nil {
		return nil, err
	}
	if err := m.saveLocalLocked(ctx); err != nil {
		return nil, err
	}
	m.notifier.ItemAdded(m.sessionID, *item)
	m.notifier.OpenCart(m.sessionID)
	return m.current, nil
}

// UpdateItem sets a line item's quantity. Local items are updated in the
// session store; remote items go to the backend, with the stale-session
// recovery replaying all items and adjusting this one to the new
// quantity.
func (m *Manager) UpdateItem(ctx context.Context, itemID string, quantity int64) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	item := m.current.FindItem(itemID)
	if item == nil {
		return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Cart item not found")
	}

	if item.IsLocal() || m.current.IsLocal() {
		if err := m.current.UpdateItemQuantity(itemID, quantity); err != nil {
			return nil, err
		}
		if err := m.saveLocalLocked(ctx); err != nil {
			return nil, err
		}
		return m.current, nil
	}

	updated, err := m.commerce.UpdateLineItem(ctx, m.current.ID, itemID, quantity)
	if err != nil && commerce.IsStaleSessionError(err) {
		// The replay itself applies the new quantity, so a successful
		// recovery already is the retried mutation.
		if rerr := m.recoverLocked(ctx, replayAdjustment{adjustItemID: itemID, adjustQuantity: quantity}); rerr != nil {
			return nil, rerr
		}
		return m.current, nil
	}
	if err != nil {
		return nil, err
	}
	m.current = updated
	return m.current, nil
}

// RemoveItem deletes a line item. The stale-session recovery replays all
// items except the removed one.
func (m *Manager) RemoveItem(ctx context.Context, itemID string) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	item := m.current.FindItem(itemID)
	if item == nil {
		return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Cart item not found")
	}

	if item.IsLocal() || m.current.IsLocal() {
		if err := m.current.RemoveItem(itemID); err != nil {
			return nil, err
		}
		if err := m.saveLocalLocked(ctx); err != nil {
			return nil, err
		}
		return m.current, nil
	}

	updated, err := m.commerce.DeleteLineItem(ctx, m.current.ID, itemID)
	if err != nil && commerce.IsStaleSessionError(err) {
		if rerr := m.recoverLocked(ctx, replayAdjustment{skipItemID: itemID}); rerr != nil {
			return nil, rerr
		}
		return m.current, nil
	}
	if err != nil {
		return nil, err
	}
	m.current = updated
	return m.current, nil
}

// ---------------------------------------------------------------------------
// Cart Detail Operations
// ---------------------------------------------------------------------------

// UpdateCart merges email and address fields into the cart. Updates are
// routed to the session store when the cart itself is local or every
// item in it is.
func (m *Manager) UpdateCart(ctx context.Context, input CartUpdateInput) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if m.current.IsLocal() || m.current.AllItemsLocal() {
		if input.Email != nil {
			m.current.Email = *input.Email
		}
		if input.ShippingAddress != nil {
			m.current.ShippingAddress = input.ShippingAddress
		}
		if input.BillingAddress != nil {
			m.current.BillingAddress = input.BillingAddress
		}
		if err := m.saveLocalLocked(ctx); err != nil {
			return nil, err
		}
		return m.current, nil
	}

	update := commerce.CartUpdate{
		Email:           input.Email,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
	}
	updated, err := m.commerce.UpdateCart(ctx, m.current.ID, update)
	if err != nil && commerce.IsStaleSessionError(err) {
		if rerr := m.recoverLocked(ctx, replayAdjustment{}); rerr != nil {
			return nil, rerr
		}
		updated, err = m.commerce.UpdateCart(ctx, m.current.ID, update)
	}
	if err != nil {
		return nil, err
	}
	m.current = updated
	return m.current, nil
}

// ---------------------------------------------------------------------------
// Shipping Operations
// ---------------------------------------------------------------------------

// ListShippingOptions returns the options available for the cart. Local
// carts and unreachable fulfillment APIs yield the fixed fallback tiers.
func (m *Manager) ListShippingOptions(ctx context.Context) ([]cart.ShippingOption, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	fallback := cart.FallbackShippingOptions(m.store.StandardShippingAmount, m.store.ExpressShippingAmount)
	if m.isLocalMode() {
		return fallback, nil
	}

	options, err := m.commerce.ListShippingOptions(ctx, m.current.ID)
	if err != nil {
		m.logger.Warn("shipping options unavailable, using fallback tiers", zap.Error(err))
		return fallback, nil
	}
	return options, nil
}

// AddShippingMethod attaches a shipping option to the cart. On a local
// cart the amount is computed with the free-shipping override.
func (m *Manager) AddShippingMethod(ctx context.Context, optionID string) (*cart.Cart, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if m.isLocalMode() {
		var selected *cart.ShippingOption
		for _, opt := range cart.FallbackShippingOptions(m.store.StandardShippingAmount, m.store.ExpressShippingAmount) {
			if opt.ID == optionID {
				o := opt
				selected = &o
				break
			}
		}
		if selected == nil {
			return nil, shared.NewDomainError("SHIPPING_OPTION_NOT_FOUND", "Unknown shipping option: "+optionID)
		}
		m.current.ShippingMethod = &cart.ShippingMethod{
			ID:               optionID,
			ShippingOptionID: optionID,
			Name:             selected.Name,
		}
		if err := m.saveLocalLocked(ctx); err != nil {
			return nil, err
		}
		return m.current, nil
	}

	updated, err := m.commerce.AddShippingMethod(ctx, m.current.ID, optionID)
	if err != nil && commerce.IsStaleSessionError(err) {
		if rerr := m.recoverLocked(ctx, replayAdjustment{}); rerr != nil {
			return nil, rerr
		}
		updated, err = m.commerce.AddShippingMethod(ctx, m.current.ID, optionID)
	}
	if err != nil {
		return nil, err
	}
	m.current = updated
	return m.current, nil
}

// saveLocalLocked recomputes the local cart's totals, including the
// free-shipping override, and persists the mirror.
func (m *Manager) saveLocalLocked(ctx context.Context) error {
	c := m.current
	c.Recalculate(m.store.TaxRate)

	if c.ShippingMethod != nil {
		for _, opt := range cart.FallbackShippingOptions(m.store.StandardShippingAmount, m.store.ExpressShippingAmount) {
			if opt.ID == c.ShippingMethod.ShippingOptionID {
				amount := cart.LocalShippingAmount(opt, c.Subtotal, m.store.FreeShippingThreshold)
				c.ShippingMethod.Amount = amount
				c.ShippingTotal = amount
				break
			}
		}
		c.Recalculate(m.store.TaxRate)
	}

	return m.state.SaveLocalCart(ctx, m.sessionID, c)
}

// ---------------------------------------------------------------------------
// Promotion Operations
// ---------------------------------------------------------------------------

// ApplyPromoCode applies a promotion code. Rejections come back as
// result values; only transport failures are errors. The backend
// silently ignores unknown codes, so acceptance is detected by diffing
// the promotion set.
func (m *Manager) ApplyPromoCode(ctx context.Context, code string) (*PromotionResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PROMO_CODE", "Promotion code cannot be empty")
	}
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if m.isLocalMode() {
		return &PromotionResult{
			Code:          code,
			Message:       "Promotions are unavailable while the store is offline",
			DiscountTotal: m.current.DiscountTotal,
		}, nil
	}

	if m.current.HasPromotion(code) {
		return &PromotionResult{
			Code:          code,
			Message:       shared.ErrPromotionDuplicate.Message,
			DiscountTotal: m.current.DiscountTotal,
		}, nil
	}

	updated, err := m.commerce.ApplyPromotions(ctx, m.current.ID, []string{code})
	if err != nil {
		return nil, err
	}
	m.current = updated

	if !updated.HasPromotion(code) {
		return &PromotionResult{
			Code:          code,
			Message:       "Promotion code was not accepted",
			DiscountTotal: updated.DiscountTotal,
		}, nil
	}
	return &PromotionResult{
		Applied:       true,
		Code:          code,
		DiscountTotal: updated.DiscountTotal,
	}, nil
}

// RemovePromoCode removes a promotion code from the cart
func (m *Manager) RemovePromoCode(ctx context.Context, code string) (*PromotionResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PROMO_CODE", "Promotion code cannot be empty")
	}
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if m.isLocalMode() || !m.current.HasPromotion(code) {
		return &PromotionResult{
			Code:          code,
			Message:       "Promotion code is not applied",
			DiscountTotal: m.current.DiscountTotal,
		}, nil
	}

	updated, err := m.commerce.RemovePromotions(ctx, m.current.ID, []string{code})
	if err != nil {
		return nil, err
	}
	m.current = updated
	return &PromotionResult{
		Code:          code,
		DiscountTotal: updated.DiscountTotal,
	}, nil
}

// ---------------------------------------------------------------------------
// Payment and Checkout
// ---------------------------------------------------------------------------

// InitializePaymentSession makes sure the cart carries a payment session
// for the resolved provider and returns its client secret. A usable
// secret already on the cart is reused instead of provoking the backend
// into rejecting a stale collection.
func (m *Manager) InitializePaymentSession(ctx context.Context, providerID string) (*PaymentSessionResult, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if m.isLocalMode() {
		return nil, shared.ErrRemoteModeOnly
	}

	provider := providerID
	if provider == "" {
		provider = m.store.PaymentProvider
	}
	if provider == "" {
		provider = systemDefaultProvider
	}

	// Mutation responses come back without the expanded payment
	// collection, so the in-memory cart may be missing one the server
	// already has. Refresh before deciding whether to create it.
	if fresh, err := m.commerce.RetrieveCart(ctx, m.current.ID); err == nil {
		m.current = fresh
	} else {
		m.logger.Warn("cart refresh before payment init failed", zap.Error(err))
	}

	collection := m.current.PaymentCollection
	if collection == nil {
		created, err := m.commerce.CreatePaymentCollection(ctx, m.current.ID)
		if err != nil {
			return nil, err
		}
		collection = created
		m.current.PaymentCollection = created
	}

	refreshed, err := m.commerce.CreatePaymentSession(ctx, collection.ID, provider)
	if err != nil {
		// Secret priority when a fresh session cannot be created: the
		// provider's existing session, then any session on the cart.
		if existing := collection.SessionForProvider(provider); existing.ClientSecret() != "" {
			return &PaymentSessionResult{ProviderID: provider, ClientSecret: existing.ClientSecret()}, nil
		}
		if any := collection.AnySession(); any.ClientSecret() != "" {
			return &PaymentSessionResult{ProviderID: any.ProviderID, ClientSecret: any.ClientSecret()}, nil
		}
		if commerce.IsStaleSessionError(err) {
			if rerr := m.recoverLocked(ctx, replayAdjustment{}); rerr != nil {
				return nil, rerr
			}
			return m.initializePaymentSessionFreshLocked(ctx, provider)
		}
		return nil, err
	}
	m.current.PaymentCollection = refreshed

	if session := refreshed.SessionForProvider(provider); session.ClientSecret() != "" {
		return &PaymentSessionResult{ProviderID: provider, ClientSecret: session.ClientSecret()}, nil
	}
	if any := refreshed.AnySession(); any.ClientSecret() != "" {
		return &PaymentSessionResult{ProviderID: any.ProviderID, ClientSecret: any.ClientSecret()}, nil
	}
	return &PaymentSessionResult{ProviderID: provider}, nil
}

// initializePaymentSessionFreshLocked builds a payment session on a cart
// that was just replaced by recovery
func (m *Manager) initializePaymentSessionFreshLocked(ctx context.Context, provider string) (*PaymentSessionResult, error) {
	collection, err := m.commerce.CreatePaymentCollection(ctx, m.current.ID)
	if err != nil {
		return nil, err
	}
	refreshed, err := m.commerce.CreatePaymentSession(ctx, collection.ID, provider)
	if err != nil {
		return nil, err
	}
	m.current.PaymentCollection = refreshed
	if session := refreshed.SessionForProvider(provider); session.ClientSecret() != "" {
		return &PaymentSessionResult{ProviderID: provider, ClientSecret: session.ClientSecret()}, nil
	}
	return &PaymentSessionResult{ProviderID: provider}, nil
}

// CompleteCart attempts to place the order. The call is issued even for
// an empty cart; the backend owns that validation. A successful order
// clears all persisted session cart state.
func (m *Manager) CompleteCart(ctx context.Context) (*commerce.Order, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if m.isLocalMode() {
		return nil, shared.ErrRemoteModeOnly
	}

	result, err := m.commerce.CompleteCart(ctx, m.current.ID)
	if err != nil {
		return nil, err
	}

	switch result.Type {
	case "order":
		m.clearPersistedCartID(ctx)
		if err := m.state.ClearLocalCart(ctx, m.sessionID); err != nil {
			m.logger.Warn("failed to clear local cart after order", zap.Error(err))
		}
		m.current = nil
		m.mode = ModeUninitialized
		return result.Order, nil
	case "cart":
		message := shared.ErrCompletionRejected.Message
		if result.Error != nil && result.Error.Message != "" {
			message = result.Error.Message
		}
		if result.Cart != nil {
			m.current = result.Cart.ToCart()
		}
		return nil, shared.NewDomainError(shared.ErrCompletionRejected.Code, message)
	default:
		return nil, shared.ErrUnexpectedResponse
	}
}

// ---------------------------------------------------------------------------
// Authentication Hand-off
// ---------------------------------------------------------------------------

// TransferToCustomer links the guest cart to the authenticated customer
// via an authenticated no-op update. Failures are logged and swallowed;
// a cart that stays on the guest scope is still usable.
func (m *Manager) TransferToCustomer(ctx context.Context, customerToken string) {
	if err := m.begin(); err != nil {
		m.logger.Warn("cart transfer skipped", zap.Error(err))
		return
	}
	defer m.end()
	if err := m.ensureInitialized(ctx); err != nil {
		m.logger.Warn("cart transfer skipped", zap.Error(err))
		return
	}
	if m.isLocalMode() {
		m.mode = ModeLocal
		return
	}

	transferred, err := m.commerce.TransferCart(ctx, m.current.ID, customerToken)
	if err != nil {
		m.logger.Warn("cart transfer failed", zap.Error(err))
		return
	}
	m.current = transferred
	m.mode = ModeRemoteAuthenticated
}
