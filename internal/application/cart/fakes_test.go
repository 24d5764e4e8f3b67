package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
)

// staleErr carries the backend's stale-payment-session signature
var staleErr = &commerce.APIError{Status: 400, Message: "Delete all payment sessions before proceeding"}

// fakeBackend simulates the commerce store API in memory: carts, a
// variant catalog, promotions, and a per-cart stale flag that makes
// every mutation fail the way a cart with expired payment sessions does.
type fakeBackend struct {
	mu         sync.Mutex
	carts      map[string]*cart.Cart
	stale      map[string]bool
	nextID     int
	prices     map[string]decimal.Decimal
	promos     map[string]decimal.Decimal
	options    []cart.ShippingOption
	optionsErr error
	createErr  error
	sessionErr error
	complete   *commerce.CompleteResult
	calls      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		carts: make(map[string]*cart.Cart),
		stale: make(map[string]bool),
		prices: map[string]decimal.Decimal{
			"variant_pullover": decimal.NewFromFloat(129.00),
			"variant_shirt":    decimal.NewFromFloat(49.90),
			"variant_beanie":   decimal.NewFromFloat(24.90),
		},
		promos: map[string]decimal.Decimal{
			"SUMMER10": decimal.NewFromFloat(10.00),
		},
		options: []cart.ShippingOption{
			{ID: "so_post", Name: "Swiss Post", Amount: decimal.NewFromFloat(7.90)},
			{ID: "so_courier", Name: "Courier", Amount: decimal.NewFromFloat(14.90)},
		},
	}
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func cloneCart(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = append([]cart.LineItem(nil), c.Items...)
	cp.Promotions = append([]cart.Promotion(nil), c.Promotions...)
	if c.ShippingMethod != nil {
		sm := *c.ShippingMethod
		cp.ShippingMethod = &sm
	}
	if c.ShippingAddress != nil {
		a := *c.ShippingAddress
		cp.ShippingAddress = &a
	}
	if c.BillingAddress != nil {
		a := *c.BillingAddress
		cp.BillingAddress = &a
	}
	if c.PaymentCollection != nil {
		pc := *c.PaymentCollection
		pc.Sessions = append([]cart.PaymentSession(nil), c.PaymentCollection.Sessions...)
		cp.PaymentCollection = &pc
	}
	return &cp
}

func (f *fakeBackend) recalc(c *cart.Cart) {
	subtotal := decimal.Zero
	for idx := range c.Items {
		c.Items[idx].Total = c.Items[idx].UnitPrice.Mul(decimal.NewFromInt(c.Items[idx].Quantity))
		subtotal = subtotal.Add(c.Items[idx].Total)
	}
	c.Subtotal = subtotal
	c.ItemTotal = subtotal
	c.Total = subtotal.Add(c.ShippingTotal).Sub(c.DiscountTotal)
}

func (f *fakeBackend) get(cartID string) (*cart.Cart, error) {
	c, ok := f.carts[cartID]
	if !ok {
		return nil, &commerce.APIError{Status: 404, Message: "Cart " + cartID + " not found"}
	}
	return c, nil
}

func (f *fakeBackend) mutable(cartID string) (*cart.Cart, error) {
	if f.stale[cartID] {
		return nil, staleErr
	}
	return f.get(cartID)
}

func (f *fakeBackend) RetrieveCart(_ context.Context, cartID string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("retrieve:" + cartID)
	c, err := f.get(cartID)
	if err != nil {
		return nil, err
	}
	return cloneCart(c), nil
}

func (f *fakeBackend) CreateCart(_ context.Context, regionID string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	c := &cart.Cart{
		ID:           fmt.Sprintf("cart_%02d", f.nextID),
		RegionID:     regionID,
		CurrencyCode: "chf",
		Items:        []cart.LineItem{},
	}
	f.carts[c.ID] = c
	return cloneCart(c), nil
}

func (f *fakeBackend) UpdateCart(_ context.Context, cartID string, update commerce.CartUpdate) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update:" + cartID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	if update.Email != nil {
		c.Email = *update.Email
	}
	if update.RegionID != nil {
		c.RegionID = *update.RegionID
	}
	if update.ShippingAddress != nil {
		c.ShippingAddress = update.ShippingAddress
	}
	if update.BillingAddress != nil {
		c.BillingAddress = update.BillingAddress
	}
	return cloneCart(c), nil
}

func (f *fakeBackend) AddLineItem(_ context.Context, cartID, variantID string, quantity int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add-item:" + cartID + ":" + variantID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	price, ok := f.prices[variantID]
	if !ok {
		return nil, &commerce.APIError{Status: 404, Message: "Variant " + variantID + " not found"}
	}
	for idx := range c.Items {
		if c.Items[idx].VariantID == variantID {
			c.Items[idx].Quantity += quantity
			f.recalc(c)
			return cloneCart(c), nil
		}
	}
	c.Items = append(c.Items, cart.LineItem{
		ID:        "item_" + variantID,
		Title:     variantID,
		Quantity:  quantity,
		UnitPrice: price,
		VariantID: variantID,
		Origin:    cart.OriginRemote,
	})
	f.recalc(c)
	return cloneCart(c), nil
}

func (f *fakeBackend) UpdateLineItem(_ context.Context, cartID, lineItemID string, quantity int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update-item:" + cartID + ":" + lineItemID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	for idx := range c.Items {
		if c.Items[idx].ID == lineItemID {
			c.Items[idx].Quantity = quantity
			f.recalc(c)
			return cloneCart(c), nil
		}
	}
	return nil, &commerce.APIError{Status: 404, Message: "Item not found"}
}

func (f *fakeBackend) DeleteLineItem(_ context.Context, cartID, lineItemID string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete-item:" + cartID + ":" + lineItemID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	for idx := range c.Items {
		if c.Items[idx].ID == lineItemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			f.recalc(c)
			return cloneCart(c), nil
		}
	}
	return nil, &commerce.APIError{Status: 404, Message: "Item not found"}
}

func (f *fakeBackend) ListShippingOptions(_ context.Context, cartID string) ([]cart.ShippingOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-options:" + cartID)
	if f.optionsErr != nil {
		return nil, f.optionsErr
	}
	return append([]cart.ShippingOption(nil), f.options...), nil
}

func (f *fakeBackend) AddShippingMethod(_ context.Context, cartID, optionID string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add-shipping:" + cartID + ":" + optionID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	for _, opt := range f.options {
		if opt.ID == optionID {
			c.ShippingMethod = &cart.ShippingMethod{
				ID:               "sm_" + optionID,
				ShippingOptionID: optionID,
				Name:             opt.Name,
				Amount:           opt.Amount,
			}
			c.ShippingTotal = opt.Amount
			f.recalc(c)
			return cloneCart(c), nil
		}
	}
	return nil, &commerce.APIError{Status: 404, Message: "Shipping option not found"}
}

func (f *fakeBackend) CreatePaymentCollection(_ context.Context, cartID string) (*cart.PaymentCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-collection:" + cartID)
	c, err := f.get(cartID)
	if err != nil {
		return nil, err
	}
	c.PaymentCollection = &cart.PaymentCollection{ID: "paycol_" + cartID}
	return c.PaymentCollection, nil
}

func (f *fakeBackend) CreatePaymentSession(_ context.Context, collectionID, providerID string) (*cart.PaymentCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-session:" + collectionID + ":" + providerID)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	for _, c := range f.carts {
		if c.PaymentCollection != nil && c.PaymentCollection.ID == collectionID {
			c.PaymentCollection.Sessions = append(c.PaymentCollection.Sessions, cart.PaymentSession{
				ID:         "payses_" + providerID,
				ProviderID: providerID,
				Status:     "pending",
				Data:       map[string]any{"client_secret": "secret_" + providerID},
			})
			pc := *c.PaymentCollection
			return &pc, nil
		}
	}
	return nil, &commerce.APIError{Status: 404, Message: "Payment collection not found"}
}

func (f *fakeBackend) ApplyPromotions(_ context.Context, cartID string, codes []string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("apply-promos:" + cartID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		discount, known := f.promos[code]
		if !known || c.HasPromotion(code) {
			// Unknown codes are silently ignored, like the real backend
			continue
		}
		c.Promotions = append(c.Promotions, cart.Promotion{ID: "promo_" + code, Code: code})
		c.DiscountTotal = c.DiscountTotal.Add(discount)
	}
	f.recalc(c)
	return cloneCart(c), nil
}

func (f *fakeBackend) RemovePromotions(_ context.Context, cartID string, codes []string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove-promos:" + cartID)
	c, err := f.mutable(cartID)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		for idx := range c.Promotions {
			if c.Promotions[idx].Code == code {
				c.Promotions = append(c.Promotions[:idx], c.Promotions[idx+1:]...)
				c.DiscountTotal = c.DiscountTotal.Sub(f.promos[code])
				break
			}
		}
	}
	f.recalc(c)
	return cloneCart(c), nil
}

func (f *fakeBackend) CompleteCart(_ context.Context, cartID string) (*commerce.CompleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("complete:" + cartID)
	if f.complete != nil {
		return f.complete, nil
	}
	return &commerce.CompleteResult{
		Type:  "order",
		Order: &commerce.Order{ID: "order_" + cartID, DisplayID: 1000},
	}, nil
}

func (f *fakeBackend) TransferCart(_ context.Context, cartID, _ string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("transfer:" + cartID)
	c, err := f.get(cartID)
	if err != nil {
		return nil, err
	}
	return cloneCart(c), nil
}

var _ CommerceAPI = (*fakeBackend)(nil)

// memoryState is an in-memory cart.SessionStateRepository
type memoryState struct {
	mu       sync.Mutex
	cartIDs  map[string]string
	locals   map[string]*cart.Cart
	regions  map[string]string
	saveErrs error
}

func newMemoryState() *memoryState {
	return &memoryState{
		cartIDs: make(map[string]string),
		locals:  make(map[string]*cart.Cart),
		regions: make(map[string]string),
	}
}

func (s *memoryState) CartID(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartIDs[sessionID], nil
}

func (s *memoryState) SetCartID(_ context.Context, sessionID, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartIDs[sessionID] = cartID
	return nil
}

func (s *memoryState) ClearCartID(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cartIDs, sessionID)
	return nil
}

func (s *memoryState) LocalCart(_ context.Context, sessionID, currencyCode string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.locals[sessionID]; ok {
		return cloneCart(c), nil
	}
	return cart.NewLocalCart(currencyCode), nil
}

func (s *memoryState) SaveLocalCart(_ context.Context, sessionID string, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErrs != nil {
		return s.saveErrs
	}
	s.locals[sessionID] = cloneCart(c)
	return nil
}

func (s *memoryState) ClearLocalCart(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locals, sessionID)
	return nil
}

func (s *memoryState) RegionID(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions[sessionID], nil
}

func (s *memoryState) SetRegionID(_ context.Context, sessionID, regionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[sessionID] = regionID
	return nil
}

var _ cart.SessionStateRepository = (*memoryState)(nil)

// fixedRegion always resolves to the same region
type fixedRegion struct {
	region region.Region
}

func (f *fixedRegion) Resolve(context.Context, string) region.Region {
	return f.region
}

// recordingNotifier captures the storefront side effects
type recordingNotifier struct {
	mu        sync.Mutex
	added     []cart.LineItem
	openCalls int
}

func (n *recordingNotifier) ItemAdded(_ string, item cart.LineItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.added = append(n.added, item)
}

func (n *recordingNotifier) OpenCart(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.openCalls++
}
