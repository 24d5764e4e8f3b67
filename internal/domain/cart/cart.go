package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alpenform/storefront/internal/domain/shared"
)

// LocalCartID is the cart identifier used when no commerce backend is
// reachable and the cart lives entirely in the session state store.
const LocalCartID = "local"

// localItemIDPrefix keys local line items deterministically from the
// product identifier so repeated adds merge instead of duplicating rows.
const localItemIDPrefix = "local_"

// ItemOrigin tags where a line item is backed: a real commerce variant or
// the local session store. Explicit tag instead of sniffing ID prefixes.
type ItemOrigin string

const (
	OriginRemote ItemOrigin = "remote"
	OriginLocal  ItemOrigin = "local"
)

// Address holds a cart shipping or billing address in the commerce
// platform's wire shape.
type Address struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address_1,omitempty"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// LineItem is one product/variant entry within a cart
type LineItem struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Total         decimal.Decimal `json:"total"`
	VariantID     string          `json:"variant_id,omitempty"`
	ProductID     string          `json:"product_id,omitempty"`
	ProductHandle string          `json:"product_handle,omitempty"`
	Origin        ItemOrigin      `json:"origin"`
}

// IsLocal reports whether the line item is session-store backed rather
// than backed by a real commerce variant.
func (i *LineItem) IsLocal() bool {
	return i.Origin == OriginLocal
}

// Promotion is a discount code applied to the cart as a set operation
type Promotion struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// ShippingMethod is the cart's selected fulfillment method
type ShippingMethod struct {
	ID               string          `json:"id"`
	ShippingOptionID string          `json:"shipping_option_id"`
	Name             string          `json:"name,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
}

// PaymentSession is one provider session inside a payment collection.
// Data carries provider-specific material such as the client secret.
type PaymentSession struct {
	ID         string         `json:"id"`
	ProviderID string         `json:"provider_id"`
	Status     string         `json:"status,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// ClientSecret returns the payment client secret carried in the session
// data, or empty if none is present.
func (s *PaymentSession) ClientSecret() string {
	if s == nil || s.Data == nil {
		return ""
	}
	if v, ok := s.Data["client_secret"].(string); ok {
		return v
	}
	return ""
}

// PaymentCollection groups the payment sessions attached to a cart
type PaymentCollection struct {
	ID       string           `json:"id"`
	Sessions []PaymentSession `json:"payment_sessions,omitempty"`
}

// SessionForProvider returns the first session for the given provider
func (pc *PaymentCollection) SessionForProvider(providerID string) *PaymentSession {
	if pc == nil {
		return nil
	}
	for idx := range pc.Sessions {
		if pc.Sessions[idx].ProviderID == providerID {
			return &pc.Sessions[idx]
		}
	}
	return nil
}

// AnySession returns any session present in the collection
func (pc *PaymentCollection) AnySession() *PaymentSession {
	if pc == nil || len(pc.Sessions) == 0 {
		return nil
	}
	return &pc.Sessions[0]
}

// Cart is the mutable pre-order aggregate of line items, addresses,
// promotions and totals. The cart manager owns the single instance per
// session; nothing else mutates it directly.
//
// Totals invariant: Total == ItemTotal + ShippingTotal - DiscountTotal.
// TaxTotal is informational only (prices are tax inclusive) and is never
// added into Total.
type Cart struct {
	ID                string             `json:"id"`
	RegionID          string             `json:"region_id,omitempty"`
	CurrencyCode      string             `json:"currency_code,omitempty"`
	Email             string             `json:"email,omitempty"`
	Items             []LineItem         `json:"items"`
	ShippingAddress   *Address           `json:"shipping_address,omitempty"`
	BillingAddress    *Address           `json:"billing_address,omitempty"`
	Promotions        []Promotion        `json:"promotions,omitempty"`
	ShippingMethod    *ShippingMethod    `json:"shipping_method,omitempty"`
	PaymentCollection *PaymentCollection `json:"payment_collection,omitempty"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	ItemTotal     decimal.Decimal `json:"item_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewLocalCart returns an empty cart bound to the session state store
func NewLocalCart(currencyCode string) *Cart {
	return &Cart{
		ID:           LocalCartID,
		CurrencyCode: currencyCode,
		Items:        make([]LineItem, 0),
		UpdatedAt:    time.Now(),
	}
}

// LocalItemID derives the deterministic local line item ID for a product
func LocalItemID(productID string) string {
	return localItemIDPrefix + productID
}

// IsLocal reports whether the cart lives in the session state store
func (c *Cart) IsLocal() bool {
	return c.ID == LocalCartID || c.ID == ""
}

// IsCompleted reports whether the cart has been turned into an order
func (c *Cart) IsCompleted() bool {
	return c.CompletedAt != nil
}

// AllItemsLocal reports whether every line item is session-store backed.
// An update on such a cart is routed to the local store even when the
// manager's mode flag predates the backend becoming unreachable.
func (c *Cart) AllItemsLocal() bool {
	if len(c.Items) == 0 {
		return false
	}
	for idx := range c.Items {
		if !c.Items[idx].IsLocal() {
			return false
		}
	}
	return true
}

// FindItem returns the line item with the given ID, or nil
func (c *Cart) FindItem(itemID string) *LineItem {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			return &c.Items[idx]
		}
	}
	return nil
}

// HasPromotion reports whether a promotion code is already applied.
// Codes are matched case-insensitively, mirroring the backend.
func (c *Cart) HasPromotion(code string) bool {
	for _, promo := range c.Promotions {
		if strings.EqualFold(promo.Code, code) {
			return true
		}
	}
	return false
}

// LocalProduct carries the product fields needed to build a local line item
type LocalProduct struct {
	ID        string
	Title     string
	Subtitle  string
	Thumbnail string
	Handle    string
	UnitPrice decimal.Decimal
}

// AddLocalItem finds or creates the deterministic line item for the
// product and increments its quantity. Totals are not recomputed here;
// callers recalculate with the configured tax rate afterwards.
func (c *Cart) AddLocalItem(product LocalProduct, quantity int64) (*LineItem, error) {
	if product.ID == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	itemID := LocalItemID(product.ID)
	if existing := c.FindItem(itemID); existing != nil {
		existing.Quantity += quantity
		existing.Total = existing.UnitPrice.Mul(decimal.NewFromInt(existing.Quantity))
		c.UpdatedAt = time.Now()
		return existing, nil
	}

	item := LineItem{
		ID:            itemID,
		Title:         product.Title,
		Subtitle:      product.Subtitle,
		Thumbnail:     product.Thumbnail,
		Quantity:      quantity,
		UnitPrice:     product.UnitPrice,
		Total:         product.UnitPrice.Mul(decimal.NewFromInt(quantity)),
		ProductID:     product.ID,
		ProductHandle: product.Handle,
		Origin:        OriginLocal,
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = time.Now()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets the quantity of an existing line item.
// Quantity must be at least 1; callers that want zero remove instead.
func (c *Cart) UpdateItemQuantity(itemID string, quantity int64) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1, remove the item instead")
	}
	item := c.FindItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Cart item not found")
	}
	item.Quantity = quantity
	item.Total = item.UnitPrice.Mul(decimal.NewFromInt(quantity))
	c.UpdatedAt = time.Now()
	return nil
}

// RemoveItem deletes a line item from the cart
func (c *Cart) RemoveItem(itemID string) error {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Cart item not found")
}

// Recalculate recomputes the cart totals from its line items.
//
// Prices are tax inclusive, so the tax line is derived from the subtotal
// as subtotal * rate / (1 + rate) and never added into the grand total.
// The rate is a jurisdiction-specific business rule injected by the
// caller, not a constant of the algorithm. Recalculate is idempotent.
func (c *Cart) Recalculate(taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for idx := range c.Items {
		item := &c.Items[idx]
		item.Total = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		subtotal = subtotal.Add(item.Total)
	}

	c.Subtotal = subtotal
	c.ItemTotal = subtotal
	if !taxRate.IsZero() {
		one := decimal.NewFromInt(1)
		c.TaxTotal = subtotal.Mul(taxRate).Div(one.Add(taxRate)).Round(2)
	} else {
		c.TaxTotal = decimal.Zero
	}
	c.Total = c.ItemTotal.Add(c.ShippingTotal).Sub(c.DiscountTotal)
	c.UpdatedAt = time.Now()
}

// ItemQuantityTotal returns the sum of all item quantities
func (c *Cart) ItemQuantityTotal() int64 {
	var total int64
	for idx := range c.Items {
		total += c.Items[idx].Quantity
	}
	return total
}
